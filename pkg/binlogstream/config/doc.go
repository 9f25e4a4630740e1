/*
Package config loads reader settings from YAML or JSON files and the environment.

# Overview

Settings start from Default(), are overlaid by a file, then by
BINLOGSTREAM_* environment variables:

	s, err := config.FromFile("binlogdump.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	s.ApplyEnv(os.Getenv)
	if err := s.Validate(); err != nil {
	    log.Fatal(err)
	}

A YAML file needs only the keys it changes:

	relay_capacity: 500
	checksum: crc32
	log_level: debug
	quarantine_path: /var/lib/binlogdump/quarantine.db

Unknown keys are rejected so that typos do not silently fall back to defaults.
*/
package config
