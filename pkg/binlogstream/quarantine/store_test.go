package quarantine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/binlogstream/pkg/binlogstream/quarantine"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) quarantine.Store

func sampleRecord(streamID string, offset int64) quarantine.Record {
	return quarantine.NewRecord(streamID, offset, 0x13, "table_map",
		[]byte{0x01, 0x02, 0x03, byte(offset)}, errors.New("truncated table map"))
}

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	t.Run(name+"/Save_and_Load", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		rec := sampleRecord("mysql-bin.000001", 120)
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Load(ctx, "mysql-bin.000001", 120)
		require.NoError(t, err)
		assert.Equal(t, rec.StreamID, loaded.StreamID)
		assert.Equal(t, rec.Offset, loaded.Offset)
		assert.Equal(t, rec.EventType, loaded.EventType)
		assert.Equal(t, rec.EventTypeName, loaded.EventTypeName)
		assert.Equal(t, rec.Fingerprint, loaded.Fingerprint)
		assert.Equal(t, rec.Data, loaded.Data)
		assert.Equal(t, rec.Error, loaded.Error)
		assert.WithinDuration(t, rec.CapturedAt, loaded.CapturedAt, time.Millisecond)
	})

	t.Run(name+"/Load_NotFound", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Load(ctx, "missing", 4)
		assert.ErrorIs(t, err, quarantine.ErrNotFound)
	})

	t.Run(name+"/Save_Overwrite", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		first := sampleRecord("s", 4)
		second := sampleRecord("s", 4)
		second.Error = "checksum mismatch"
		require.NoError(t, store.Save(ctx, first))
		require.NoError(t, store.Save(ctx, second))

		loaded, err := store.Load(ctx, "s", 4)
		require.NoError(t, err)
		assert.Equal(t, "checksum mismatch", loaded.Error)

		recs, err := store.List(ctx, "s")
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run(name+"/List_Empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		recs, err := store.List(ctx, "nothing")
		require.NoError(t, err)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	})

	t.Run(name+"/List_OrderedByOffset", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for _, off := range []int64{900, 4, 310} {
			require.NoError(t, store.Save(ctx, sampleRecord("s", off)))
		}
		require.NoError(t, store.Save(ctx, sampleRecord("other", 50)))

		recs, err := store.List(ctx, "s")
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, int64(4), recs[0].Offset)
		assert.Equal(t, int64(310), recs[1].Offset)
		assert.Equal(t, int64(900), recs[2].Offset)
	})

	t.Run(name+"/Delete", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, sampleRecord("s", 4)))
		require.NoError(t, store.Delete(ctx, "s", 4))

		_, err := store.Load(ctx, "s", 4)
		assert.ErrorIs(t, err, quarantine.ErrNotFound)

		assert.NoError(t, store.Delete(ctx, "s", 4), "deleting a missing record is not an error")
	})

	t.Run(name+"/Empty_Frame", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		rec := quarantine.NewRecord("s", 4, 0, "unknown", nil, nil)
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Load(ctx, "s", 4)
		require.NoError(t, err)
		assert.Empty(t, loaded.Data)
		assert.Empty(t, loaded.Error)
	})

	t.Run(name+"/Closed", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		assert.ErrorIs(t, store.Save(ctx, sampleRecord("s", 4)), quarantine.ErrStoreClosed)
		_, err := store.Load(ctx, "s", 4)
		assert.ErrorIs(t, err, quarantine.ErrStoreClosed)
		_, err = store.List(ctx, "s")
		assert.ErrorIs(t, err, quarantine.ErrStoreClosed)
		assert.ErrorIs(t, store.Delete(ctx, "s", 4), quarantine.ErrStoreClosed)
		assert.NoError(t, store.Close(), "close is idempotent")
	})

	t.Run(name+"/Concurrent", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func(off int64) {
				defer wg.Done()
				assert.NoError(t, store.Save(ctx, sampleRecord("s", off)))
				_, err := store.List(ctx, "s")
				assert.NoError(t, err)
			}(int64(i))
		}
		wg.Wait()

		recs, err := store.List(ctx, "s")
		require.NoError(t, err)
		assert.Len(t, recs, 20)
	})
}

func TestFingerprint(t *testing.T) {
	a := quarantine.Fingerprint([]byte("frame"))
	assert.Len(t, a, 16)
	assert.Equal(t, a, quarantine.Fingerprint([]byte("frame")))
	assert.NotEqual(t, a, quarantine.Fingerprint([]byte("frame2")))
}

func TestNewRecord(t *testing.T) {
	frame := []byte{1, 2, 3}
	rec := quarantine.NewRecord("s", 4, 2, "query", frame, errors.New("bad"))

	frame[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, rec.Data, "frame bytes are copied")
	assert.Equal(t, quarantine.Fingerprint([]byte{1, 2, 3}), rec.Fingerprint)
	assert.Equal(t, "bad", rec.Error)
	assert.Equal(t, time.UTC, rec.CapturedAt.Location())
}
