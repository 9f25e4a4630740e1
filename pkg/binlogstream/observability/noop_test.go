package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordFrame(ctx, "query", 10, time.Millisecond, errors.New("x"))
		m.RecordRelayWait(ctx, time.Millisecond)
		m.RecordStream(ctx, OutcomeCanceled, time.Second)
	})
}

func TestNoopSpanManager(t *testing.T) {
	sm := NoopSpanManager{}
	ctx := context.Background()

	got, span := sm.StartStreamSpan(ctx, "s")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	assert.NotPanics(t, func() {
		sm.AddSpanEvent(ctx, "e", attribute.Int("n", 1))
		sm.EndSpanWithError(span, errors.New("x"))
	})
}
