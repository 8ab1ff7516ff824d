package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLogger_AddsTraceIDsInsideSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "dev", "test")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "inside")
	span.End()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "inside", rec["msg"])
	assert.Equal(t, "test", rec["service"])
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.NotEmpty(t, rec["span_id"])
}

func TestLogger_NoSpanNoTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "prod", "test")

	logger.Debug("hidden")
	logger.Info("visible")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "visible", rec["msg"])
	_, ok := rec["trace_id"]
	assert.False(t, ok)
}

func TestWorkerStats_Concurrent(t *testing.T) {
	s := NewWorkerStats()

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.IncClaimed()
			s.IncDone()
			s.ObserveDuration(time.Duration(n) * time.Millisecond)
		}(i)
	}
	wg.Wait()
	s.IncRetried()

	snap := s.Snapshot()
	assert.Equal(t, uint64(10), snap.Claimed)
	assert.Equal(t, uint64(10), snap.Done)
	assert.Equal(t, uint64(1), snap.Retried)
	assert.Equal(t, (10 * time.Millisecond).String(), snap.MaxDuration)
	assert.Equal(t, (5500 * time.Microsecond).String(), snap.AverageDuration)
	assert.NotNil(t, snap.LastFinishedAt)
}

func TestWorkerStats_Empty(t *testing.T) {
	snap := NewWorkerStats().Snapshot()

	assert.Zero(t, snap.DurationCount)
	assert.Nil(t, snap.LastFinishedAt)
}

func TestLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "dev", "test")

	ctx := ContextWithAttrs(context.Background(), slog.String("request_id", "req-1"))
	ctx = ContextWithAttrs(ctx, slog.String("user_id", "u-1"))
	logger.InfoContext(ctx, "with attrs")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "u-1", rec["user_id"])
}
