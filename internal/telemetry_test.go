package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type emitted struct {
	name   string
	labels map[string]string
	value  any
}

func captureTelemetry(t *testing.T) *[]emitted {
	t.Helper()
	var got []emitted
	RegisterTelemetryEmitter(func(_ context.Context, name string, labels map[string]string, value any) {
		got = append(got, emitted{name: name, labels: labels, value: value})
	})
	t.Cleanup(func() { RegisterTelemetryEmitter(nil) })
	return &got
}

func TestTelemetryEmitters(t *testing.T) {
	got := captureTelemetry(t)
	ctx := context.Background()

	EmitRebuildLatency(ctx, "file:tca", true, 12)
	EmitRebuildLatency(ctx, "s3://bucket/", false, 40)
	EmitTableCount(ctx, "file:tca", 5)
	EmitAccessDecision(ctx, "pages", false, "listener")

	assert.Equal(t, []emitted{
		{name: "tca_schema_rebuild_latency", labels: map[string]string{"source": "file:tca", "outcome": "ok"}, value: int64(12)},
		{name: "tca_schema_rebuild_latency", labels: map[string]string{"source": "s3://bucket/", "outcome": "error"}, value: int64(40)},
		{name: "tca_schema_table_count", labels: map[string]string{"source": "file:tca"}, value: int64(5)},
		{name: "tca_access_decision", labels: map[string]string{"table": "pages", "granted": "false", "decided_by": "listener"}, value: int64(1)},
	}, *got)
}

func TestRegisterTelemetryEmitter_NilRestoresNoop(t *testing.T) {
	got := captureTelemetry(t)
	RegisterTelemetryEmitter(nil)

	EmitTableCount(context.Background(), "static", 1)
	assert.Empty(t, *got)
}
