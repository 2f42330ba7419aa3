package internal

import (
	"context"
	"strconv"
	"sync"
)

// Lightweight telemetry hooks. Service wiring may register a real meter via
// RegisterTelemetryEmitter; the default emitter drops everything.

type telemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl telemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {
		// noop by default
	}
)

// RegisterTelemetryEmitter installs fn. A nil fn restores the no-op emitter.
func RegisterTelemetryEmitter(fn func(ctx context.Context, name string, labels map[string]string, value any)) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emitter() telemetryEmitter {
	teleMu.Lock()
	defer teleMu.Unlock()
	return teleImpl
}

// EmitRebuildLatency records how long a schema rebuild took in milliseconds.
// name: "tca_schema_rebuild_latency" with label {"source": "<name>", "outcome": "ok|error"}
func EmitRebuildLatency(ctx context.Context, source string, ok bool, ms int64) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	labels := map[string]string{"source": source, "outcome": outcome}
	emitter()(ctx, "tca_schema_rebuild_latency", labels, ms)
}

// EmitTableCount records the number of tables of a published schema set.
// name: "tca_schema_table_count" with label {"source": "<name>"}
func EmitTableCount(ctx context.Context, source string, tables int) {
	labels := map[string]string{"source": source}
	emitter()(ctx, "tca_schema_table_count", labels, int64(tables))
}

// EmitAccessDecision records one voter decision.
// name: "tca_access_decision" with labels {"table": "<table>", "granted": "true|false", "decided_by": "listener|rules"}
func EmitAccessDecision(ctx context.Context, table string, granted bool, decidedBy string) {
	labels := map[string]string{
		"table":      table,
		"granted":    strconv.FormatBool(granted),
		"decided_by": decidedBy,
	}
	emitter()(ctx, "tca_access_decision", labels, int64(1))
}
