package internal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/tca"
	"go.uber.org/zap"
)

// SchemaResolver publishes schema sets. Readers load the current set without
// locking; rebuilds are serialized and swap in a complete set or nothing.
type SchemaResolver struct {
	factory *SchemaFactory
	current atomic.Pointer[SchemaSet]
	buildMu sync.Mutex
}

var _ tca.SchemaResolver = (*SchemaResolver)(nil)

func NewSchemaResolver(factory *SchemaFactory) *SchemaResolver {
	if factory == nil {
		factory = NewSchemaFactory()
	}
	return &SchemaResolver{factory: factory}
}

// Rebuild loads the configuration from source and publishes a new schema set.
// On failure the previously published set stays in place.
func (r *SchemaResolver) Rebuild(ctx context.Context, source tca.TCASource) (*SchemaSet, error) {
	start := time.Now()
	raw, err := source.Load(ctx)
	if err != nil {
		EmitRebuildLatency(ctx, source.Name(), false, time.Since(start).Milliseconds())
		zap.S().Warnw("schema rebuild failed; keeping previous schema set",
			"source", source.Name(), "stage", "load", "error", err)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", source.Name(), err)
	}
	set, err := r.publish(raw)
	EmitRebuildLatency(ctx, source.Name(), err == nil, time.Since(start).Milliseconds())
	if err != nil {
		zap.S().Warnw("schema rebuild failed; keeping previous schema set",
			"source", source.Name(), "stage", "build", "error", err)
		return nil, err
	}
	EmitTableCount(ctx, source.Name(), len(set.tables))
	zap.S().Infow("schema set published",
		"source", source.Name(),
		"generation", set.Generation().String(),
		"tables", len(set.tables),
		"duration", time.Since(start))
	return set, nil
}

// Load builds and publishes a schema set from already loaded configuration.
func (r *SchemaResolver) Load(raw tca.RawTCA) (*SchemaSet, error) {
	set, err := r.publish(raw)
	if err != nil {
		return nil, err
	}
	zap.S().Infow("schema set published", "generation", set.Generation().String(), "tables", len(set.tables))
	return set, nil
}

func (r *SchemaResolver) publish(raw tca.RawTCA) (*SchemaSet, error) {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	set, err := r.factory.Build(raw)
	if err != nil {
		return nil, err
	}
	r.current.Store(set)
	return set, nil
}

// Snapshot pins the published set, so a caller resolving several schemas
// sees one generation. Before the first build it returns the resolver itself.
func (r *SchemaResolver) Snapshot() tca.SchemaResolver {
	if set := r.current.Load(); set != nil {
		return set
	}
	return r
}

type schemaSnapshotter interface {
	Snapshot() tca.SchemaResolver
}

// pinSchemas resolves every lookup of one operation against a single schema
// set when schemas can provide one.
func pinSchemas(schemas tca.SchemaResolver) tca.SchemaResolver {
	if s, ok := schemas.(schemaSnapshotter); ok {
		return s.Snapshot()
	}
	return schemas
}

// Current returns the published set, or nil before the first build.
func (r *SchemaResolver) Current() *SchemaSet {
	return r.current.Load()
}

func (r *SchemaResolver) Has(table string) bool {
	set := r.current.Load()
	return set != nil && set.Has(table)
}

func (r *SchemaResolver) Get(name string) (*tca.Schema, error) {
	set := r.current.Load()
	if set == nil {
		return nil, tca.NewTCAError(tca.ErrorTypePrecondition, tca.ErrCodeSchemaSetNotBuilt,
			"no schema set has been built yet").WithTable(name)
	}
	return set.Get(name)
}

func (r *SchemaResolver) Tables() []string {
	set := r.current.Load()
	if set == nil {
		return nil
	}
	return set.Tables()
}

// Generation returns uuid.Nil before the first build.
func (r *SchemaResolver) Generation() uuid.UUID {
	set := r.current.Load()
	if set == nil {
		return uuid.Nil
	}
	return set.Generation()
}
