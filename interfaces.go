package tca

import (
	"context"

	"github.com/google/uuid"
)

// RawTCA is the table configuration keyed by table name. Each entry has the
// sections ctrl, columns, types and palettes.
type RawTCA map[string]map[string]any

// QueriedTables maps query aliases to table names.
type QueriedTables map[string]string

// SchemaResolver answers schema lookups against the currently published schema set.
type SchemaResolver interface {
	Has(table string) bool
	// Get resolves a table, or a sub-schema when name is "table.type".
	Get(name string) (*Schema, error)
	Tables() []string
	Generation() uuid.UUID
}

// TCASource loads the complete table configuration.
type TCASource interface {
	Load(ctx context.Context) (RawTCA, error)
	Name() string
}

// FieldTransformer resolves a business value of a declared field.
type FieldTransformer interface {
	Transform(ctx context.Context, field FieldType, raw *RawRecord, value any, tc *Context) (any, error)
}

// RecordFactory materializes fetched rows.
type RecordFactory interface {
	CreateRawRecord(table string, row Row) (*RawRecord, error)
	CreateRecordFromDatabaseRow(table string, row Row) (*Record, error)
	CreateResolvedRecordFromDatabaseRow(ctx context.Context, table string, row Row, tc *Context) (*Record, error)
}

// RestrictionBuilder emits the predicate that hides records from a caller.
type RestrictionBuilder interface {
	BuildExpression(queriedTables QueriedTables, eb ExpressionBuilder, tc *Context) (*CompositeExpression, error)
}

// AccessVoter evaluates restrictions against an already fetched row.
type AccessVoter interface {
	AccessGranted(ctx context.Context, table string, record Row, tc *Context) (bool, error)
	GroupAccessGranted(table string, record Row, tc *Context) bool
	AccessGrantedForPageInRootLine(ctx context.Context, page Row, tc *Context) (bool, error)
}

// EventName identifies an event type.
type EventName string

// Event is dispatched to the listeners subscribed to its name.
type Event interface {
	Name() EventName
}

// StoppableEvent stops dispatching once IsPropagationStopped returns true.
type StoppableEvent interface {
	Event
	IsPropagationStopped() bool
}

// EventListener handles one event. An error aborts dispatching.
type EventListener func(ctx context.Context, event Event) error

// EventDispatcher delivers events to subscribed listeners in subscription order.
type EventDispatcher interface {
	Subscribe(name EventName, listener EventListener) (unsubscribe func())
	Dispatch(ctx context.Context, event Event) (Event, error)
}

const EventAccessGranted EventName = "access.granted"

// AccessGrantedEvent is fired before the built-in access checks. A listener
// that sets a verdict decides alone and stops propagation.
type AccessGrantedEvent struct {
	table   string
	record  Row
	context *Context
	verdict *bool
	stopped bool
}

func NewAccessGrantedEvent(table string, record Row, tc *Context) *AccessGrantedEvent {
	return &AccessGrantedEvent{table: table, record: record, context: tc}
}

func (e *AccessGrantedEvent) Name() EventName { return EventAccessGranted }

func (e *AccessGrantedEvent) Table() string { return e.table }

func (e *AccessGrantedEvent) Record() Row { return e.record }

func (e *AccessGrantedEvent) Context() *Context { return e.context }

// UpdateRecord replaces the row the built-in checks will look at.
func (e *AccessGrantedEvent) UpdateRecord(record Row) { e.record = record }

// SetAccessGranted decides the vote and stops propagation.
func (e *AccessGrantedEvent) SetAccessGranted(granted bool) {
	e.verdict = &granted
	e.stopped = true
}

// AccessGranted returns the verdict set by a listener, if any.
func (e *AccessGrantedEvent) AccessGranted() (granted bool, decided bool) {
	if e.verdict == nil {
		return false, false
	}
	return *e.verdict, true
}

func (e *AccessGrantedEvent) IsPropagationStopped() bool { return e.stopped }
