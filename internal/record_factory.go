package internal

import (
	"context"
	"fmt"

	"github.com/lychee-technology/tca"
)

// recordFactory materializes fetched rows against the published schemas.
type recordFactory struct {
	schemas     tca.SchemaResolver
	transformer tca.FieldTransformer
}

var _ tca.RecordFactory = (*recordFactory)(nil)

// NewRecordFactory uses the default field transformer when transformer is nil.
func NewRecordFactory(schemas tca.SchemaResolver, transformer tca.FieldTransformer) tca.RecordFactory {
	if transformer == nil {
		transformer = NewFieldTransformer()
	}
	return &recordFactory{schemas: schemas, transformer: transformer}
}

// CreateRawRecord strips computed properties and resolves the full type. A
// table with a record type field requires that field in the row.
func (f *recordFactory) CreateRawRecord(table string, row tca.Row) (*tca.RawRecord, error) {
	raw, _, err := createRawRecord(pinSchemas(f.schemas), table, row)
	return raw, err
}

func createRawRecord(schemas tca.SchemaResolver, table string, row tca.Row) (*tca.RawRecord, *tca.Schema, error) {
	if !schemas.Has(table) {
		return nil, nil, tca.NewInvalidArgumentError(table, "table is not configured")
	}
	schema, err := schemas.Get(table)
	if err != nil {
		return nil, nil, err
	}

	properties := row.Copy()
	computed := tca.SplitComputedProperties(properties)

	fullType := table
	if info := schema.SubSchemaTypeInformation(); info != nil {
		value, ok := properties[info.FieldName]
		if !ok || value == nil {
			return nil, nil, tca.NewInvalidArgumentError(table,
				fmt.Sprintf("row lacks the record type field %q", info.FieldName)).WithField(info.FieldName)
		}
		fullType = table + "." + tca.StringOf(value)
	}

	uid, _ := tca.IntValue(properties["uid"])
	pid, _ := tca.IntValue(properties["pid"])
	return tca.NewRawRecord(uid, pid, properties, computed, fullType), schema, nil
}

// CreateRecordFromDatabaseRow keeps business values as fetched.
func (f *recordFactory) CreateRecordFromDatabaseRow(table string, row tca.Row) (*tca.Record, error) {
	raw, schema, err := f.prepare(table, row)
	if err != nil {
		return nil, err
	}
	system, remaining := ExtractSystemInformation(schema, raw, raw.ToArray())
	properties := make(map[string]any, len(remaining))
	for name, value := range remaining {
		if schema.HasField(name) {
			properties[name] = value
		}
	}
	return tca.NewRecord(raw, properties, &system), nil
}

// CreateResolvedRecordFromDatabaseRow passes every declared business value
// through the field transformer. Undeclared columns are dropped.
func (f *recordFactory) CreateResolvedRecordFromDatabaseRow(ctx context.Context, table string, row tca.Row, tc *tca.Context) (*tca.Record, error) {
	raw, schema, err := f.prepare(table, row)
	if err != nil {
		return nil, err
	}
	system, remaining := ExtractSystemInformation(schema, raw, raw.ToArray())
	properties := make(map[string]any, len(remaining))
	for name, value := range remaining {
		field, err := schema.Field(name)
		if err != nil {
			continue
		}
		resolved, err := f.transformer.Transform(ctx, field, raw, value, tc)
		if err != nil {
			return nil, err
		}
		properties[name] = resolved
	}
	return tca.NewRecord(raw, properties, &system), nil
}

// prepare builds the raw record and picks the schema of its record type,
// falling back to the table schema for types without their own field set.
func (f *recordFactory) prepare(table string, row tca.Row) (*tca.RawRecord, *tca.Schema, error) {
	raw, schema, err := createRawRecord(pinSchemas(f.schemas), table, row)
	if err != nil {
		return nil, nil, err
	}
	if recordType := raw.RecordType(); recordType != "" && schema.HasSubSchema(recordType) {
		sub, err := schema.SubSchema(recordType)
		if err != nil {
			return nil, nil, err
		}
		schema = sub
	}
	return raw, schema, nil
}
