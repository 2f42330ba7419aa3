package internal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lychee-technology/tca"
	"go.uber.org/zap"
)

// SchemaSet is one complete, immutable build of every table schema.
type SchemaSet struct {
	generation uuid.UUID
	schemas    map[string]*tca.Schema
	tables     []string
}

var _ tca.SchemaResolver = (*SchemaSet)(nil)

func (s *SchemaSet) Has(table string) bool {
	_, ok := s.schemas[table]
	return ok
}

// Get resolves a table, or the sub-schema of a record type for "table.type".
func (s *SchemaSet) Get(name string) (*tca.Schema, error) {
	if schema, ok := s.schemas[name]; ok {
		return schema, nil
	}
	table, recordType, isSub := strings.Cut(name, ".")
	if !isSub {
		return nil, tca.NewUndefinedSchemaError(name)
	}
	schema, ok := s.schemas[table]
	if !ok {
		return nil, tca.NewUndefinedSchemaError(name)
	}
	return schema.SubSchema(recordType)
}

// Tables returns the table names in sorted order.
func (s *SchemaSet) Tables() []string {
	tables := make([]string, len(s.tables))
	copy(tables, s.tables)
	return tables
}

func (s *SchemaSet) Generation() uuid.UUID { return s.generation }

// SchemaFactory builds schema sets from raw configuration.
type SchemaFactory struct {
	parser *tcaParser
}

func NewSchemaFactory() *SchemaFactory {
	return &SchemaFactory{parser: newTCAParser()}
}

// Build parses every table, then computes the inbound relations across all of
// them before the schemas are finalized.
func (f *SchemaFactory) Build(raw tca.RawTCA) (*SchemaSet, error) {
	names := sortedKeys(raw)

	// Step 1: parse fields and record types of every table
	parsed := make([]*parsedTable, 0, len(names))
	for _, name := range names {
		if strings.Contains(name, ".") {
			return nil, tca.NewTCAError(tca.ErrorTypeConfiguration, tca.ErrCodeInvalidTCA,
				fmt.Sprintf("table name %q must not contain a dot", name)).WithTable(name)
		}
		table, err := f.parser.parseTable(name, raw[name])
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, table)
	}

	// Step 2: mirror active relations onto their targets
	passive := passiveRelations(parsed, raw)

	// Step 3: resolve capabilities and build the schemas
	set := &SchemaSet{
		schemas: make(map[string]*tca.Schema, len(parsed)),
		tables:  names,
	}
	for _, table := range parsed {
		opts := make([]tca.SchemaOption, 0, len(table.subSchemas)+1)
		opts = append(opts, tca.WithPassiveRelations(passive[table.name]))
		for _, sub := range table.subSchemas {
			opts = append(opts, tca.WithSubSchema(sub.key, sub.fields))
		}
		schema, err := tca.NewSchema(table.name, table.fields, table.config, opts...)
		if err != nil {
			return nil, err
		}
		set.schemas[table.name] = schema
		zap.S().Debugw("built schema", "table", table.name,
			"fields", schema.Fields().Len(),
			"subSchemas", len(table.subSchemas),
			"capabilities", schema.SortedCapabilityNames())
	}

	generation, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema set generation: %w", err)
	}
	set.generation = generation
	return set, nil
}

func passiveRelations(parsed []*parsedTable, raw tca.RawTCA) map[string][]tca.PassiveRelation {
	result := make(map[string][]tca.PassiveRelation)
	for _, table := range parsed {
		for _, field := range table.fields.All() {
			relational, ok := field.(tca.RelationalFieldType)
			if !ok {
				continue
			}
			for _, active := range relational.Relations() {
				if _, known := raw[active.ToTable]; !known {
					zap.S().Debugw("relation target is not configured; skipping passive relation",
						"table", active.FromTable, "field", active.FromField, "target", active.ToTable)
					continue
				}
				result[active.ToTable] = append(result[active.ToTable], tca.PassiveRelation{
					FromTable: active.FromTable,
					FromField: active.FromField,
					ToTable:   active.ToTable,
					ToField:   active.ToField,
					Type:      inverseRelationship(active.Type),
				})
			}
		}
	}
	for target := range result {
		relations := result[target]
		sort.SliceStable(relations, func(i, j int) bool {
			if relations[i].FromTable != relations[j].FromTable {
				return relations[i].FromTable < relations[j].FromTable
			}
			return relations[i].FromField < relations[j].FromField
		})
	}
	return result
}

func inverseRelationship(t tca.RelationshipType) tca.RelationshipType {
	switch t {
	case tca.RelationshipOneToMany:
		return tca.RelationshipManyToOne
	case tca.RelationshipManyToOne:
		return tca.RelationshipOneToMany
	}
	return t
}
