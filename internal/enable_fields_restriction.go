package internal

import (
	"strconv"

	"github.com/lychee-technology/tca"
)

// EnableFieldsRestriction hides records by their disabled flag, start and end
// time and frontend user groups. Root level placement is left to page tree
// restrictions. A NULL restriction column reads as its default and never hides
// a record.
type EnableFieldsRestriction struct {
	schemas tca.SchemaResolver
}

var _ tca.RestrictionBuilder = (*EnableFieldsRestriction)(nil)

func NewEnableFieldsRestriction(schemas tca.SchemaResolver) *EnableFieldsRestriction {
	return &EnableFieldsRestriction{schemas: schemas}
}

func (r *EnableFieldsRestriction) BuildExpression(queriedTables tca.QueriedTables, eb tca.ExpressionBuilder, tc *tca.Context) (*tca.CompositeExpression, error) {
	schemas := pinSchemas(r.schemas)
	constraints := eb.And()
	for _, alias := range sortedKeys(queriedTables) {
		table := queriedTables[alias]
		if !schemas.Has(table) {
			continue
		}
		schema, err := schemas.Get(table)
		if err != nil {
			return nil, err
		}
		tableConstraints, err := r.buildTable(schema, alias, eb, tc)
		if err != nil {
			return nil, err
		}
		constraints = constraints.With(tableConstraints)
	}
	return constraints, nil
}

func (r *EnableFieldsRestriction) buildTable(schema *tca.Schema, alias string, eb tca.ExpressionBuilder, tc *tca.Context) (*tca.CompositeExpression, error) {
	table := schema.Table()
	constraints := eb.And()
	column := func(c tca.Capability) (tca.Column, bool) {
		if !schema.HasCapability(c) {
			return tca.Column{}, false
		}
		field, err := schema.CapabilityFieldName(c)
		if err != nil {
			return tca.Column{}, false
		}
		return tca.Column{Alias: alias, Field: field}, true
	}

	if col, ok := column(tca.CapabilityRestrictionDisabledField); ok && !includesHidden(tc, table) {
		constraints = constraints.With(eb.Or(eb.IsNull(col), eb.Eq(col, 0)))
	}
	if !includesScheduled(tc) {
		if col, ok := column(tca.CapabilityRestrictionStartTime); ok {
			if !tc.HasAccessTime() {
				return nil, tca.NewAccessTimeNotSetError(table).WithCapability(tca.CapabilityRestrictionStartTime)
			}
			constraints = constraints.With(eb.Or(
				eb.IsNull(col),
				eb.Lte(col, tc.AccessTimestamp()),
			))
		}
		if col, ok := column(tca.CapabilityRestrictionEndTime); ok {
			if !tc.HasAccessTime() {
				return nil, tca.NewAccessTimeNotSetError(table).WithCapability(tca.CapabilityRestrictionEndTime)
			}
			constraints = constraints.With(eb.Or(
				eb.IsNull(col),
				eb.Eq(col, 0),
				eb.Gt(col, tc.AccessTimestamp()),
			))
		}
	}
	if col, ok := column(tca.CapabilityRestrictionUserGroup); ok {
		constraints = constraints.With(userGroupConstraint(col, eb, tc.GroupIDs()))
	}
	return constraints, nil
}

func userGroupConstraint(col tca.Column, eb tca.ExpressionBuilder, groupIDs []int) *tca.CompositeExpression {
	parts := []tca.Expression{
		eb.IsNull(col),
		eb.Eq(col, ""),
		eb.Eq(col, "0"),
	}
	for _, id := range groupIDs {
		parts = append(parts, eb.InSet(col, strconv.Itoa(id)))
	}
	return eb.Or(parts...)
}

func includesHidden(tc *tca.Context, table string) bool {
	return tc != nil && tc.Visibility.IncludesHidden(table)
}

// includesScheduled lifts the start and end time rules.
func includesScheduled(tc *tca.Context) bool {
	return tc != nil && tc.Visibility.IncludeScheduledRecords
}
