package internal

import "github.com/lychee-technology/tca"

// DeletedRestriction hides soft deleted records unless the caller asked for them.
type DeletedRestriction struct {
	schemas tca.SchemaResolver
}

var _ tca.RestrictionBuilder = (*DeletedRestriction)(nil)

func NewDeletedRestriction(schemas tca.SchemaResolver) *DeletedRestriction {
	return &DeletedRestriction{schemas: schemas}
}

func (r *DeletedRestriction) BuildExpression(queriedTables tca.QueriedTables, eb tca.ExpressionBuilder, tc *tca.Context) (*tca.CompositeExpression, error) {
	constraints := eb.And()
	if tc != nil && tc.Visibility.IncludeDeletedRecords {
		return constraints, nil
	}
	schemas := pinSchemas(r.schemas)
	for _, alias := range sortedKeys(queriedTables) {
		table := queriedTables[alias]
		if !schemas.Has(table) {
			continue
		}
		schema, err := schemas.Get(table)
		if err != nil {
			return nil, err
		}
		if !schema.HasCapability(tca.CapabilitySoftDelete) {
			continue
		}
		field, err := schema.CapabilityFieldName(tca.CapabilitySoftDelete)
		if err != nil {
			return nil, err
		}
		constraints = constraints.With(eb.Eq(tca.Column{Alias: alias, Field: field}, 0))
	}
	return constraints, nil
}
