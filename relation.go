package tca

// RelationshipType is the cardinality of a relation between two tables.
type RelationshipType string

const (
	RelationshipOneToOne   RelationshipType = "oneToOne"
	RelationshipOneToMany  RelationshipType = "oneToMany"
	RelationshipManyToOne  RelationshipType = "manyToOne"
	RelationshipManyToMany RelationshipType = "manyToMany"
	RelationshipList       RelationshipType = "list"
)

// IsToOne reports whether the owning side references at most one record.
func (t RelationshipType) IsToOne() bool {
	return t == RelationshipOneToOne || t == RelationshipManyToOne
}

// ActiveRelation is an outbound reference declared by a field of FromTable.
type ActiveRelation struct {
	FromTable string           `json:"fromTable"`
	FromField string           `json:"fromField"`
	ToTable   string           `json:"toTable"`
	ToField   string           `json:"toField,omitempty"`
	MMTable   string           `json:"mmTable,omitempty"`
	Type      RelationshipType `json:"type"`
}

// PassiveRelation is the inbound side of an ActiveRelation, recorded on the target schema.
// From* names the referencing table and field, To* the target.
type PassiveRelation struct {
	FromTable string           `json:"fromTable"`
	FromField string           `json:"fromField"`
	ToTable   string           `json:"toTable"`
	ToField   string           `json:"toField,omitempty"`
	Type      RelationshipType `json:"type"`
}

// RelationReference points at one related record, as produced from a relation field value.
type RelationReference struct {
	Table string `json:"table"`
	UID   int64  `json:"uid"`
}
