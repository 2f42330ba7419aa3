package tca

import (
	"fmt"
	"sort"
	"strings"
)

// Schema is the resolved configuration of one table, or of one of its sub-types.
// It is immutable after construction.
type Schema struct {
	name         string
	table        string
	fields       *FieldCollection
	config       map[string]any
	capabilities map[Capability]CapabilityValue
	typeInfo     *SubSchemaTypeInformation

	subSchemas       map[string]*Schema
	subSchemaKeys    []string
	passiveRelations []PassiveRelation
}

// SubSchemaTypeInformation describes the discriminator configured in ctrl.type.
type SubSchemaTypeInformation struct {
	// FieldName is the column of this table that holds the record type, or the
	// local relation field for foreign types.
	FieldName string
	// ForeignField and ForeignTable are set for "localField:foreignField" types.
	ForeignField string
	ForeignTable string
}

// IsForeign reports whether the type is read from a related record.
func (i SubSchemaTypeInformation) IsForeign() bool {
	return i.ForeignField != ""
}

type schemaOptions struct {
	subSchemaKeys    []string
	subSchemaFields  map[string]*FieldCollection
	passiveRelations []PassiveRelation
}

// SchemaOption configures NewSchema.
type SchemaOption func(*schemaOptions)

// WithSubSchema attaches the field set of one record type.
func WithSubSchema(key string, fields *FieldCollection) SchemaOption {
	return func(o *schemaOptions) {
		if _, exists := o.subSchemaFields[key]; !exists {
			o.subSchemaKeys = append(o.subSchemaKeys, key)
		}
		o.subSchemaFields[key] = fields
	}
}

// WithPassiveRelations records the inbound relations computed across all tables.
func WithPassiveRelations(relations []PassiveRelation) SchemaOption {
	return func(o *schemaOptions) {
		o.passiveRelations = append(o.passiveRelations, relations...)
	}
}

// NewSchema resolves the capabilities of a table and validates their configuration.
// A capability pointing at an undeclared column or a broken ctrl.type fails here.
func NewSchema(name string, fields *FieldCollection, config map[string]any, opts ...SchemaOption) (*Schema, error) {
	if name == "" {
		return nil, NewTCAError(ErrorTypeConfiguration, ErrCodeInvalidTCA, "table name is empty")
	}
	if fields == nil {
		fields = NewFieldCollection()
	}
	options := &schemaOptions{subSchemaFields: map[string]*FieldCollection{}}
	for _, opt := range opts {
		opt(options)
	}

	ctrl := mapValue(config, "ctrl")
	s := &Schema{
		name:             name,
		table:            name,
		fields:           fields,
		config:           config,
		capabilities:     make(map[Capability]CapabilityValue),
		subSchemas:       make(map[string]*Schema, len(options.subSchemaKeys)),
		passiveRelations: options.passiveRelations,
	}
	for _, c := range AllCapabilities() {
		if !hasCapability(ctrl, c) {
			continue
		}
		value, err := resolveCapability(name, ctrl, fields, c)
		if err != nil {
			return nil, err
		}
		s.capabilities[c] = value
	}

	typeInfo, err := parseTypeInformation(name, stringValue(ctrl, "type"), fields)
	if err != nil {
		return nil, err
	}
	s.typeInfo = typeInfo

	for _, key := range options.subSchemaKeys {
		s.subSchemaKeys = append(s.subSchemaKeys, key)
		s.subSchemas[key] = s.newSubSchema(key, options.subSchemaFields[key])
	}
	return s, nil
}

// newSubSchema derives a record type variant. It shares capabilities, type
// information and passive relations with the parent and only narrows the fields.
func (s *Schema) newSubSchema(key string, fields *FieldCollection) *Schema {
	return &Schema{
		name:             s.table + "." + key,
		table:            s.table,
		fields:           fields,
		config:           s.config,
		capabilities:     s.capabilities,
		typeInfo:         s.typeInfo,
		subSchemas:       map[string]*Schema{},
		passiveRelations: s.passiveRelations,
	}
}

func parseTypeInformation(table, descriptor string, fields *FieldCollection) (*SubSchemaTypeInformation, error) {
	if descriptor == "" {
		return nil, nil
	}
	local, foreign, isForeign := strings.Cut(descriptor, ":")
	if !isForeign {
		return &SubSchemaTypeInformation{FieldName: descriptor}, nil
	}

	field, err := fields.Get(local)
	if err != nil {
		return nil, NewInvalidSchemaTypeError(ErrCodeTypeFieldUndefined, table, local,
			fmt.Sprintf("type field %q is not declared in columns", local)).WithCause(err)
	}
	relational, ok := field.(RelationalFieldType)
	if !ok {
		return nil, NewInvalidSchemaTypeError(ErrCodeTypeFieldNotRelational, table, local,
			fmt.Sprintf("type field %q of kind %s cannot point at a foreign type", local, field.Type()))
	}
	relations := relational.Relations()
	if len(relations) == 0 {
		return nil, NewInvalidSchemaTypeError(ErrCodeTypeFieldNoRelation, table, local,
			fmt.Sprintf("type field %q has no relation to a foreign table", local))
	}
	if relations[0].ToTable == "" {
		return nil, NewInvalidSchemaTypeError(ErrCodeTypeFieldEmptyTarget, table, local,
			fmt.Sprintf("type field %q relates to an empty table name", local))
	}
	return &SubSchemaTypeInformation{
		FieldName:    local,
		ForeignField: foreign,
		ForeignTable: relations[0].ToTable,
	}, nil
}

// Name is the table name, or "table.type" for sub-schemas.
func (s *Schema) Name() string { return s.name }

// Table is the database table the schema describes.
func (s *Schema) Table() string { return s.table }

// IsSubSchema reports whether the schema is a record type variant.
func (s *Schema) IsSubSchema() bool { return s.name != s.table }

func (s *Schema) Fields() *FieldCollection { return s.fields }

func (s *Schema) HasField(name string) bool { return s.fields.Has(name) }

func (s *Schema) Field(name string) (FieldType, error) {
	field, err := s.fields.Get(name)
	if err != nil {
		return nil, NewUndefinedFieldError(s.name, name)
	}
	return field, nil
}

// RawConfiguration returns the configuration the schema was built from.
func (s *Schema) RawConfiguration() map[string]any { return s.config }

// Title returns ctrl.title.
func (s *Schema) Title() string {
	return stringValue(mapValue(s.config, "ctrl"), "title")
}

// HasCapability panics for values outside the capability set.
func (s *Schema) HasCapability(c Capability) bool {
	if c < 0 || c >= capabilityCount {
		panic(fmt.Sprintf("tca: unhandled capability %s", c))
	}
	_, ok := s.capabilities[c]
	return ok
}

// Capabilities lists the present capabilities in declaration order.
func (s *Schema) Capabilities() []Capability {
	present := make([]Capability, 0, len(s.capabilities))
	for _, c := range AllCapabilities() {
		if _, ok := s.capabilities[c]; ok {
			present = append(present, c)
		}
	}
	return present
}

// Capability returns the value object of a present capability.
func (s *Schema) Capability(c Capability) (CapabilityValue, error) {
	if !s.HasCapability(c) {
		return nil, NewCapabilityNotPresentError(s.name, c)
	}
	return s.capabilities[c], nil
}

func capabilityAs[T CapabilityValue](s *Schema, c Capability, kind CapabilityValueKind) (T, error) {
	var zero T
	value, err := s.Capability(c)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, kind.mismatch(s.name, c)
	}
	return typed, nil
}

func (s *Schema) FieldCapability(c Capability) (FieldCapability, error) {
	return capabilityAs[FieldCapability](s, c, ValueKindField)
}

func (s *Schema) SystemInternalFieldCapability(c Capability) (SystemInternalFieldCapability, error) {
	return capabilityAs[SystemInternalFieldCapability](s, c, ValueKindSystemInternalField)
}

func (s *Schema) ScalarCapability(c Capability) (ScalarCapability, error) {
	return capabilityAs[ScalarCapability](s, c, ValueKindScalar)
}

func (s *Schema) LabelCapability() (LabelCapability, error) {
	return capabilityAs[LabelCapability](s, CapabilityLabel, ValueKindLabel)
}

func (s *Schema) LanguageCapability() (LanguageAwareSchemaCapability, error) {
	return capabilityAs[LanguageAwareSchemaCapability](s, CapabilityLanguage, ValueKindLanguage)
}

// RootLevelCapability never fails since the capability is present on every schema.
func (s *Schema) RootLevelCapability() RootLevelCapability {
	value, _ := s.capabilities[CapabilityRestrictionRootLevel].(RootLevelCapability)
	return value
}

// CapabilityFieldName returns the column behind a field-backed capability.
func (s *Schema) CapabilityFieldName(c Capability) (string, error) {
	value, err := s.Capability(c)
	if err != nil {
		return "", err
	}
	switch v := value.(type) {
	case FieldCapability:
		return v.FieldName(), nil
	case SystemInternalFieldCapability:
		return v.FieldName, nil
	}
	return "", ValueKindField.mismatch(s.name, c)
}

// SubSchemaTypeInformation returns nil when ctrl.type is not configured.
// Foreign type descriptors are validated by NewSchema.
func (s *Schema) SubSchemaTypeInformation() *SubSchemaTypeInformation {
	if s.typeInfo == nil {
		return nil
	}
	info := *s.typeInfo
	return &info
}

// SupportsSubSchema reports whether records of the table carry a type discriminator.
func (s *Schema) SupportsSubSchema() bool {
	return s.typeInfo != nil
}

func (s *Schema) HasSubSchema(key string) bool {
	_, ok := s.subSchemas[key]
	return ok
}

// SubSchema returns the variant for a record type.
func (s *Schema) SubSchema(key string) (*Schema, error) {
	sub, ok := s.subSchemas[key]
	if !ok {
		return nil, NewUndefinedSchemaError(s.table + "." + key)
	}
	return sub, nil
}

// SubSchemas returns the variants keyed by record type.
func (s *Schema) SubSchemas() map[string]*Schema {
	result := make(map[string]*Schema, len(s.subSchemas))
	for key, sub := range s.subSchemas {
		result[key] = sub
	}
	return result
}

// SubSchemaKeys returns the record types in configuration order.
func (s *Schema) SubSchemaKeys() []string {
	keys := make([]string, len(s.subSchemaKeys))
	copy(keys, s.subSchemaKeys)
	return keys
}

// ActiveRelations aggregates the outbound relations of every relational field.
func (s *Schema) ActiveRelations() []ActiveRelation {
	var relations []ActiveRelation
	for _, field := range s.fields.All() {
		if relational, ok := field.(RelationalFieldType); ok {
			relations = append(relations, relational.Relations()...)
		}
	}
	return relations
}

func (s *Schema) PassiveRelations() []PassiveRelation {
	relations := make([]PassiveRelation, len(s.passiveRelations))
	copy(relations, s.passiveRelations)
	return relations
}

// SortedCapabilityNames is a stable rendering of Capabilities, used in logs.
func (s *Schema) SortedCapabilityNames() []string {
	names := make([]string, 0, len(s.capabilities))
	for c := range s.capabilities {
		names = append(names, c.String())
	}
	sort.Strings(names)
	return names
}
