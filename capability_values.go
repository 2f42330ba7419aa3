package tca

import "fmt"

// CapabilityValue is the resolved configuration of a present capability.
type CapabilityValue interface {
	Kind() CapabilityValueKind
	isCapabilityValue()
}

// SystemInternalFieldCapability points at a column that is managed by the system and
// usually not declared in columns.
type SystemInternalFieldCapability struct {
	FieldName string
}

func (SystemInternalFieldCapability) Kind() CapabilityValueKind { return ValueKindSystemInternalField }
func (SystemInternalFieldCapability) isCapabilityValue()         {}

// FieldCapability points at a declared column.
type FieldCapability struct {
	Field FieldType
}

func (FieldCapability) Kind() CapabilityValueKind { return ValueKindField }
func (FieldCapability) isCapabilityValue()         {}

// FieldName returns the backing column name.
func (c FieldCapability) FieldName() string {
	return c.Field.Name()
}

// ScalarCapability carries a literal from ctrl.
type ScalarCapability struct {
	Value any
}

func (ScalarCapability) Kind() CapabilityValueKind { return ValueKindScalar }
func (ScalarCapability) isCapabilityValue()         {}

// Bool returns the scalar as a flag.
func (c ScalarCapability) Bool() bool {
	return Truthy(c.Value)
}

// String returns the scalar as text.
func (c ScalarCapability) String() string {
	return StringOf(c.Value)
}

// LabelCapability describes how a record title is computed.
type LabelCapability struct {
	PrimaryField              string
	AlternativeFields         []string
	AlwaysPrependAlternatives bool
	Generator                 string
	GeneratorOptions          map[string]any
	Formatter                 string
}

func (LabelCapability) Kind() CapabilityValueKind { return ValueKindLabel }
func (LabelCapability) isCapabilityValue()         {}

// HasAlternativeFields reports whether label_alt is configured.
func (c LabelCapability) HasAlternativeFields() bool {
	return len(c.AlternativeFields) > 0
}

// AllFields returns the primary label field followed by the alternatives.
func (c LabelCapability) AllFields() []string {
	fields := make([]string, 0, len(c.AlternativeFields)+1)
	fields = append(fields, c.PrimaryField)
	return append(fields, c.AlternativeFields...)
}

// LanguageAwareSchemaCapability names the translation columns of a table.
type LanguageAwareSchemaCapability struct {
	LanguageField                 string
	TranslationOriginPointerField string
	TranslationSourceField        string
	DiffSourceField               string
}

func (LanguageAwareSchemaCapability) Kind() CapabilityValueKind { return ValueKindLanguage }
func (LanguageAwareSchemaCapability) isCapabilityValue()         {}

// HasTranslationSourceField reports whether translationSource is configured.
func (c LanguageAwareSchemaCapability) HasTranslationSourceField() bool {
	return c.TranslationSourceField != ""
}

// HasDiffSourceField reports whether transOrigDiffSourceField is configured.
func (c LanguageAwareSchemaCapability) HasDiffSourceField() bool {
	return c.DiffSourceField != ""
}

// Fields returns every configured language column.
func (c LanguageAwareSchemaCapability) Fields() []string {
	fields := []string{c.LanguageField, c.TranslationOriginPointerField}
	if c.HasTranslationSourceField() {
		fields = append(fields, c.TranslationSourceField)
	}
	if c.HasDiffSourceField() {
		fields = append(fields, c.DiffSourceField)
	}
	return fields
}

// RootLevelType is ctrl.rootLevel.
type RootLevelType int

const (
	RootLevelPagesOnly  RootLevelType = 0
	RootLevelRootOnly   RootLevelType = 1
	RootLevelEverywhere RootLevelType = -1
)

// RootLevelCapability is always present: tables without rootLevel default to pages only.
type RootLevelCapability struct {
	Level                      RootLevelType
	IgnoreRootLevelRestriction bool
}

func (RootLevelCapability) Kind() CapabilityValueKind { return ValueKindRootLevel }
func (RootLevelCapability) isCapabilityValue()         {}

// CanExistOnRootLevel reports whether records may live on pid 0.
func (c RootLevelCapability) CanExistOnRootLevel() bool {
	return c.Level == RootLevelRootOnly || c.Level == RootLevelEverywhere
}

// CanExistOnPages reports whether records may live on regular pages.
func (c RootLevelCapability) CanExistOnPages() bool {
	return c.Level == RootLevelPagesOnly || c.Level == RootLevelEverywhere
}

// CanExistOn checks a storage pid against the root level mode.
func (c RootLevelCapability) CanExistOn(pid int64) bool {
	if pid == 0 {
		return c.CanExistOnRootLevel() || c.IgnoreRootLevelRestriction
	}
	return c.CanExistOnPages()
}

func (k CapabilityValueKind) mismatch(table string, c Capability) error {
	return &TCAError{
		Type:       ErrorTypePrecondition,
		Code:       ErrCodeCapabilityTypeMismatch,
		Message:    fmt.Sprintf("capability resolves to %s, not %s", c.ValueKind(), k),
		Table:      table,
		Capability: c.String(),
	}
}
