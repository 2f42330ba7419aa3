package tca

import (
	"fmt"
	"strings"
)

// FieldKind is the type tag of a column, as configured in columns.<name>.config.type.
type FieldKind string

const (
	FieldKindInput             FieldKind = "input"
	FieldKindText              FieldKind = "text"
	FieldKindCheck             FieldKind = "check"
	FieldKindRadio             FieldKind = "radio"
	FieldKindSelect            FieldKind = "select"
	FieldKindGroup             FieldKind = "group"
	FieldKindInline            FieldKind = "inline"
	FieldKindFile              FieldKind = "file"
	FieldKindFolder            FieldKind = "folder"
	FieldKindCategory          FieldKind = "category"
	FieldKindSlug              FieldKind = "slug"
	FieldKindDateTime          FieldKind = "datetime"
	FieldKindNumber            FieldKind = "number"
	FieldKindEmail             FieldKind = "email"
	FieldKindLink              FieldKind = "link"
	FieldKindPassword          FieldKind = "password"
	FieldKindColor             FieldKind = "color"
	FieldKindJSON              FieldKind = "json"
	FieldKindUUID              FieldKind = "uuid"
	FieldKindFlex              FieldKind = "flex"
	FieldKindLanguage          FieldKind = "language"
	FieldKindPassthrough       FieldKind = "passthrough"
	FieldKindNone              FieldKind = "none"
	FieldKindUser              FieldKind = "user"
	FieldKindImageManipulation FieldKind = "imageManipulation"
	FieldKindSystemInternal    FieldKind = "system"
)

// FieldType is one resolved column. Every column is exactly one of the variants below.
type FieldType interface {
	Name() string
	Type() FieldKind
	Label() string
	IsSearchable() bool
	IsNullable() bool
	HasDefaultValue() bool
	DefaultValue() any
	// Configuration returns a copy of columns.<name>.config.
	Configuration() map[string]any
	isFieldType()
}

// RelationalFieldType is implemented by the variants that reference other tables.
type RelationalFieldType interface {
	FieldType
	Relations() []ActiveRelation
}

type fieldBase struct {
	name   string
	label  string
	config map[string]any
}

func (f fieldBase) Name() string  { return f.name }
func (f fieldBase) Label() string { return f.label }

func (f fieldBase) IsSearchable() bool {
	v, ok := f.config["searchable"]
	if !ok {
		return true
	}
	return Truthy(v)
}

func (f fieldBase) IsNullable() bool {
	if Truthy(f.config["nullable"]) {
		return true
	}
	for _, rule := range strings.Split(StringOf(f.config["eval"]), ",") {
		if strings.TrimSpace(rule) == "null" {
			return true
		}
	}
	return false
}

func (f fieldBase) HasDefaultValue() bool {
	_, ok := f.config["default"]
	return ok
}

func (f fieldBase) DefaultValue() any {
	return f.config["default"]
}

func (f fieldBase) Configuration() map[string]any {
	return copyMap(f.config)
}

func (fieldBase) isFieldType() {}

type relationalBase struct {
	relations []ActiveRelation
}

func (r relationalBase) Relations() []ActiveRelation {
	if len(r.relations) == 0 {
		return nil
	}
	relations := make([]ActiveRelation, len(r.relations))
	copy(relations, r.relations)
	return relations
}

type InputFieldType struct{ fieldBase }

func (InputFieldType) Type() FieldKind { return FieldKindInput }

type TextFieldType struct{ fieldBase }

func (TextFieldType) Type() FieldKind { return FieldKindText }

// CheckboxFieldType is a single flag or a bitmask of several items.
type CheckboxFieldType struct{ fieldBase }

func (CheckboxFieldType) Type() FieldKind { return FieldKindCheck }

// IsSingleCheckbox reports whether the value is one flag rather than a bitmask.
func (f CheckboxFieldType) IsSingleCheckbox() bool {
	items, _ := f.config["items"].([]any)
	return len(items) <= 1
}

type RadioFieldType struct{ fieldBase }

func (RadioFieldType) Type() FieldKind { return FieldKindRadio }

// SelectRelationFieldType is a select box, optionally backed by foreign_table.
type SelectRelationFieldType struct {
	fieldBase
	relationalBase
}

func (SelectRelationFieldType) Type() FieldKind { return FieldKindSelect }

// IsMultiple reports whether the field stores a comma list.
func (f SelectRelationFieldType) IsMultiple() bool {
	if max, ok := IntValue(f.config["maxitems"]); ok && max > 1 {
		return true
	}
	switch StringOf(f.config["renderType"]) {
	case "selectMultipleSideBySide", "selectCheckBox", "selectTree":
		return true
	}
	return Truthy(f.config["multiple"])
}

// ForeignTable returns foreign_table or an empty string for static selects.
func (f SelectRelationFieldType) ForeignTable() string {
	return StringOf(f.config["foreign_table"])
}

// GroupFieldType references records of the tables listed in allowed.
type GroupFieldType struct {
	fieldBase
	relationalBase
}

func (GroupFieldType) Type() FieldKind { return FieldKindGroup }

// InlineFieldType embeds child records. It is never searchable, nullable, or defaulted.
type InlineFieldType struct {
	fieldBase
	relationalBase
}

func (InlineFieldType) Type() FieldKind       { return FieldKindInline }
func (InlineFieldType) IsSearchable() bool    { return false }
func (InlineFieldType) IsNullable() bool      { return false }
func (InlineFieldType) HasDefaultValue() bool { return false }
func (InlineFieldType) DefaultValue() any     { return nil }

type FileFieldType struct {
	fieldBase
	relationalBase
}

func (FileFieldType) Type() FieldKind { return FieldKindFile }

type FolderFieldType struct{ fieldBase }

func (FolderFieldType) Type() FieldKind { return FieldKindFolder }

type CategoryFieldType struct {
	fieldBase
	relationalBase
}

func (CategoryFieldType) Type() FieldKind { return FieldKindCategory }

type SlugFieldType struct{ fieldBase }

func (SlugFieldType) Type() FieldKind { return FieldKindSlug }

// DateTimeFieldType stores either an epoch integer or a native date/datetime column.
type DateTimeFieldType struct{ fieldBase }

func (DateTimeFieldType) Type() FieldKind { return FieldKindDateTime }

// DBType returns "date", "datetime", "time" for native columns and "" for epoch integers.
func (f DateTimeFieldType) DBType() string {
	return StringOf(f.config["dbType"])
}

// Format returns the configured format or the legacy eval rule.
func (f DateTimeFieldType) Format() string {
	if format := StringOf(f.config["format"]); format != "" {
		return format
	}
	for _, rule := range strings.Split(StringOf(f.config["eval"]), ",") {
		switch rule = strings.TrimSpace(rule); rule {
		case "date", "datetime", "time", "timesec":
			return rule
		}
	}
	return "datetime"
}

type NumberFieldType struct{ fieldBase }

func (NumberFieldType) Type() FieldKind { return FieldKindNumber }

// IsDecimal reports whether values are floating point.
func (f NumberFieldType) IsDecimal() bool {
	return StringOf(f.config["format"]) == "decimal"
}

type EmailFieldType struct{ fieldBase }

func (EmailFieldType) Type() FieldKind { return FieldKindEmail }

type LinkFieldType struct{ fieldBase }

func (LinkFieldType) Type() FieldKind { return FieldKindLink }

type PasswordFieldType struct{ fieldBase }

func (PasswordFieldType) Type() FieldKind     { return FieldKindPassword }
func (PasswordFieldType) IsSearchable() bool { return false }

type ColorFieldType struct{ fieldBase }

func (ColorFieldType) Type() FieldKind { return FieldKindColor }

type JSONFieldType struct{ fieldBase }

func (JSONFieldType) Type() FieldKind { return FieldKindJSON }

type UUIDFieldType struct{ fieldBase }

func (UUIDFieldType) Type() FieldKind { return FieldKindUUID }

type FlexFormFieldType struct{ fieldBase }

func (FlexFormFieldType) Type() FieldKind { return FieldKindFlex }

type LanguageFieldType struct{ fieldBase }

func (LanguageFieldType) Type() FieldKind { return FieldKindLanguage }

type PassthroughFieldType struct{ fieldBase }

func (PassthroughFieldType) Type() FieldKind { return FieldKindPassthrough }

type NoneFieldType struct{ fieldBase }

func (NoneFieldType) Type() FieldKind { return FieldKindNone }

type UserFieldType struct{ fieldBase }

func (UserFieldType) Type() FieldKind { return FieldKindUser }

type ImageManipulationFieldType struct{ fieldBase }

func (ImageManipulationFieldType) Type() FieldKind { return FieldKindImageManipulation }

// SystemInternalFieldType stands in for ctrl-managed columns that columns does not declare.
type SystemInternalFieldType struct{ fieldBase }

func (SystemInternalFieldType) Type() FieldKind     { return FieldKindSystemInternal }
func (SystemInternalFieldType) IsSearchable() bool { return false }

// NewSystemInternalFieldType creates the placeholder of a ctrl-managed column.
func NewSystemInternalFieldType(name string) SystemInternalFieldType {
	return SystemInternalFieldType{fieldBase{name: name, config: map[string]any{"type": string(FieldKindSystemInternal)}}}
}

// NewFieldType resolves one entry of columns into its variant.
func NewFieldType(table, name string, column map[string]any) (FieldType, error) {
	config := mapValue(column, "config")
	if config == nil {
		return nil, &TCAError{
			Type:    ErrorTypeConfiguration,
			Code:    ErrCodeInvalidTCA,
			Message: "column has no config section",
			Table:   table,
			Field:   name,
		}
	}
	config = copyMap(config)
	base := fieldBase{name: name, label: StringOf(column["label"]), config: config}

	kind := FieldKind(stringValue(config, "type"))
	switch kind {
	case FieldKindInput:
		if isLegacyDateTime(config) {
			return DateTimeFieldType{base}, nil
		}
		return InputFieldType{base}, nil
	case FieldKindText:
		return TextFieldType{base}, nil
	case FieldKindCheck:
		return CheckboxFieldType{base}, nil
	case FieldKindRadio:
		return RadioFieldType{base}, nil
	case FieldKindSelect:
		return SelectRelationFieldType{base, relationalBase{selectRelations(table, name, config)}}, nil
	case FieldKindGroup:
		return GroupFieldType{base, relationalBase{groupRelations(table, name, config)}}, nil
	case FieldKindInline:
		return InlineFieldType{base, relationalBase{inlineRelations(table, name, config, "")}}, nil
	case FieldKindFile:
		return FileFieldType{base, relationalBase{inlineRelations(table, name, config, "sys_file_reference")}}, nil
	case FieldKindFolder:
		return FolderFieldType{base}, nil
	case FieldKindCategory:
		return CategoryFieldType{base, relationalBase{categoryRelations(table, name, config)}}, nil
	case FieldKindSlug:
		return SlugFieldType{base}, nil
	case FieldKindDateTime:
		return DateTimeFieldType{base}, nil
	case FieldKindNumber:
		return NumberFieldType{base}, nil
	case FieldKindEmail:
		return EmailFieldType{base}, nil
	case FieldKindLink:
		return LinkFieldType{base}, nil
	case FieldKindPassword:
		return PasswordFieldType{base}, nil
	case FieldKindColor:
		return ColorFieldType{base}, nil
	case FieldKindJSON:
		return JSONFieldType{base}, nil
	case FieldKindUUID:
		return UUIDFieldType{base}, nil
	case FieldKindFlex:
		return FlexFormFieldType{base}, nil
	case FieldKindLanguage:
		return LanguageFieldType{base}, nil
	case FieldKindPassthrough:
		return PassthroughFieldType{base}, nil
	case FieldKindNone:
		return NoneFieldType{base}, nil
	case FieldKindUser:
		return UserFieldType{base}, nil
	case FieldKindImageManipulation:
		return ImageManipulationFieldType{base}, nil
	}
	return nil, &TCAError{
		Type:    ErrorTypeConfiguration,
		Code:    ErrCodeUnknownFieldType,
		Message: fmt.Sprintf("unknown field type %q", kind),
		Table:   table,
		Field:   name,
	}
}

func isLegacyDateTime(config map[string]any) bool {
	if stringValue(config, "renderType") == "inputDateTime" {
		return true
	}
	for _, rule := range strings.Split(StringOf(config["eval"]), ",") {
		switch strings.TrimSpace(rule) {
		case "date", "datetime", "time", "timesec":
			return true
		}
	}
	return false
}

func relationshipFromConfig(config map[string]any, fallback RelationshipType) RelationshipType {
	switch RelationshipType(stringValue(config, "relationship")) {
	case RelationshipOneToOne:
		return RelationshipOneToOne
	case RelationshipOneToMany:
		return RelationshipOneToMany
	case RelationshipManyToOne:
		return RelationshipManyToOne
	case RelationshipManyToMany:
		return RelationshipManyToMany
	}
	if stringValue(config, "MM") != "" {
		return RelationshipManyToMany
	}
	if max, ok := IntValue(config["maxitems"]); ok && max == 1 {
		if fallback == RelationshipOneToMany {
			return RelationshipOneToOne
		}
		return RelationshipManyToOne
	}
	return fallback
}

func selectRelations(table, name string, config map[string]any) []ActiveRelation {
	foreignTable := stringValue(config, "foreign_table")
	if foreignTable == "" {
		return nil
	}
	fallback := RelationshipList
	if stringValue(config, "renderType") == "selectSingle" && !Truthy(config["multiple"]) {
		fallback = RelationshipManyToOne
	}
	return []ActiveRelation{{
		FromTable: table,
		FromField: name,
		ToTable:   foreignTable,
		MMTable:   stringValue(config, "MM"),
		Type:      relationshipFromConfig(config, fallback),
	}}
}

func groupRelations(table, name string, config map[string]any) []ActiveRelation {
	var relations []ActiveRelation
	relType := relationshipFromConfig(config, RelationshipList)
	for _, allowed := range strings.Split(stringValue(config, "allowed"), ",") {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" || allowed == "*" {
			continue
		}
		relations = append(relations, ActiveRelation{
			FromTable: table,
			FromField: name,
			ToTable:   allowed,
			MMTable:   stringValue(config, "MM"),
			Type:      relType,
		})
	}
	return relations
}

func inlineRelations(table, name string, config map[string]any, defaultForeignTable string) []ActiveRelation {
	foreignTable := stringValue(config, "foreign_table")
	if foreignTable == "" {
		foreignTable = defaultForeignTable
	}
	if foreignTable == "" {
		return nil
	}
	foreignField := stringValue(config, "foreign_field")
	if foreignField == "" && defaultForeignTable == "sys_file_reference" {
		foreignField = "uid_foreign"
	}
	return []ActiveRelation{{
		FromTable: table,
		FromField: name,
		ToTable:   foreignTable,
		ToField:   foreignField,
		MMTable:   stringValue(config, "MM"),
		Type:      relationshipFromConfig(config, RelationshipOneToMany),
	}}
}

func categoryRelations(table, name string, config map[string]any) []ActiveRelation {
	foreignTable := stringValue(config, "foreign_table")
	if foreignTable == "" {
		foreignTable = "sys_category"
	}
	mm := stringValue(config, "MM")
	relType := relationshipFromConfig(config, RelationshipManyToMany)
	if mm == "" && relType == RelationshipManyToMany {
		mm = "sys_category_record_mm"
	}
	return []ActiveRelation{{
		FromTable: table,
		FromField: name,
		ToTable:   foreignTable,
		MMTable:   mm,
		Type:      relType,
	}}
}
