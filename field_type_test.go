package tca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFieldType_Variants(t *testing.T) {
	tests := []struct {
		config map[string]any
		want   FieldKind
	}{
		{map[string]any{"type": "input"}, FieldKindInput},
		{map[string]any{"type": "input", "eval": "trim,datetime"}, FieldKindDateTime},
		{map[string]any{"type": "input", "renderType": "inputDateTime"}, FieldKindDateTime},
		{map[string]any{"type": "datetime"}, FieldKindDateTime},
		{map[string]any{"type": "text"}, FieldKindText},
		{map[string]any{"type": "check"}, FieldKindCheck},
		{map[string]any{"type": "radio"}, FieldKindRadio},
		{map[string]any{"type": "select"}, FieldKindSelect},
		{map[string]any{"type": "group", "allowed": "pages"}, FieldKindGroup},
		{map[string]any{"type": "inline", "foreign_table": "tx_child"}, FieldKindInline},
		{map[string]any{"type": "file"}, FieldKindFile},
		{map[string]any{"type": "folder"}, FieldKindFolder},
		{map[string]any{"type": "category"}, FieldKindCategory},
		{map[string]any{"type": "slug"}, FieldKindSlug},
		{map[string]any{"type": "number"}, FieldKindNumber},
		{map[string]any{"type": "email"}, FieldKindEmail},
		{map[string]any{"type": "link"}, FieldKindLink},
		{map[string]any{"type": "password"}, FieldKindPassword},
		{map[string]any{"type": "color"}, FieldKindColor},
		{map[string]any{"type": "json"}, FieldKindJSON},
		{map[string]any{"type": "uuid"}, FieldKindUUID},
		{map[string]any{"type": "flex"}, FieldKindFlex},
		{map[string]any{"type": "language"}, FieldKindLanguage},
		{map[string]any{"type": "passthrough"}, FieldKindPassthrough},
		{map[string]any{"type": "none"}, FieldKindNone},
		{map[string]any{"type": "user"}, FieldKindUser},
		{map[string]any{"type": "imageManipulation"}, FieldKindImageManipulation},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			field, err := NewFieldType("tx_test", "field", map[string]any{"label": "Field", "config": tt.config})
			require.NoError(t, err)
			assert.Equal(t, tt.want, field.Type())
			assert.Equal(t, "field", field.Name())
			assert.Equal(t, "Field", field.Label())
		})
	}
}

func TestNewFieldType_Errors(t *testing.T) {
	_, err := NewFieldType("tx_test", "broken", map[string]any{"label": "no config"})
	require.Error(t, err)
	var tcaErr *TCAError
	require.ErrorAs(t, err, &tcaErr)
	assert.Equal(t, ErrCodeInvalidTCA, tcaErr.Code)

	_, err = NewFieldType("tx_test", "broken", column(map[string]any{"type": "hologram"}))
	require.ErrorAs(t, err, &tcaErr)
	assert.Equal(t, ErrCodeUnknownFieldType, tcaErr.Code)
	assert.Equal(t, "broken", tcaErr.Field)
}

func TestFieldType_Flags(t *testing.T) {
	input, err := NewFieldType("t", "title", column(map[string]any{
		"type":    "input",
		"eval":    "trim,null",
		"default": "untitled",
	}))
	require.NoError(t, err)
	assert.True(t, input.IsSearchable())
	assert.True(t, input.IsNullable())
	assert.True(t, input.HasDefaultValue())
	assert.Equal(t, "untitled", input.DefaultValue())

	hidden, err := NewFieldType("t", "notes", column(map[string]any{"type": "text", "searchable": false}))
	require.NoError(t, err)
	assert.False(t, hidden.IsSearchable())
	assert.False(t, hidden.IsNullable())
	assert.False(t, hidden.HasDefaultValue())

	inline, err := NewFieldType("t", "children", column(map[string]any{
		"type":          "inline",
		"foreign_table": "tx_child",
		"nullable":      true,
		"default":       5,
	}))
	require.NoError(t, err)
	assert.False(t, inline.IsSearchable())
	assert.False(t, inline.IsNullable())
	assert.False(t, inline.HasDefaultValue())
	assert.Nil(t, inline.DefaultValue())

	config := input.Configuration()
	config["type"] = "changed"
	assert.Equal(t, "input", input.Configuration()["type"])
}

func TestFieldType_Relations(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		want   []ActiveRelation
	}{
		{
			name:   "static select",
			config: map[string]any{"type": "select", "items": []any{}},
			want:   nil,
		},
		{
			name:   "single select",
			config: map[string]any{"type": "select", "renderType": "selectSingle", "foreign_table": "pages"},
			want:   []ActiveRelation{{FromTable: "tx_a", FromField: "f", ToTable: "pages", Type: RelationshipManyToOne}},
		},
		{
			name:   "mm select",
			config: map[string]any{"type": "select", "foreign_table": "tx_tag", "MM": "tx_a_tag_mm"},
			want:   []ActiveRelation{{FromTable: "tx_a", FromField: "f", ToTable: "tx_tag", MMTable: "tx_a_tag_mm", Type: RelationshipManyToMany}},
		},
		{
			name:   "group with wildcard",
			config: map[string]any{"type": "group", "allowed": "pages, tt_content,*"},
			want: []ActiveRelation{
				{FromTable: "tx_a", FromField: "f", ToTable: "pages", Type: RelationshipList},
				{FromTable: "tx_a", FromField: "f", ToTable: "tt_content", Type: RelationshipList},
			},
		},
		{
			name:   "inline",
			config: map[string]any{"type": "inline", "foreign_table": "tx_child", "foreign_field": "parent"},
			want:   []ActiveRelation{{FromTable: "tx_a", FromField: "f", ToTable: "tx_child", ToField: "parent", Type: RelationshipOneToMany}},
		},
		{
			name:   "inline single",
			config: map[string]any{"type": "inline", "foreign_table": "tx_child", "foreign_field": "parent", "maxitems": 1},
			want:   []ActiveRelation{{FromTable: "tx_a", FromField: "f", ToTable: "tx_child", ToField: "parent", Type: RelationshipOneToOne}},
		},
		{
			name:   "file",
			config: map[string]any{"type": "file"},
			want:   []ActiveRelation{{FromTable: "tx_a", FromField: "f", ToTable: "sys_file_reference", ToField: "uid_foreign", Type: RelationshipOneToMany}},
		},
		{
			name:   "category",
			config: map[string]any{"type": "category"},
			want:   []ActiveRelation{{FromTable: "tx_a", FromField: "f", ToTable: "sys_category", MMTable: "sys_category_record_mm", Type: RelationshipManyToMany}},
		},
		{
			name:   "category one to one",
			config: map[string]any{"type": "category", "relationship": "oneToOne"},
			want:   []ActiveRelation{{FromTable: "tx_a", FromField: "f", ToTable: "sys_category", Type: RelationshipOneToOne}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, err := NewFieldType("tx_a", "f", column(tt.config))
			require.NoError(t, err)
			relational, ok := field.(RelationalFieldType)
			require.True(t, ok)
			assert.Equal(t, tt.want, relational.Relations())
		})
	}
}

func TestFieldType_VariantHelpers(t *testing.T) {
	check, err := NewFieldType("t", "flags", column(map[string]any{"type": "check", "items": []any{"a", "b"}}))
	require.NoError(t, err)
	assert.False(t, check.(CheckboxFieldType).IsSingleCheckbox())

	date, err := NewFieldType("t", "day", column(map[string]any{"type": "datetime", "dbType": "date", "format": "date"}))
	require.NoError(t, err)
	assert.Equal(t, "date", date.(DateTimeFieldType).DBType())
	assert.Equal(t, "date", date.(DateTimeFieldType).Format())

	number, err := NewFieldType("t", "price", column(map[string]any{"type": "number", "format": "decimal"}))
	require.NoError(t, err)
	assert.True(t, number.(NumberFieldType).IsDecimal())

	multi, err := NewFieldType("t", "tags", column(map[string]any{"type": "select", "maxitems": 5, "foreign_table": "tx_tag"}))
	require.NoError(t, err)
	assert.True(t, multi.(SelectRelationFieldType).IsMultiple())
	assert.Equal(t, "tx_tag", multi.(SelectRelationFieldType).ForeignTable())

	system := NewSystemInternalFieldType("t3ver_wsid")
	assert.Equal(t, FieldKindSystemInternal, system.Type())
	assert.False(t, system.IsSearchable())
}

func TestFieldCollection(t *testing.T) {
	a := InputFieldType{fieldBase{name: "a"}}
	b := TextFieldType{fieldBase{name: "b"}}
	replacement := TextFieldType{fieldBase{name: "a"}}

	fields := NewFieldCollection(a, b, replacement)
	assert.Equal(t, 2, fields.Len())
	assert.Equal(t, []string{"a", "b"}, fields.Names())
	assert.True(t, fields.Has("a"))
	assert.False(t, fields.Has("c"))

	got, err := fields.Get("a")
	require.NoError(t, err)
	assert.Equal(t, FieldKindText, got.Type())

	_, err = fields.Get("c")
	require.Error(t, err)
	assert.True(t, IsUndefinedField(err))

	texts := fields.Filter(func(f FieldType) bool { return f.Type() == FieldKindText })
	assert.Equal(t, []string{"a", "b"}, texts.Names())

	var empty *FieldCollection
	assert.False(t, empty.Has("a"))
	assert.Equal(t, 0, empty.Len())
	_, err = empty.Get("a")
	assert.True(t, IsUndefinedField(err))
}
