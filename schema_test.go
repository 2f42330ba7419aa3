package tca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFields(t *testing.T, table string, columns map[string]any, order ...string) *FieldCollection {
	t.Helper()
	fields := NewFieldCollection()
	for _, name := range order {
		column, ok := columns[name].(map[string]any)
		require.True(t, ok, "column %s", name)
		field, err := NewFieldType(table, name, column)
		require.NoError(t, err)
		fields.add(field)
	}
	return fields
}

func column(config map[string]any) map[string]any {
	return map[string]any{"config": config}
}

func contentConfig() (map[string]any, []string) {
	columns := map[string]any{
		"CType":            column(map[string]any{"type": "select", "renderType": "selectSingle"}),
		"header":           column(map[string]any{"type": "input"}),
		"bodytext":         column(map[string]any{"type": "text"}),
		"hidden":           column(map[string]any{"type": "check"}),
		"starttime":        column(map[string]any{"type": "datetime"}),
		"endtime":          column(map[string]any{"type": "datetime"}),
		"fe_group":         column(map[string]any{"type": "select", "renderType": "selectMultipleSideBySide", "foreign_table": "fe_groups"}),
		"editlock":         column(map[string]any{"type": "check"}),
		"rowDescription":   column(map[string]any{"type": "text"}),
		"sys_language_uid": column(map[string]any{"type": "language"}),
		"l18n_parent":      column(map[string]any{"type": "select", "renderType": "selectSingle", "foreign_table": "tt_content"}),
	}
	config := map[string]any{
		"ctrl": map[string]any{
			"title":                 "Content",
			"label":                 "header",
			"label_alt":             "subheader, bodytext",
			"type":                  "CType",
			"delete":                "deleted",
			"crdate":                "crdate",
			"tstamp":                "tstamp",
			"sortby":                "sorting",
			"editlock":              "editlock",
			"descriptionColumn":     "rowDescription",
			"languageField":         "sys_language_uid",
			"transOrigPointerField": "l18n_parent",
			"versioningWS":          true,
			"enablecolumns": map[string]any{
				"disabled":  "hidden",
				"starttime": "starttime",
				"endtime":   "endtime",
				"fe_group":  "fe_group",
			},
		},
		"columns": columns,
	}
	order := []string{"CType", "header", "bodytext", "hidden", "starttime", "endtime", "fe_group", "editlock", "rowDescription", "sys_language_uid", "l18n_parent"}
	return config, order
}

func buildContentSchema(t *testing.T, opts ...SchemaOption) *Schema {
	t.Helper()
	config, order := contentConfig()
	fields := buildFields(t, "tt_content", config["columns"].(map[string]any), order...)
	schema, err := NewSchema("tt_content", fields, config, opts...)
	require.NoError(t, err)
	return schema
}

// =============================================================================
// Capability resolution
// =============================================================================

func TestSchema_Capabilities(t *testing.T) {
	schema := buildContentSchema(t)

	for _, c := range []Capability{
		CapabilitySoftDelete, CapabilityCreatedAt, CapabilityUpdatedAt, CapabilitySortByField,
		CapabilityEditLock, CapabilityInternalDescription, CapabilityLanguage, CapabilityWorkspace,
		CapabilityRestrictionDisabledField, CapabilityRestrictionStartTime, CapabilityRestrictionEndTime,
		CapabilityRestrictionUserGroup, CapabilityRestrictionRootLevel, CapabilityRestrictionWebMount,
		CapabilityLabel,
	} {
		assert.True(t, schema.HasCapability(c), c.String())
	}
	for _, c := range []Capability{
		CapabilityDefaultSorting, CapabilityAncestorReferenceField, CapabilityAccessAdminOnly,
		CapabilityAccessReadOnly, CapabilityHideRecordsAtCopy, CapabilityHideInUi,
		CapabilityPrependLabelTextAtCopy,
	} {
		assert.False(t, schema.HasCapability(c), c.String())
	}

	name, err := schema.CapabilityFieldName(CapabilityRestrictionStartTime)
	require.NoError(t, err)
	assert.Equal(t, "starttime", name)

	name, err = schema.CapabilityFieldName(CapabilitySoftDelete)
	require.NoError(t, err)
	assert.Equal(t, "deleted", name)

	group, err := schema.FieldCapability(CapabilityRestrictionUserGroup)
	require.NoError(t, err)
	assert.Equal(t, FieldKindSelect, group.Field.Type())

	label, err := schema.LabelCapability()
	require.NoError(t, err)
	assert.Equal(t, "header", label.PrimaryField)
	assert.Equal(t, []string{"subheader", "bodytext"}, label.AlternativeFields)

	language, err := schema.LanguageCapability()
	require.NoError(t, err)
	assert.Equal(t, "sys_language_uid", language.LanguageField)
	assert.Equal(t, "l18n_parent", language.TranslationOriginPointerField)
	assert.False(t, language.HasTranslationSourceField())

	workspace, err := schema.ScalarCapability(CapabilityWorkspace)
	require.NoError(t, err)
	assert.True(t, workspace.Bool())

	assert.Equal(t, "Content", schema.Title())
}

func TestSchema_HasCapabilityIsPure(t *testing.T) {
	schema := buildContentSchema(t)
	for _, c := range AllCapabilities() {
		assert.Equal(t, schema.HasCapability(c), schema.HasCapability(c), c.String())
	}
}

func TestSchema_RootLevelAlwaysPresent(t *testing.T) {
	for _, config := range []map[string]any{
		nil,
		{"ctrl": map[string]any{}},
		{"ctrl": map[string]any{"rootLevel": 1, "security": map[string]any{"ignoreRootLevelRestriction": true}}},
		{"ctrl": map[string]any{"rootLevel": -1}},
	} {
		schema, err := NewSchema("any", nil, config)
		require.NoError(t, err)
		assert.True(t, schema.HasCapability(CapabilityRestrictionRootLevel))
	}

	schema, err := NewSchema("pages_only", nil, map[string]any{"ctrl": map[string]any{}})
	require.NoError(t, err)
	rootLevel := schema.RootLevelCapability()
	assert.Equal(t, RootLevelPagesOnly, rootLevel.Level)
	assert.False(t, rootLevel.IgnoreRootLevelRestriction)
	assert.True(t, rootLevel.CanExistOnPages())
	assert.False(t, rootLevel.CanExistOnRootLevel())

	schema, err = NewSchema("both", nil, map[string]any{"ctrl": map[string]any{"rootLevel": "-1"}})
	require.NoError(t, err)
	assert.True(t, schema.RootLevelCapability().CanExistOnRootLevel())
	assert.True(t, schema.RootLevelCapability().CanExistOnPages())
}

func TestSchema_CapabilityNotPresent(t *testing.T) {
	schema, err := NewSchema("plain", nil, map[string]any{"ctrl": map[string]any{}})
	require.NoError(t, err)

	_, err = schema.Capability(CapabilitySoftDelete)
	require.Error(t, err)
	assert.True(t, IsCapabilityNotPresent(err))

	_, err = schema.FieldCapability(CapabilityRestrictionStartTime)
	assert.True(t, IsCapabilityNotPresent(err))

	_, err = schema.LabelCapability()
	assert.True(t, IsCapabilityNotPresent(err))
}

func TestSchema_CapabilityTypeMismatch(t *testing.T) {
	schema := buildContentSchema(t)

	_, err := schema.FieldCapability(CapabilitySoftDelete)
	require.Error(t, err)
	var tcaErr *TCAError
	require.ErrorAs(t, err, &tcaErr)
	assert.Equal(t, ErrCodeCapabilityTypeMismatch, tcaErr.Code)

	_, err = schema.CapabilityFieldName(CapabilityWorkspace)
	require.ErrorAs(t, err, &tcaErr)
	assert.Equal(t, ErrCodeCapabilityTypeMismatch, tcaErr.Code)
}

func TestSchema_MisconfiguredCapabilityFailsBuild(t *testing.T) {
	config := map[string]any{
		"ctrl": map[string]any{
			"enablecolumns": map[string]any{"disabled": "hidden"},
		},
	}
	_, err := NewSchema("broken", NewFieldCollection(), config)
	require.Error(t, err)

	var tcaErr *TCAError
	require.ErrorAs(t, err, &tcaErr)
	assert.Equal(t, ErrCodeCapabilityFieldUndefined, tcaErr.Code)
	assert.Equal(t, "broken", tcaErr.Table)
	assert.Equal(t, CapabilityRestrictionDisabledField.String(), tcaErr.Capability)
}

func TestSchema_HasCapabilityPanicsOutsideSet(t *testing.T) {
	schema := buildContentSchema(t)
	assert.Panics(t, func() { schema.HasCapability(capabilityCount) })
	assert.Panics(t, func() { schema.HasCapability(Capability(-1)) })
}

// =============================================================================
// Sub-schemas and type information
// =============================================================================

func TestSchema_SubSchemas(t *testing.T) {
	config, _ := contentConfig()
	textFields := buildFields(t, "tt_content", config["columns"].(map[string]any), "CType", "header", "bodytext")
	schema := buildContentSchema(t, WithSubSchema("text", textFields))

	assert.True(t, schema.SupportsSubSchema())
	assert.Equal(t, "CType", schema.SubSchemaTypeInformation().FieldName)
	assert.False(t, schema.SubSchemaTypeInformation().IsForeign())

	require.True(t, schema.HasSubSchema("text"))
	sub, err := schema.SubSchema("text")
	require.NoError(t, err)
	assert.Equal(t, "tt_content.text", sub.Name())
	assert.Equal(t, "tt_content", sub.Table())
	assert.True(t, sub.IsSubSchema())
	assert.Equal(t, []string{"CType", "header", "bodytext"}, sub.Fields().Names())
	assert.True(t, sub.HasCapability(CapabilityRestrictionStartTime))

	_, err = schema.SubSchema("textmedia")
	require.Error(t, err)
	assert.True(t, IsUndefinedSchema(err))
	assert.Equal(t, []string{"text"}, schema.SubSchemaKeys())
}

func TestSchema_NoTypeInformation(t *testing.T) {
	schema, err := NewSchema("plain", nil, map[string]any{"ctrl": map[string]any{}})
	require.NoError(t, err)
	assert.Nil(t, schema.SubSchemaTypeInformation())
	assert.False(t, schema.SupportsSubSchema())
}

func TestSchema_ForeignTypeInformation(t *testing.T) {
	relationColumn := column(map[string]any{"type": "select", "renderType": "selectSingle", "foreign_table": "tx_kind"})

	tests := []struct {
		name     string
		columns  map[string]any
		typeDesc string
		wantCode string
	}{
		{
			name:     "undeclared local field",
			columns:  map[string]any{},
			typeDesc: "kind:type",
			wantCode: ErrCodeTypeFieldUndefined,
		},
		{
			name:     "non relational local field",
			columns:  map[string]any{"kind": column(map[string]any{"type": "input"})},
			typeDesc: "kind:type",
			wantCode: ErrCodeTypeFieldNotRelational,
		},
		{
			name:     "relational field without relation",
			columns:  map[string]any{"kind": column(map[string]any{"type": "select", "items": []any{}})},
			typeDesc: "kind:type",
			wantCode: ErrCodeTypeFieldNoRelation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var order []string
			for name := range tt.columns {
				order = append(order, name)
			}
			fields := buildFields(t, "tx_item", tt.columns, order...)
			_, err := NewSchema("tx_item", fields, map[string]any{"ctrl": map[string]any{"type": tt.typeDesc}})
			require.Error(t, err)
			assert.True(t, IsInvalidSchemaType(err))

			var tcaErr *TCAError
			require.ErrorAs(t, err, &tcaErr)
			assert.Equal(t, tt.wantCode, tcaErr.Code)
		})
	}

	t.Run("valid foreign type", func(t *testing.T) {
		fields := buildFields(t, "tx_item", map[string]any{"kind": relationColumn}, "kind")
		schema, err := NewSchema("tx_item", fields, map[string]any{"ctrl": map[string]any{"type": "kind:type"}})
		require.NoError(t, err)

		info := schema.SubSchemaTypeInformation()
		require.NotNil(t, info)
		assert.True(t, info.IsForeign())
		assert.Equal(t, "kind", info.FieldName)
		assert.Equal(t, "type", info.ForeignField)
		assert.Equal(t, "tx_kind", info.ForeignTable)
	})
}

func TestSchema_EmptyForeignTarget(t *testing.T) {
	field := SelectRelationFieldType{
		fieldBase:      fieldBase{name: "kind", config: map[string]any{"type": "select"}},
		relationalBase: relationalBase{relations: []ActiveRelation{{FromTable: "tx_item", FromField: "kind"}}},
	}
	_, err := NewSchema("tx_item", NewFieldCollection(field), map[string]any{"ctrl": map[string]any{"type": "kind:type"}})
	require.Error(t, err)

	var tcaErr *TCAError
	require.ErrorAs(t, err, &tcaErr)
	assert.Equal(t, ErrCodeTypeFieldEmptyTarget, tcaErr.Code)
}

// =============================================================================
// Relations
// =============================================================================

func TestSchema_Relations(t *testing.T) {
	passive := []PassiveRelation{{FromTable: "sys_file_reference", FromField: "uid_foreign", ToTable: "tt_content"}}
	schema := buildContentSchema(t, WithPassiveRelations(passive))

	active := schema.ActiveRelations()
	require.Len(t, active, 2)
	assert.Equal(t, "fe_groups", active[0].ToTable)
	assert.Equal(t, RelationshipList, active[0].Type)
	assert.Equal(t, "tt_content", active[1].ToTable)
	assert.Equal(t, RelationshipManyToOne, active[1].Type)

	assert.Equal(t, passive, schema.PassiveRelations())
}
