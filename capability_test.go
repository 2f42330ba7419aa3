package tca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every kind must be handled by each dispatch; a missing case panics here.
func TestCapability_DispatchIsExhaustive(t *testing.T) {
	ctrl := map[string]any{
		"delete":                "deleted",
		"crdate":                "crdate",
		"tstamp":                "tstamp",
		"sortby":                "sorting",
		"default_sortby":        "title ASC",
		"origUid":               "t3_origuid",
		"editlock":              "editlock",
		"descriptionColumn":     "description",
		"languageField":         "sys_language_uid",
		"transOrigPointerField": "l10n_parent",
		"versioningWS":          true,
		"label":                 "title",
		"adminOnly":             true,
		"readOnly":              true,
		"hideAtCopy":            true,
		"hideTable":             true,
		"prependAtCopy":         "(copy %s)",
		"enablecolumns": map[string]any{
			"disabled":  "hidden",
			"starttime": "starttime",
			"endtime":   "endtime",
			"fe_group":  "fe_group",
		},
	}
	fields := NewFieldCollection(
		CheckboxFieldType{fieldBase{name: "editlock", config: map[string]any{"type": "check"}}},
		TextFieldType{fieldBase{name: "description", config: map[string]any{"type": "text"}}},
		CheckboxFieldType{fieldBase{name: "hidden", config: map[string]any{"type": "check"}}},
		DateTimeFieldType{fieldBase{name: "starttime", config: map[string]any{"type": "datetime"}}},
		DateTimeFieldType{fieldBase{name: "endtime", config: map[string]any{"type": "datetime"}}},
		SelectRelationFieldType{fieldBase: fieldBase{name: "fe_group", config: map[string]any{"type": "select"}}},
	)

	require.Len(t, AllCapabilities(), int(capabilityCount))
	for _, c := range AllCapabilities() {
		assert.NotPanics(t, func() { _ = c.ValueKind() }, c.String())
		assert.NotContains(t, c.String(), "capability(")

		require.True(t, hasCapability(ctrl, c), c.String())
		value, err := resolveCapability("tx_all", ctrl, fields, c)
		require.NoError(t, err, c.String())
		assert.Equal(t, c.ValueKind(), value.Kind(), c.String())
	}
}

func TestCapability_PresenceRules(t *testing.T) {
	tests := []struct {
		name       string
		ctrl       map[string]any
		capability Capability
		want       bool
	}{
		{"delete empty string", map[string]any{"delete": ""}, CapabilitySoftDelete, false},
		{"delete set", map[string]any{"delete": "deleted"}, CapabilitySoftDelete, true},
		{"language needs both fields", map[string]any{"languageField": "sys_language_uid"}, CapabilityLanguage, false},
		{"versioningWS false", map[string]any{"versioningWS": false}, CapabilityWorkspace, false},
		{"versioningWS numeric", map[string]any{"versioningWS": 1}, CapabilityWorkspace, true},
		{"versioningWS string zero", map[string]any{"versioningWS": "0"}, CapabilityWorkspace, false},
		{"enablecolumns key with empty value", map[string]any{"enablecolumns": map[string]any{"starttime": ""}}, CapabilityRestrictionStartTime, true},
		{"enablecolumns missing", map[string]any{}, CapabilityRestrictionEndTime, false},
		{"enablecolumns from yaml", map[string]any{"enablecolumns": map[any]any{"fe_group": "fe_group"}}, CapabilityRestrictionUserGroup, true},
		{"web mount ignored", map[string]any{"security": map[string]any{"ignoreWebMountRestriction": true}}, CapabilityRestrictionWebMount, false},
		{"web mount default", map[string]any{}, CapabilityRestrictionWebMount, true},
		{"root level default", nil, CapabilityRestrictionRootLevel, true},
		{"adminOnly string", map[string]any{"adminOnly": "1"}, CapabilityAccessAdminOnly, true},
		{"label empty", map[string]any{"label": ""}, CapabilityLabel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasCapability(tt.ctrl, tt.capability))
		})
	}
}

func TestCapability_String(t *testing.T) {
	assert.Equal(t, "softDelete", CapabilitySoftDelete.String())
	assert.Equal(t, "restrictionUserGroup", CapabilityRestrictionUserGroup.String())
	assert.Equal(t, "capability(99)", Capability(99).String())
	assert.Panics(t, func() { _ = Capability(99).ValueKind() })
}

func TestSystemCapabilities(t *testing.T) {
	system := SystemCapabilities()
	assert.Len(t, system, 10)
	assert.Contains(t, system, CapabilityRestrictionUserGroup)
	assert.NotContains(t, system, CapabilityLanguage)
	assert.NotContains(t, system, CapabilityWorkspace)
}

func TestLabelCapability(t *testing.T) {
	label := newLabelCapability(map[string]any{
		"label":           "title",
		"label_alt":       "subtitle,,  nav_title ",
		"label_alt_force": 1,
		"label_userFunc":  "Vendor\\Label->render",
		"label_userFunc_options": map[string]any{
			"separator": " / ",
		},
	})
	assert.Equal(t, "title", label.PrimaryField)
	assert.Equal(t, []string{"subtitle", "nav_title"}, label.AlternativeFields)
	assert.True(t, label.AlwaysPrependAlternatives)
	assert.True(t, label.HasAlternativeFields())
	assert.Equal(t, []string{"title", "subtitle", "nav_title"}, label.AllFields())
	assert.Equal(t, " / ", label.GeneratorOptions["separator"])
}

func TestRootLevelCapability_CanExistOn(t *testing.T) {
	pagesOnly := RootLevelCapability{Level: RootLevelPagesOnly}
	assert.False(t, pagesOnly.CanExistOn(0))
	assert.True(t, pagesOnly.CanExistOn(12))

	rootOnly := RootLevelCapability{Level: RootLevelRootOnly}
	assert.True(t, rootOnly.CanExistOn(0))
	assert.False(t, rootOnly.CanExistOn(12))

	ignored := RootLevelCapability{Level: RootLevelPagesOnly, IgnoreRootLevelRestriction: true}
	assert.True(t, ignored.CanExistOn(0))
}

func TestValues(t *testing.T) {
	for _, falsy := range []any{nil, false, 0, int64(0), "", "0", 0.0, []any{}, map[string]any{}} {
		assert.False(t, Truthy(falsy), "%#v", falsy)
	}
	for _, truthy := range []any{true, 1, "1", "a", -1, 0.5, []any{1}} {
		assert.True(t, Truthy(truthy), "%#v", truthy)
	}

	i, ok := IntValue(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, int64(42), i)
	_, ok = IntValue("abc")
	assert.False(t, ok)
	_, ok = IntValue(nil)
	assert.False(t, ok)

	assert.Equal(t, []int{3, 5, -1}, IntList("3, 5,,-1,x"))
	assert.Equal(t, []int{}, IntList(""))
	assert.Equal(t, []int{7}, IntList(7))
	assert.Equal(t, "1.5", StringOf(1.5))
	assert.Equal(t, "12", StringOf(int64(12)))
}
