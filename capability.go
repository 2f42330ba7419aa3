package tca

import (
	"fmt"
	"strings"
)

// Capability is one of the semantic behaviors a table can opt into through its ctrl section.
// The set is closed: every consumer switches over AllCapabilities exhaustively.
type Capability int

const (
	CapabilitySoftDelete Capability = iota
	CapabilityCreatedAt
	CapabilityUpdatedAt
	CapabilitySortByField
	CapabilityDefaultSorting
	CapabilityAncestorReferenceField
	CapabilityEditLock
	CapabilityInternalDescription
	CapabilityLanguage
	CapabilityWorkspace
	CapabilityRestrictionDisabledField
	CapabilityRestrictionStartTime
	CapabilityRestrictionEndTime
	CapabilityRestrictionUserGroup
	CapabilityRestrictionRootLevel
	CapabilityRestrictionWebMount
	CapabilityLabel
	CapabilityAccessAdminOnly
	CapabilityAccessReadOnly
	CapabilityHideRecordsAtCopy
	CapabilityHideInUi
	CapabilityPrependLabelTextAtCopy

	capabilityCount
)

var capabilityNames = [capabilityCount]string{
	CapabilitySoftDelete:               "softDelete",
	CapabilityCreatedAt:                "createdAt",
	CapabilityUpdatedAt:                "updatedAt",
	CapabilitySortByField:              "sortByField",
	CapabilityDefaultSorting:           "defaultSorting",
	CapabilityAncestorReferenceField:   "ancestorReferenceField",
	CapabilityEditLock:                 "editLock",
	CapabilityInternalDescription:      "internalDescription",
	CapabilityLanguage:                 "language",
	CapabilityWorkspace:                "workspace",
	CapabilityRestrictionDisabledField: "restrictionDisabledField",
	CapabilityRestrictionStartTime:     "restrictionStartTime",
	CapabilityRestrictionEndTime:       "restrictionEndTime",
	CapabilityRestrictionUserGroup:     "restrictionUserGroup",
	CapabilityRestrictionRootLevel:     "restrictionRootLevel",
	CapabilityRestrictionWebMount:      "restrictionWebMount",
	CapabilityLabel:                    "label",
	CapabilityAccessAdminOnly:          "accessAdminOnly",
	CapabilityAccessReadOnly:           "accessReadOnly",
	CapabilityHideRecordsAtCopy:        "hideRecordsAtCopy",
	CapabilityHideInUi:                 "hideInUi",
	CapabilityPrependLabelTextAtCopy:   "prependLabelTextAtCopy",
}

func (c Capability) String() string {
	if c < 0 || c >= capabilityCount {
		return fmt.Sprintf("capability(%d)", int(c))
	}
	return capabilityNames[c]
}

// AllCapabilities returns every capability kind in declaration order.
func AllCapabilities() []Capability {
	all := make([]Capability, 0, capabilityCount)
	for c := Capability(0); c < capabilityCount; c++ {
		all = append(all, c)
	}
	return all
}

// SystemCapabilities is the subset extracted into SystemProperties during record materialization.
func SystemCapabilities() []Capability {
	return []Capability{
		CapabilityCreatedAt,
		CapabilityUpdatedAt,
		CapabilityRestrictionStartTime,
		CapabilityRestrictionEndTime,
		CapabilitySoftDelete,
		CapabilityEditLock,
		CapabilityRestrictionDisabledField,
		CapabilityInternalDescription,
		CapabilitySortByField,
		CapabilityRestrictionUserGroup,
	}
}

// CapabilityValueKind names the value object a capability resolves to.
type CapabilityValueKind string

const (
	ValueKindSystemInternalField CapabilityValueKind = "systemInternalField"
	ValueKindField               CapabilityValueKind = "field"
	ValueKindScalar              CapabilityValueKind = "scalar"
	ValueKindLabel               CapabilityValueKind = "label"
	ValueKindLanguage            CapabilityValueKind = "language"
	ValueKindRootLevel           CapabilityValueKind = "rootLevel"
)

// ValueKind returns the value object type the capability resolves to.
func (c Capability) ValueKind() CapabilityValueKind {
	switch c {
	case CapabilitySoftDelete, CapabilityCreatedAt, CapabilityUpdatedAt, CapabilitySortByField, CapabilityAncestorReferenceField:
		return ValueKindSystemInternalField
	case CapabilityEditLock, CapabilityInternalDescription,
		CapabilityRestrictionDisabledField, CapabilityRestrictionStartTime,
		CapabilityRestrictionEndTime, CapabilityRestrictionUserGroup:
		return ValueKindField
	case CapabilityDefaultSorting, CapabilityWorkspace, CapabilityRestrictionWebMount,
		CapabilityAccessAdminOnly, CapabilityAccessReadOnly, CapabilityHideRecordsAtCopy,
		CapabilityHideInUi, CapabilityPrependLabelTextAtCopy:
		return ValueKindScalar
	case CapabilityLabel:
		return ValueKindLabel
	case CapabilityLanguage:
		return ValueKindLanguage
	case CapabilityRestrictionRootLevel:
		return ValueKindRootLevel
	}
	panic(fmt.Sprintf("tca: unhandled capability %s", c))
}

// hasCapability is the presence rule of every kind. It only reads ctrl.
func hasCapability(ctrl map[string]any, c Capability) bool {
	enableColumns := mapValue(ctrl, "enablecolumns")
	security := mapValue(ctrl, "security")

	switch c {
	case CapabilitySoftDelete:
		return stringValue(ctrl, "delete") != ""
	case CapabilityCreatedAt:
		return stringValue(ctrl, "crdate") != ""
	case CapabilityUpdatedAt:
		return stringValue(ctrl, "tstamp") != ""
	case CapabilitySortByField:
		return stringValue(ctrl, "sortby") != ""
	case CapabilityDefaultSorting:
		return stringValue(ctrl, "default_sortby") != ""
	case CapabilityAncestorReferenceField:
		return stringValue(ctrl, "origUid") != ""
	case CapabilityEditLock:
		return stringValue(ctrl, "editlock") != ""
	case CapabilityInternalDescription:
		return stringValue(ctrl, "descriptionColumn") != ""
	case CapabilityLanguage:
		return stringValue(ctrl, "languageField") != "" && stringValue(ctrl, "transOrigPointerField") != ""
	case CapabilityWorkspace:
		return truthy(ctrl["versioningWS"])
	case CapabilityRestrictionDisabledField:
		return hasKey(enableColumns, "disabled")
	case CapabilityRestrictionStartTime:
		return hasKey(enableColumns, "starttime")
	case CapabilityRestrictionEndTime:
		return hasKey(enableColumns, "endtime")
	case CapabilityRestrictionUserGroup:
		return hasKey(enableColumns, "fe_group")
	case CapabilityRestrictionRootLevel:
		return true
	case CapabilityRestrictionWebMount:
		return !truthy(security["ignoreWebMountRestriction"])
	case CapabilityLabel:
		return stringValue(ctrl, "label") != ""
	case CapabilityAccessAdminOnly:
		return truthy(ctrl["adminOnly"])
	case CapabilityAccessReadOnly:
		return truthy(ctrl["readOnly"])
	case CapabilityHideRecordsAtCopy:
		return truthy(ctrl["hideAtCopy"])
	case CapabilityHideInUi:
		return truthy(ctrl["hideTable"])
	case CapabilityPrependLabelTextAtCopy:
		return stringValue(ctrl, "prependAtCopy") != ""
	}
	panic(fmt.Sprintf("tca: unhandled capability %s", c))
}

// resolveCapability builds the value object of a present capability.
func resolveCapability(table string, ctrl map[string]any, fields *FieldCollection, c Capability) (CapabilityValue, error) {
	enableColumns := mapValue(ctrl, "enablecolumns")
	security := mapValue(ctrl, "security")

	fieldCapability := func(name string) (CapabilityValue, error) {
		field, err := fields.Get(name)
		if err != nil {
			return nil, &TCAError{
				Type:       ErrorTypeConfiguration,
				Code:       ErrCodeCapabilityFieldUndefined,
				Message:    fmt.Sprintf("capability references field %q which is not declared in columns", name),
				Table:      table,
				Capability: c.String(),
				Cause:      err,
			}
		}
		return FieldCapability{Field: field}, nil
	}

	switch c {
	case CapabilitySoftDelete:
		return SystemInternalFieldCapability{FieldName: stringValue(ctrl, "delete")}, nil
	case CapabilityCreatedAt:
		return SystemInternalFieldCapability{FieldName: stringValue(ctrl, "crdate")}, nil
	case CapabilityUpdatedAt:
		return SystemInternalFieldCapability{FieldName: stringValue(ctrl, "tstamp")}, nil
	case CapabilitySortByField:
		return SystemInternalFieldCapability{FieldName: stringValue(ctrl, "sortby")}, nil
	case CapabilityDefaultSorting:
		return ScalarCapability{Value: stringValue(ctrl, "default_sortby")}, nil
	case CapabilityAncestorReferenceField:
		return SystemInternalFieldCapability{FieldName: stringValue(ctrl, "origUid")}, nil
	case CapabilityEditLock:
		return fieldCapability(stringValue(ctrl, "editlock"))
	case CapabilityInternalDescription:
		return fieldCapability(stringValue(ctrl, "descriptionColumn"))
	case CapabilityLanguage:
		return LanguageAwareSchemaCapability{
			LanguageField:                 stringValue(ctrl, "languageField"),
			TranslationOriginPointerField: stringValue(ctrl, "transOrigPointerField"),
			TranslationSourceField:        stringValue(ctrl, "translationSource"),
			DiffSourceField:               stringValue(ctrl, "transOrigDiffSourceField"),
		}, nil
	case CapabilityWorkspace:
		return ScalarCapability{Value: true}, nil
	case CapabilityRestrictionDisabledField:
		return fieldCapability(stringValue(enableColumns, "disabled"))
	case CapabilityRestrictionStartTime:
		return fieldCapability(stringValue(enableColumns, "starttime"))
	case CapabilityRestrictionEndTime:
		return fieldCapability(stringValue(enableColumns, "endtime"))
	case CapabilityRestrictionUserGroup:
		return fieldCapability(stringValue(enableColumns, "fe_group"))
	case CapabilityRestrictionRootLevel:
		level, _ := intValue(ctrl["rootLevel"])
		return RootLevelCapability{
			Level:                      RootLevelType(level),
			IgnoreRootLevelRestriction: truthy(security["ignoreRootLevelRestriction"]),
		}, nil
	case CapabilityRestrictionWebMount:
		return ScalarCapability{Value: true}, nil
	case CapabilityLabel:
		return newLabelCapability(ctrl), nil
	case CapabilityAccessAdminOnly:
		return ScalarCapability{Value: true}, nil
	case CapabilityAccessReadOnly:
		return ScalarCapability{Value: true}, nil
	case CapabilityHideRecordsAtCopy:
		return ScalarCapability{Value: true}, nil
	case CapabilityHideInUi:
		return ScalarCapability{Value: true}, nil
	case CapabilityPrependLabelTextAtCopy:
		return ScalarCapability{Value: stringValue(ctrl, "prependAtCopy")}, nil
	}
	panic(fmt.Sprintf("tca: unhandled capability %s", c))
}

func newLabelCapability(ctrl map[string]any) LabelCapability {
	label := LabelCapability{
		PrimaryField:              stringValue(ctrl, "label"),
		AlwaysPrependAlternatives: truthy(ctrl["label_alt_force"]),
		Generator:                 stringValue(ctrl, "label_userFunc"),
		Formatter:                 stringValue(ctrl, "formattedLabel_userFunc"),
	}
	if options := mapValue(ctrl, "label_userFunc_options"); options != nil {
		label.GeneratorOptions = options
	}
	for _, name := range strings.Split(stringValue(ctrl, "label_alt"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			label.AlternativeFields = append(label.AlternativeFields, name)
		}
	}
	return label
}
