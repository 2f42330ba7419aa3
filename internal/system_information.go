package internal

import (
	"time"

	"github.com/lychee-technology/tca"
	"go.uber.org/zap"
)

// ExtractSystemInformation moves the values of system capabilities, language
// and workspace columns from properties into SystemProperties. Columns that are
// not part of the row leave their slot nil. The returned row holds what is left.
func ExtractSystemInformation(schema *tca.Schema, raw *tca.RawRecord, properties tca.Row) (tca.SystemProperties, tca.Row) {
	remaining := properties.Copy()
	var system tca.SystemProperties

	take := func(field string) (any, bool) {
		value, ok := remaining[field]
		if ok {
			delete(remaining, field)
		}
		return value, ok
	}
	timestamp := func(field string) *time.Time {
		value, _ := take(field)
		ts, err := toTime(value)
		if err != nil {
			zap.S().Warnw("ignoring unreadable timestamp", "record", raw.FullType(), "uid", raw.UID(), "field", field, "error", err)
			return nil
		}
		return ts
	}

	for _, c := range tca.SystemCapabilities() {
		if !schema.HasCapability(c) {
			continue
		}
		field, err := schema.CapabilityFieldName(c)
		if err != nil {
			continue
		}
		if _, present := remaining[field]; !present {
			continue
		}
		switch c {
		case tca.CapabilityCreatedAt:
			system.CreatedAt = timestamp(field)
		case tca.CapabilityUpdatedAt:
			system.LastUpdatedAt = timestamp(field)
		case tca.CapabilityRestrictionStartTime:
			system.PublishAt = timestamp(field)
		case tca.CapabilityRestrictionEndTime:
			system.PublishUntil = timestamp(field)
		case tca.CapabilitySoftDelete:
			value, _ := take(field)
			system.IsDeleted = boolPtr(tca.Truthy(value))
		case tca.CapabilityEditLock:
			value, _ := take(field)
			system.IsLockedForEditing = boolPtr(tca.Truthy(value))
		case tca.CapabilityRestrictionDisabledField:
			value, _ := take(field)
			system.IsDisabled = boolPtr(tca.Truthy(value))
		case tca.CapabilityInternalDescription:
			value, _ := take(field)
			if value != nil {
				description := tca.StringOf(value)
				system.Description = &description
			}
		case tca.CapabilitySortByField:
			value, _ := take(field)
			system.Sorting = intPtr(value)
		case tca.CapabilityRestrictionUserGroup:
			value, _ := take(field)
			system.UserGroupRestriction = tca.IntList(value)
		}
	}

	if language, err := schema.LanguageCapability(); err == nil {
		info := &tca.LanguageInfo{}
		found := false
		if value, ok := take(language.LanguageField); ok {
			info.LanguageID, found = intPtr(value), true
		}
		if value, ok := take(language.TranslationOriginPointerField); ok {
			info.TranslationParentID, found = intPtr(value), true
		}
		if language.HasTranslationSourceField() {
			if value, ok := take(language.TranslationSourceField); ok {
				info.TranslationSourceID, found = intPtr(value), true
			}
		}
		if language.HasDiffSourceField() {
			take(language.DiffSourceField)
		}
		if found {
			system.Language = info
		}
	}

	if schema.HasCapability(tca.CapabilityWorkspace) {
		info := &tca.VersionInfo{}
		found := false
		if value, ok := take("t3ver_wsid"); ok {
			info.WorkspaceID, found = intPtr(value), true
		}
		if value, ok := take("t3ver_oid"); ok {
			info.LiveID, found = intPtr(value), true
		}
		if value, ok := take("t3ver_state"); ok {
			found = true
			if state := intPtr(value); state != nil {
				versionState := tca.VersionState(*state)
				info.State = &versionState
			}
		}
		if value, ok := take("t3ver_stage"); ok {
			info.Stage, found = intPtr(value), true
		}
		if found {
			system.Version = info
		}
	}
	return system, remaining
}

func boolPtr(b bool) *bool { return &b }

func intPtr(value any) *int {
	i, ok := tca.IntValue(value)
	if !ok {
		return nil
	}
	n := int(i)
	return &n
}
