package tca

import (
	"strings"
	"time"
)

// Row is one fetched database row keyed by column name.
type Row map[string]any

// Copy returns a shallow copy of the row.
func (r Row) Copy() Row {
	result := make(Row, len(r))
	for k, v := range r {
		result[k] = v
	}
	return result
}

// Keys of the computed properties that overlay and versioning add to fetched rows.
const (
	ComputedVersionedUID             = "_ORIG_uid"
	ComputedLocalizedUID             = "_LOCALIZED_UID"
	ComputedRequestedOverlayLanguage = "_REQUESTED_OVERLAY_LANGUAGE"
	ComputedTranslationSource        = "_TRANSLATION_SOURCE"
)

// ComputedProperties are values attached to a row after fetching it, never stored.
type ComputedProperties struct {
	VersionedUID               *int
	LocalizedUID               *int
	RequestedOverlayLanguageID *int
	TranslationSource          *int
}

// IsEmpty reports whether no computed property is set.
func (c ComputedProperties) IsEmpty() bool {
	return c.VersionedUID == nil && c.LocalizedUID == nil &&
		c.RequestedOverlayLanguageID == nil && c.TranslationSource == nil
}

// SplitComputedProperties removes the computed keys from row and returns them.
func SplitComputedProperties(row Row) ComputedProperties {
	take := func(key string) *int {
		v, ok := row[key]
		if !ok {
			return nil
		}
		delete(row, key)
		i, ok := IntValue(v)
		if !ok {
			return nil
		}
		n := int(i)
		return &n
	}
	return ComputedProperties{
		VersionedUID:               take(ComputedVersionedUID),
		LocalizedUID:               take(ComputedLocalizedUID),
		RequestedOverlayLanguageID: take(ComputedRequestedOverlayLanguage),
		TranslationSource:          take(ComputedTranslationSource),
	}
}

// RawRecord is an immutable view of one row plus its identity and type.
type RawRecord struct {
	uid        int64
	pid        int64
	properties Row
	computed   ComputedProperties
	fullType   string
}

// NewRawRecord copies properties so later changes to the row do not leak in.
func NewRawRecord(uid, pid int64, properties Row, computed ComputedProperties, fullType string) *RawRecord {
	return &RawRecord{
		uid:        uid,
		pid:        pid,
		properties: properties.Copy(),
		computed:   computed,
		fullType:   fullType,
	}
}

func (r *RawRecord) UID() int64 { return r.uid }
func (r *RawRecord) PID() int64 { return r.pid }

func (r *RawRecord) Has(name string) bool {
	_, ok := r.properties[name]
	return ok
}

func (r *RawRecord) Get(name string) any { return r.properties[name] }

// ToArray returns a copy of all properties.
func (r *RawRecord) ToArray() Row { return r.properties.Copy() }

func (r *RawRecord) ComputedProperties() ComputedProperties { return r.computed }

// FullType is the table name, suffixed with ".<type>" for tables with a discriminator.
func (r *RawRecord) FullType() string { return r.fullType }

func (r *RawRecord) MainType() string {
	main, _, _ := strings.Cut(r.fullType, ".")
	return main
}

// RecordType returns the sub-type, or "" for tables without a discriminator.
func (r *RawRecord) RecordType() string {
	_, recordType, _ := strings.Cut(r.fullType, ".")
	return recordType
}

// LanguageInfo holds the translation columns of a language aware record.
type LanguageInfo struct {
	LanguageID          *int
	TranslationParentID *int
	TranslationSourceID *int
}

// VersionState is t3ver_state.
type VersionState int

const (
	VersionStateDefault           VersionState = 0
	VersionStateNewPlaceholder    VersionState = 1
	VersionStateDeletePlaceholder VersionState = 2
	VersionStateMovePointer       VersionState = 4
)

func (s VersionState) String() string {
	switch s {
	case VersionStateDefault:
		return "default"
	case VersionStateNewPlaceholder:
		return "newPlaceholder"
	case VersionStateDeletePlaceholder:
		return "deletePlaceholder"
	case VersionStateMovePointer:
		return "movePointer"
	}
	return "unknown"
}

// VersionInfo holds the workspace columns of a versioned record.
type VersionInfo struct {
	WorkspaceID *int
	LiveID      *int
	State       *VersionState
	Stage       *int
}

// SystemProperties are the row values with system wide meaning. Every slot is
// optional: nil means the column was not part of the row.
type SystemProperties struct {
	Language             *LanguageInfo
	Version              *VersionInfo
	IsDeleted            *bool
	IsDisabled           *bool
	IsLockedForEditing   *bool
	CreatedAt            *time.Time
	LastUpdatedAt        *time.Time
	PublishAt            *time.Time
	PublishUntil         *time.Time
	UserGroupRestriction []int
	Sorting              *int
	Description          *string
}

// Record is a materialized row: business properties separated from system properties.
type Record struct {
	raw        *RawRecord
	properties map[string]any
	system     *SystemProperties
}

// NewRecord copies properties. A nil system bag is replaced by an empty one.
func NewRecord(raw *RawRecord, properties map[string]any, system *SystemProperties) *Record {
	copied := make(map[string]any, len(properties))
	for k, v := range properties {
		copied[k] = v
	}
	if system == nil {
		system = &SystemProperties{}
	}
	return &Record{raw: raw, properties: copied, system: system}
}

func (r *Record) UID() int64         { return r.raw.UID() }
func (r *Record) PID() int64         { return r.raw.PID() }
func (r *Record) FullType() string   { return r.raw.FullType() }
func (r *Record) RecordType() string { return r.raw.RecordType() }
func (r *Record) MainType() string   { return r.raw.MainType() }

func (r *Record) Has(name string) bool {
	_, ok := r.properties[name]
	return ok
}

// Get returns a business property. System columns are not reachable here.
func (r *Record) Get(name string) (any, error) {
	v, ok := r.properties[name]
	if !ok {
		return nil, NewUndefinedFieldError(r.raw.FullType(), name)
	}
	return v, nil
}

// Properties returns a copy of the business properties.
func (r *Record) Properties() map[string]any {
	copied := make(map[string]any, len(r.properties))
	for k, v := range r.properties {
		copied[k] = v
	}
	return copied
}

// SystemProperties returns a deep copy, so callers cannot change the record.
func (r *Record) SystemProperties() SystemProperties { return r.system.clone() }

func (r *Record) RawRecord() *RawRecord { return r.raw }

// LanguageID returns the language of the record, or nil for tables that are not language aware.
func (r *Record) LanguageID() *int {
	if r.system.Language == nil {
		return nil
	}
	return clonePtr(r.system.Language.LanguageID)
}

func (r *Record) VersionInfo() *VersionInfo { return r.system.Version.clone() }

func (l *LanguageInfo) clone() *LanguageInfo {
	if l == nil {
		return nil
	}
	return &LanguageInfo{
		LanguageID:          clonePtr(l.LanguageID),
		TranslationParentID: clonePtr(l.TranslationParentID),
		TranslationSourceID: clonePtr(l.TranslationSourceID),
	}
}

func (v *VersionInfo) clone() *VersionInfo {
	if v == nil {
		return nil
	}
	return &VersionInfo{
		WorkspaceID: clonePtr(v.WorkspaceID),
		LiveID:      clonePtr(v.LiveID),
		State:       clonePtr(v.State),
		Stage:       clonePtr(v.Stage),
	}
}

func (s *SystemProperties) clone() SystemProperties {
	copied := SystemProperties{
		Language:           s.Language.clone(),
		Version:            s.Version.clone(),
		IsDeleted:          clonePtr(s.IsDeleted),
		IsDisabled:         clonePtr(s.IsDisabled),
		IsLockedForEditing: clonePtr(s.IsLockedForEditing),
		CreatedAt:          clonePtr(s.CreatedAt),
		LastUpdatedAt:      clonePtr(s.LastUpdatedAt),
		PublishAt:          clonePtr(s.PublishAt),
		PublishUntil:       clonePtr(s.PublishUntil),
		Sorting:            clonePtr(s.Sorting),
		Description:        clonePtr(s.Description),
	}
	if s.UserGroupRestriction != nil {
		copied.UserGroupRestriction = append([]int(nil), s.UserGroupRestriction...)
	}
	return copied
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
