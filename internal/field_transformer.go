package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lychee-technology/tca"
)

// Native datetime columns store these values for "no date".
var zeroDates = map[string]bool{
	"0000-00-00":          true,
	"0000-00-00 00:00:00": true,
	"00:00:00":            true,
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
	time.RFC3339Nano,
}

// fieldTransformer is the default FieldTransformer. It only reshapes values
// that are already part of the row and never reads related records.
type fieldTransformer struct{}

var _ tca.FieldTransformer = (*fieldTransformer)(nil)

func NewFieldTransformer() tca.FieldTransformer {
	return &fieldTransformer{}
}

func (t *fieldTransformer) Transform(_ context.Context, field tca.FieldType, raw *tca.RawRecord, value any, _ *tca.Context) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch f := field.(type) {
	case tca.DateTimeFieldType:
		ts, err := toTime(value)
		if err != nil {
			return nil, transformError(raw, field, err)
		}
		if ts == nil {
			return nil, nil
		}
		return ts, nil
	case tca.CheckboxFieldType:
		if f.IsSingleCheckbox() {
			return tca.Truthy(value), nil
		}
		bits, _ := tca.IntValue(value)
		return bits, nil
	case tca.NumberFieldType:
		return toNumber(value, f.IsDecimal())
	case tca.SelectRelationFieldType:
		if f.ForeignTable() != "" {
			return relationReferences(f.Relations(), value), nil
		}
		if f.IsMultiple() {
			return splitList(tca.StringOf(value)), nil
		}
		return value, nil
	case tca.CategoryFieldType:
		return relationReferences(f.Relations(), value), nil
	case tca.GroupFieldType:
		return groupReferences(f.Relations(), tca.StringOf(value)), nil
	case tca.InlineFieldType, tca.FileFieldType:
		count, _ := tca.IntValue(value)
		return count, nil
	case tca.JSONFieldType:
		return decodeJSON(raw, field, value)
	}
	return value, nil
}

func transformError(raw *tca.RawRecord, field tca.FieldType, err error) error {
	table := ""
	if raw != nil {
		table = raw.FullType()
	}
	return tca.NewInvalidArgumentError(table, fmt.Sprintf("cannot transform value of %s field", field.Type())).
		WithField(field.Name()).
		WithCause(err)
}

// toTime converts epoch seconds, native date strings and time values. Zero
// values yield nil.
func toTime(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		if v.IsZero() {
			return nil, nil
		}
		utc := v.UTC()
		return &utc, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return toTime(*v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" || zeroDates[s] {
			return nil, nil
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			break
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				parsed = parsed.UTC()
				return &parsed, nil
			}
		}
		return nil, fmt.Errorf("unrecognized date %q", s)
	}
	seconds, ok := tca.IntValue(value)
	if !ok {
		return nil, fmt.Errorf("unsupported date value of type %T", value)
	}
	if seconds == 0 {
		return nil, nil
	}
	ts := time.Unix(seconds, 0).UTC()
	return &ts, nil
}

func toNumber(value any, decimal bool) (any, error) {
	parsed := value
	switch v := value.(type) {
	case string:
		parsed = tryParseNumber(v)
	case []byte:
		parsed = tryParseNumber(string(v))
	}
	if decimal {
		switch n := parsed.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		}
		if i, ok := tca.IntValue(parsed); ok {
			return float64(i), nil
		}
	} else if i, ok := tca.IntValue(parsed); ok {
		return i, nil
	}
	return value, nil
}

// relationReferences resolves a comma separated uid list against the first
// relation target. MM relations store a count and are returned as such.
func relationReferences(relations []tca.ActiveRelation, value any) any {
	if len(relations) == 0 {
		return value
	}
	target := relations[0]
	if target.MMTable != "" {
		count, _ := tca.IntValue(value)
		return count
	}
	refs := []tca.RelationReference{}
	for _, uid := range tca.IntList(value) {
		if uid > 0 {
			refs = append(refs, tca.RelationReference{Table: target.ToTable, UID: int64(uid)})
		}
	}
	return refs
}

// groupReferences reads "table_uid" items. Bare uids belong to the first
// allowed table.
func groupReferences(relations []tca.ActiveRelation, value string) []tca.RelationReference {
	refs := []tca.RelationReference{}
	for _, item := range splitList(value) {
		table := ""
		if len(relations) > 0 {
			table = relations[0].ToTable
		}
		uidPart := item
		if idx := strings.LastIndex(item, "_"); idx > 0 {
			table = item[:idx]
			uidPart = item[idx+1:]
		}
		uid, ok := tca.IntValue(uidPart)
		if !ok || uid <= 0 || table == "" {
			continue
		}
		refs = append(refs, tca.RelationReference{Table: table, UID: uid})
	}
	return refs
}

func splitList(value string) []string {
	items := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func decodeJSON(raw *tca.RawRecord, field tca.FieldType, value any) (any, error) {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return value, nil
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, transformError(raw, field, err)
	}
	return decoded, nil
}
