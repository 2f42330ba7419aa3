package internal

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/tca"
	"github.com/stretchr/testify/require"
)

// accessTime is the "now" of every restriction test.
var accessTime = time.Unix(1_700_000_000, 0)

func column(config map[string]any) map[string]any {
	return map[string]any{"config": config}
}

func contentTCA() map[string]any {
	return map[string]any{
		"ctrl": map[string]any{
			"title":                    "Content",
			"label":                    "header",
			"type":                     "CType",
			"delete":                   "deleted",
			"crdate":                   "crdate",
			"tstamp":                   "tstamp",
			"sortby":                   "sorting",
			"editlock":                 "editlock",
			"descriptionColumn":        "rowDescription",
			"languageField":            "sys_language_uid",
			"transOrigPointerField":    "l18n_parent",
			"transOrigDiffSourceField": "l18n_diffsource",
			"versioningWS":             true,
			"enablecolumns": map[string]any{
				"disabled":  "hidden",
				"starttime": "starttime",
				"endtime":   "endtime",
				"fe_group":  "fe_group",
			},
		},
		"columns": map[string]any{
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
			"image":            column(map[string]any{"type": "file"}),
			"categories":       column(map[string]any{"type": "category"}),
			"records":          column(map[string]any{"type": "group", "allowed": "tt_content,pages"}),
			"pi_flexform":      column(map[string]any{"type": "json"}),
			"imagewidth":       column(map[string]any{"type": "number"}),
			"ratio":            column(map[string]any{"type": "number", "format": "decimal"}),
			"layout": column(map[string]any{
				"type": "check",
				"items": []any{
					map[string]any{"label": "a"},
					map[string]any{"label": "b"},
				},
			}),
		},
		"types": map[string]any{
			"text": map[string]any{"showitem": "CType, header, bodytext, --palette--;;access"},
			"image": map[string]any{
				"showitem": "CType, header, image, imagewidth",
				"columnsOverrides": map[string]any{
					"header": map[string]any{"config": map[string]any{"type": "text"}},
				},
			},
		},
		"palettes": map[string]any{
			"access": map[string]any{"showitem": "hidden, --linebreak--, starttime, endtime, fe_group"},
		},
	}
}

func pagesTCA() map[string]any {
	return map[string]any{
		"ctrl": map[string]any{
			"title":  "Page",
			"label":  "title",
			"delete": "deleted",
			"enablecolumns": map[string]any{
				"disabled":  "hidden",
				"starttime": "starttime",
				"endtime":   "endtime",
				"fe_group":  "fe_group",
			},
		},
		"columns": map[string]any{
			"title":            column(map[string]any{"type": "input"}),
			"hidden":           column(map[string]any{"type": "check"}),
			"starttime":        column(map[string]any{"type": "datetime"}),
			"endtime":          column(map[string]any{"type": "datetime"}),
			"fe_group":         column(map[string]any{"type": "select", "renderType": "selectMultipleSideBySide", "foreign_table": "fe_groups"}),
			"extendToSubpages": column(map[string]any{"type": "check"}),
		},
	}
}

func groupsTCA() map[string]any {
	return map[string]any{
		"ctrl": map[string]any{"title": "Frontend groups", "label": "title", "delete": "deleted"},
		"columns": map[string]any{
			"title": column(map[string]any{"type": "input"}),
		},
	}
}

func categoryTCA() map[string]any {
	return map[string]any{
		"ctrl":    map[string]any{"title": "Category", "label": "title"},
		"columns": map[string]any{"title": column(map[string]any{"type": "input"})},
	}
}

func fileReferenceTCA() map[string]any {
	return map[string]any{
		"ctrl": map[string]any{"title": "File reference", "label": "uid_local"},
		"columns": map[string]any{
			"uid_local":   column(map[string]any{"type": "group", "allowed": "sys_file"}),
			"uid_foreign": column(map[string]any{"type": "passthrough"}),
		},
	}
}

// testTCA is a small but complete configuration: content, pages and the
// tables their relations point at.
func testTCA() tca.RawTCA {
	return tca.RawTCA{
		"tt_content":         contentTCA(),
		"pages":              pagesTCA(),
		"fe_groups":          groupsTCA(),
		"sys_category":       categoryTCA(),
		"sys_file_reference": fileReferenceTCA(),
	}
}

func newTestResolver(t *testing.T) *SchemaResolver {
	t.Helper()
	resolver := NewSchemaResolver(nil)
	_, err := resolver.Load(testTCA())
	require.NoError(t, err)
	return resolver
}

func newTestContext() *tca.Context {
	return tca.NewContext(accessTime).WithUser(tca.NewAnonymousUser())
}

// rebuildingResolver publishes an empty schema set as soon as a caller takes a
// snapshot, the way a concurrent Rebuild would.
type rebuildingResolver struct {
	current   tca.SchemaResolver
	snapshots int
}

func newRebuildingResolver(t *testing.T) *rebuildingResolver {
	t.Helper()
	return &rebuildingResolver{current: newTestResolver(t).Snapshot()}
}

func (r *rebuildingResolver) Snapshot() tca.SchemaResolver {
	r.snapshots++
	pinned := r.current
	r.current = &SchemaSet{}
	return pinned
}

func (r *rebuildingResolver) Has(table string) bool { return r.current.Has(table) }

func (r *rebuildingResolver) Get(table string) (*tca.Schema, error) { return r.current.Get(table) }

func (r *rebuildingResolver) Tables() []string { return r.current.Tables() }

func (r *rebuildingResolver) Generation() uuid.UUID { return r.current.Generation() }
