package internal

import (
	"fmt"
	"strings"

	"github.com/lychee-technology/tca"
	"go.uber.org/zap"
)

// workspaceColumns are managed by versioning and usually not declared in columns.
var workspaceColumns = []string{"t3ver_oid", "t3ver_wsid", "t3ver_state", "t3ver_stage"}

// parsedTable is one table of the configuration with its fields resolved.
type parsedTable struct {
	name       string
	config     map[string]any
	fields     *tca.FieldCollection
	subSchemas []parsedSubSchema
}

type parsedSubSchema struct {
	key    string
	fields *tca.FieldCollection
}

// tcaParser turns the loosely typed configuration of one table into fields and
// record type field sets.
type tcaParser struct{}

func newTCAParser() *tcaParser {
	return &tcaParser{}
}

func (p *tcaParser) parseTable(name string, config map[string]any) (*parsedTable, error) {
	if config == nil {
		return nil, tca.NewTCAError(tca.ErrorTypeConfiguration, tca.ErrCodeInvalidTCA, "table configuration is empty").WithTable(name)
	}
	ctrl := asMap(config["ctrl"])
	columns := asMap(config["columns"])

	baseFields := make([]tca.FieldType, 0, len(columns))
	for _, fieldName := range sortedKeys(columns) {
		column := asMap(columns[fieldName])
		if column == nil {
			return nil, tca.NewTCAError(tca.ErrorTypeConfiguration, tca.ErrCodeInvalidTCA, "column definition is not a map").
				WithTable(name).WithField(fieldName)
		}
		field, err := tca.NewFieldType(name, fieldName, column)
		if err != nil {
			return nil, err
		}
		baseFields = append(baseFields, field)
	}
	if tca.Truthy(ctrl["versioningWS"]) {
		for _, column := range workspaceColumns {
			if _, declared := columns[column]; !declared {
				baseFields = append(baseFields, tca.NewSystemInternalFieldType(column))
			}
		}
	}
	fields := tca.NewFieldCollection(baseFields...)

	table := &parsedTable{name: name, config: config, fields: fields}
	types := asMap(config["types"])
	palettes := asMap(config["palettes"])
	for _, key := range sortedKeys(types) {
		typeConfig := asMap(types[key])
		subFields, err := p.parseSubSchemaFields(name, key, typeConfig, palettes, columns, fields)
		if err != nil {
			return nil, err
		}
		table.subSchemas = append(table.subSchemas, parsedSubSchema{key: key, fields: subFields})
	}
	return table, nil
}

// parseSubSchemaFields resolves the fields shown for one record type. An empty
// showitem keeps every base field.
func (p *tcaParser) parseSubSchemaFields(
	table, key string,
	typeConfig, palettes, columns map[string]any,
	base *tca.FieldCollection,
) (*tca.FieldCollection, error) {
	overrides := asMap(typeConfig["columnsOverrides"])

	names := p.showItemFields(table, tca.StringOf(typeConfig["showitem"]), palettes, map[string]bool{})
	if len(names) == 0 {
		names = base.Names()
	}

	fields := make([]tca.FieldType, 0, len(names))
	for _, fieldName := range names {
		field, err := base.Get(fieldName)
		if err != nil {
			zap.S().Debugw("showitem references undeclared field; skipping", "table", table, "type", key, "field", fieldName)
			continue
		}
		if override := asMap(overrides[fieldName]); override != nil {
			column := mergeMaps(asMap(columns[fieldName]), override)
			field, err = tca.NewFieldType(table, fieldName, column)
			if err != nil {
				return nil, fmt.Errorf("columnsOverrides of type %q: %w", key, err)
			}
		}
		fields = append(fields, field)
	}
	return tca.NewFieldCollection(fields...), nil
}

// showItemFields returns field names in display order. Palettes are expanded
// in place and tabs and line breaks are skipped.
func (p *tcaParser) showItemFields(table, showItem string, palettes map[string]any, seen map[string]bool) []string {
	var names []string
	for _, item := range strings.Split(showItem, ",") {
		parts := strings.Split(strings.TrimSpace(item), ";")
		head := strings.TrimSpace(parts[0])
		switch head {
		case "", "--div--", "--linebreak--":
			continue
		case "--palette--":
			if len(parts) < 3 {
				continue
			}
			palette := strings.TrimSpace(parts[2])
			if seen[palette] {
				continue
			}
			seen[palette] = true
			paletteConfig := asMap(palettes[palette])
			if paletteConfig == nil {
				zap.S().Debugw("showitem references unknown palette", "table", table, "palette", palette)
				continue
			}
			names = append(names, p.showItemFields(table, tca.StringOf(paletteConfig["showitem"]), palettes, seen)...)
		default:
			names = append(names, head)
		}
	}
	return names
}

func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case map[any]any:
		converted := make(map[string]any, len(t))
		for k, value := range t {
			converted[fmt.Sprint(k)] = value
		}
		return converted
	}
	return nil
}

// mergeMaps merges override onto base recursively, returning a new map.
func mergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if overrideMap := asMap(v); overrideMap != nil {
			if baseMap := asMap(result[k]); baseMap != nil {
				result[k] = mergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}
