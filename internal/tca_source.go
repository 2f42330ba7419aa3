package internal

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/tca"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/tca_document.json
var tcaDocumentSchema []byte

var (
	documentSchemaOnce     sync.Once
	documentSchemaResolved *jsonschema.Resolved
	documentSchemaErr      error
)

func resolvedDocumentSchema() (*jsonschema.Resolved, error) {
	documentSchemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal(tcaDocumentSchema, &schema); err != nil {
			documentSchemaErr = fmt.Errorf("failed to unmarshal into jsonschema.Schema: %w", err)
			return
		}
		documentSchemaResolved, documentSchemaErr = schema.Resolve(&jsonschema.ResolveOptions{})
		if documentSchemaErr != nil {
			documentSchemaErr = fmt.Errorf("failed to resolve document schema: %w", documentSchemaErr)
		}
	})
	return documentSchemaResolved, documentSchemaErr
}

// documentFormat is the encoding of one table configuration document.
type documentFormat string

const (
	formatJSON documentFormat = "json"
	formatYAML documentFormat = "yaml"
)

// documentName splits a file or object name into its table name and format.
// ok is false for names that are not configuration documents.
func documentName(name string) (table string, format documentFormat, ok bool) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := path.Ext(base)
	table = strings.TrimSuffix(base, ext)
	if table == "" || strings.HasPrefix(base, ".") {
		return "", "", false
	}
	switch strings.ToLower(ext) {
	case ".json":
		return table, formatJSON, true
	case ".yaml", ".yml":
		return table, formatYAML, true
	}
	return "", "", false
}

// documentDecoder turns raw documents into table configurations. Decoded values
// are normalized to the JSON data model so every source yields identical maps.
type documentDecoder struct {
	validate bool
}

func (d documentDecoder) decode(table string, format documentFormat, data []byte) (map[string]any, error) {
	var decoded any
	switch format {
	case formatJSON:
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, documentError(table, "failed to parse JSON document", err)
		}
	case formatYAML:
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, documentError(table, "failed to parse YAML document", err)
		}
		normalized, err := json.Marshal(raw)
		if err != nil {
			return nil, documentError(table, "YAML document cannot be represented as JSON", err)
		}
		if err := json.Unmarshal(normalized, &decoded); err != nil {
			return nil, documentError(table, "failed to normalize YAML document", err)
		}
	default:
		return nil, documentError(table, fmt.Sprintf("unsupported document format %q", format), nil)
	}

	config, ok := decoded.(map[string]any)
	if !ok {
		return nil, documentError(table, "document root must be an object", nil)
	}
	if d.validate {
		schema, err := resolvedDocumentSchema()
		if err != nil {
			return nil, tca.NewTCAError(tca.ErrorTypeInternal, tca.ErrCodeDocumentInvalid, "document schema is unusable").WithCause(err)
		}
		if err := schema.Validate(config); err != nil {
			return nil, documentError(table, "document does not match the table configuration shape", err)
		}
	}
	return config, nil
}

func documentError(table, message string, cause error) *tca.TCAError {
	err := tca.NewTCAError(tca.ErrorTypeValidation, tca.ErrCodeDocumentInvalid, message).WithTable(table)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}

// collect adds one table configuration, rejecting a second document for the same table.
func collect(result tca.RawTCA, table, origin string, config map[string]any) error {
	if _, exists := result[table]; exists {
		return tca.NewTCAError(tca.ErrorTypeConfiguration, tca.ErrCodeDuplicateTable,
			fmt.Sprintf("table is configured more than once (%s)", origin)).WithTable(table)
	}
	result[table] = config
	return nil
}

// StaticSource serves configuration that is already in memory.
type StaticSource struct {
	name string
	raw  tca.RawTCA
}

func NewStaticSource(name string, raw tca.RawTCA) *StaticSource {
	return &StaticSource{name: name, raw: raw}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Load(_ context.Context) (tca.RawTCA, error) {
	return s.raw, nil
}
