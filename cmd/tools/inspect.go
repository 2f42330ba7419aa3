package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lychee-technology/tca"
	"github.com/lychee-technology/tca/factory"
	"github.com/lychee-technology/tca/internal"
	"go.uber.org/zap"
)

type fieldSummary struct {
	Name string        `json:"name"`
	Type tca.FieldKind `json:"type"`
}

type tableSummary struct {
	Table            string                `json:"table"`
	Title            string                `json:"title,omitempty"`
	Capabilities     []string              `json:"capabilities"`
	Fields           []fieldSummary        `json:"fields"`
	TypeField        string                `json:"typeField,omitempty"`
	SubSchemas       map[string][]string   `json:"subSchemas,omitempty"`
	ActiveRelations  []tca.ActiveRelation  `json:"activeRelations,omitempty"`
	PassiveRelations []tca.PassiveRelation `json:"passiveRelations,omitempty"`
}

func runValidate(args []string) error {
	flags := flag.NewFlagSet("validate", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: tca-tools validate -dir <directory>")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}
	dir := flags.String("dir", "tca", "Directory containing one document per table")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	resolver := internal.NewSchemaResolver(nil)
	set, err := resolver.Rebuild(context.Background(), internal.NewFileSource(*dir, true))
	if err != nil {
		return err
	}
	zap.S().Infow("configuration is valid", "dir", *dir, "tables", len(set.Tables()), "generation", set.Generation())
	return nil
}

func runInspect(args []string) error {
	flags := flag.NewFlagSet("inspect", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: tca-tools inspect [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}
	configPath := flags.String("config", "", "Path to the YAML configuration (TCA_* variables apply on top)")
	table := flags.String("table", "", "Only print this table")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx := context.Background()
	rt, err := loadRuntime(ctx, *configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	summaries, err := summarize(rt.Resolver, *table)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, summaries)
}

func loadRuntime(ctx context.Context, configPath string) (*factory.Runtime, error) {
	cfg, err := tca.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return factory.NewRuntime(ctx, cfg)
}

// summarize describes every published table, or only the named one.
func summarize(schemas tca.SchemaResolver, only string) ([]tableSummary, error) {
	tables := schemas.Tables()
	if only != "" {
		if !schemas.Has(only) {
			return nil, tca.NewUndefinedSchemaError(only)
		}
		tables = []string{only}
	}

	summaries := make([]tableSummary, 0, len(tables))
	for _, name := range tables {
		schema, err := schemas.Get(name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarizeSchema(schema))
	}
	return summaries, nil
}

func summarizeSchema(schema *tca.Schema) tableSummary {
	summary := tableSummary{
		Table:            schema.Table(),
		Title:            schema.Title(),
		Capabilities:     schema.SortedCapabilityNames(),
		Fields:           make([]fieldSummary, 0, schema.Fields().Len()),
		ActiveRelations:  schema.ActiveRelations(),
		PassiveRelations: schema.PassiveRelations(),
	}
	for _, field := range schema.Fields().All() {
		summary.Fields = append(summary.Fields, fieldSummary{Name: field.Name(), Type: field.Type()})
	}
	if info := schema.SubSchemaTypeInformation(); info != nil {
		summary.TypeField = info.FieldName
	}
	if keys := schema.SubSchemaKeys(); len(keys) > 0 {
		summary.SubSchemas = make(map[string][]string, len(keys))
		for _, key := range keys {
			sub, err := schema.SubSchema(key)
			if err != nil {
				continue
			}
			summary.SubSchemas[key] = sub.Fields().Names()
		}
	}
	return summary
}

func sortedTables(raw tca.RawTCA) []string {
	tables := make([]string, 0, len(raw))
	for table := range raw {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
