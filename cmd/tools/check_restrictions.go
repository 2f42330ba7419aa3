package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lychee-technology/tca"
	"github.com/lychee-technology/tca/internal"
	"github.com/lychee-technology/tca/internal/sqlcheck"
	"go.uber.org/zap"
)

type rowVerdict struct {
	UID     int64 `json:"uid"`
	Voter   bool  `json:"voter"`
	SQL     bool  `json:"sql"`
	Visible bool  `json:"visible"`
}

type restrictionReport struct {
	Table      string       `json:"table"`
	AccessTime time.Time    `json:"accessTime"`
	Rows       []rowVerdict `json:"rows"`
	Mismatches []int64      `json:"mismatches"`
}

func runCheckRestrictions(args []string) error {
	flags := flag.NewFlagSet("check-restrictions", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: tca-tools check-restrictions -table <table> -rows <rows.json> [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}
	configPath := flags.String("config", "", "Path to the YAML configuration (TCA_* variables apply on top)")
	table := flags.String("table", "", "Table the rows belong to")
	rowsFile := flags.String("rows", "", "JSON file holding an array of rows")
	accessTime := flags.Int64("access-time", 0, "Access time as unix seconds (defaults to now)")
	groups := flags.String("groups", "", "Comma separated frontend group ids; set to log in a user")
	includeHidden := flags.Bool("include-hidden", false, "Include hidden pages and content")
	includeDeleted := flags.Bool("include-deleted", false, "Include soft deleted records")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *table == "" || *rowsFile == "" {
		return fmt.Errorf("-table and -rows are required")
	}

	rows, err := readRows(*rowsFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	rt, err := loadRuntime(ctx, *configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	duck, err := internal.NewDuckDBClient(ctx, rt.Config.DuckDB)
	if err != nil {
		return err
	}
	defer duck.Close()

	now := time.Now()
	if *accessTime > 0 {
		now = time.Unix(*accessTime, 0)
	}
	tc := buildContext(now, *groups, *includeHidden, *includeDeleted)

	report, err := checkRestrictions(ctx, rt.Resolver, rt.Voter, rt.Restrictions, sqlcheck.NewProbe(duck), *table, rows, tc)
	if err != nil {
		return err
	}
	if err := writeJSON(os.Stdout, report); err != nil {
		return err
	}
	if len(report.Mismatches) > 0 {
		return fmt.Errorf("voter and sql disagree on %d rows: %v", len(report.Mismatches), report.Mismatches)
	}
	return nil
}

func readRows(path string) ([]tca.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	var rows []tca.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse rows: %w", err)
	}
	return rows, nil
}

func buildContext(accessTime time.Time, groups string, includeHidden, includeDeleted bool) *tca.Context {
	user := tca.NewAnonymousUser()
	if groups != "" {
		user = tca.NewLoggedInUser(tca.IntList(groups)...)
	}
	return tca.NewContext(accessTime).
		WithUser(user).
		WithVisibility(tca.VisibilityAspect{
			IncludeHiddenPages:    includeHidden,
			IncludeHiddenContent:  includeHidden,
			IncludeDeletedRecords: includeDeleted,
		})
}

// checkRestrictions runs every row through the voter and the rendered enable
// fields restriction. The voter does not look at soft deletion, so Visible
// reports the full restriction set separately.
func checkRestrictions(
	ctx context.Context,
	schemas tca.SchemaResolver,
	voter tca.AccessVoter,
	restrictions tca.RestrictionBuilder,
	probe *sqlcheck.Probe,
	table string,
	rows []tca.Row,
	tc *tca.Context,
) (*restrictionReport, error) {
	schema, err := schemas.Get(table)
	if err != nil {
		return nil, err
	}

	report := &restrictionReport{Table: table, AccessTime: tc.AccessTime, Rows: make([]rowVerdict, 0, len(rows)), Mismatches: []int64{}}
	for i, row := range rows {
		uid, ok := tca.IntValue(row["uid"])
		if !ok {
			return nil, tca.NewInvalidArgumentError(table, fmt.Sprintf("row %d has no uid", i)).WithField("uid")
		}
		granted, err := voter.AccessGranted(ctx, table, row, tc)
		if err != nil {
			return nil, err
		}
		report.Rows = append(report.Rows, rowVerdict{UID: uid, Voter: granted})
	}

	matched, err := probe.VisibleUIDs(ctx, schema, rows, internal.NewEnableFieldsRestriction(schemas), tc)
	if err != nil {
		return nil, err
	}
	visible, err := probe.VisibleUIDs(ctx, schema, rows, restrictions, tc)
	if err != nil {
		return nil, err
	}
	inMatched := internal.NewSet(matched...)
	inVisible := internal.NewSet(visible...)

	for i := range report.Rows {
		verdict := &report.Rows[i]
		verdict.SQL = inMatched.Contains(verdict.UID)
		verdict.Visible = inVisible.Contains(verdict.UID)
		if verdict.SQL != verdict.Voter {
			report.Mismatches = append(report.Mismatches, verdict.UID)
		}
	}
	zap.S().Infow("checked restrictions", "table", table, "rows", len(rows), "mismatches", len(report.Mismatches))
	return report, nil
}
