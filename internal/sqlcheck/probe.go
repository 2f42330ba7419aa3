// Package sqlcheck runs rendered restrictions against rows loaded into DuckDB.
package sqlcheck

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/lychee-technology/tca"
	"github.com/lychee-technology/tca/internal"
	"go.uber.org/zap"
)

// Probe loads rows of one table into a temporary DuckDB table and returns the
// uids a restriction lets through.
type Probe struct {
	client    *internal.DuckDBClient
	generator *internal.SQLGenerator
	builder   tca.ExpressionBuilder
}

func NewProbe(client *internal.DuckDBClient) *Probe {
	return &Probe{
		client:    client,
		generator: internal.NewSQLGenerator(internal.DialectDuckDB),
		builder:   internal.NewExpressionBuilder(),
	}
}

// VisibleUIDs returns the uids of rows matching the restriction, in ascending
// order. Columns a row omits take their defaults (0 or ''), explicit nil
// values are stored as NULL.
func (p *Probe) VisibleUIDs(
	ctx context.Context,
	schema *tca.Schema,
	rows []tca.Row,
	restriction tca.RestrictionBuilder,
	tc *tca.Context,
) ([]int64, error) {
	table := schema.Table()
	expr, err := restriction.BuildExpression(tca.QueriedTables{table: table}, p.builder, tc)
	if err != nil {
		return nil, err
	}
	where, args, err := p.generator.ToSQL(expr, nil)
	if err != nil {
		return nil, err
	}

	conn, err := p.client.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire duckdb connection: %w", err)
	}
	defer conn.Close()

	columns := columnTypes(schema, rows)
	quoted := pq.QuoteIdentifier(table)
	if _, err := conn.ExecContext(ctx, createTableSQL(quoted, columns)); err != nil {
		return nil, fmt.Errorf("create probe table: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+quoted); err != nil {
			zap.S().Warnw("failed to drop probe table", "table", table, "error", err)
		}
	}()

	for _, row := range rows {
		names := sortedKeys(row)
		placeholders := make([]string, len(names))
		values := make([]any, len(names))
		for i, name := range names {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			values[i] = columnValue(columns[name], row[name])
			names[i] = pq.QuoteIdentifier(name)
		}
		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoted, strings.Join(names, ", "), strings.Join(placeholders, ", "))
		if _, err := conn.ExecContext(ctx, insert, values...); err != nil {
			return nil, fmt.Errorf("insert probe row: %w", err)
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s", pq.QuoteIdentifier("uid"), quoted)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + pq.QuoteIdentifier("uid")
	zap.S().Debugw("probing restriction", "table", table, "sql", query, "args", args)

	result, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("run probe query: %w", err)
	}
	defer result.Close()

	uids := []int64{}
	for result.Next() {
		var uid int64
		if err := result.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan probe uid: %w", err)
		}
		uids = append(uids, uid)
	}
	return uids, result.Err()
}

type columnType string

const (
	columnBigInt  columnType = "BIGINT"
	columnDouble  columnType = "DOUBLE"
	columnVarchar columnType = "VARCHAR"
)

// columnTypes infers a type per column from the row values. Restriction
// columns of the schema are always present so rendered predicates resolve.
func columnTypes(schema *tca.Schema, rows []tca.Row) map[string]columnType {
	columns := map[string]columnType{"uid": columnBigInt, "pid": columnBigInt}
	for _, c := range []tca.Capability{
		tca.CapabilitySoftDelete,
		tca.CapabilityRestrictionDisabledField,
		tca.CapabilityRestrictionStartTime,
		tca.CapabilityRestrictionEndTime,
	} {
		if field, err := schema.CapabilityFieldName(c); err == nil {
			columns[field] = columnBigInt
		}
	}
	if field, err := schema.CapabilityFieldName(tca.CapabilityRestrictionUserGroup); err == nil {
		columns[field] = columnVarchar
	}

	for _, row := range rows {
		for name, value := range row {
			current, known := columns[name]
			inferred := inferType(value)
			switch {
			case !known:
				columns[name] = inferred
			case inferred == columnVarchar && current != columnVarchar && value != nil && !isNumericString(value):
				columns[name] = columnVarchar
			case inferred == columnDouble && current == columnBigInt:
				columns[name] = columnDouble
			}
		}
	}
	return columns
}

func inferType(value any) columnType {
	switch v := value.(type) {
	case nil:
		return columnVarchar
	case string, []byte:
		return columnVarchar
	case float32:
		return columnDouble
	case float64:
		if v != float64(int64(v)) {
			return columnDouble
		}
		return columnBigInt
	}
	return columnBigInt
}

func isNumericString(value any) bool {
	_, ok := tca.IntValue(value)
	return ok
}

func columnValue(t columnType, value any) any {
	if value == nil {
		return nil
	}
	switch t {
	case columnBigInt:
		if i, ok := tca.IntValue(value); ok {
			return i
		}
		return nil
	case columnDouble:
		if f, ok := value.(float64); ok {
			return f
		}
		if i, ok := tca.IntValue(value); ok {
			return float64(i)
		}
		return nil
	}
	return tca.StringOf(value)
}

func createTableSQL(quoted string, columns map[string]columnType) string {
	defs := make([]string, 0, len(columns))
	for _, name := range sortedKeys(columns) {
		t := columns[name]
		def := fmt.Sprintf("%s %s", pq.QuoteIdentifier(name), t)
		if t == columnVarchar {
			def += " DEFAULT ''"
		} else {
			def += " DEFAULT 0"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE OR REPLACE TEMP TABLE %s (%s)", quoted, strings.Join(defs, ", "))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
