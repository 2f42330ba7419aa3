package internal

import (
	"testing"

	"github.com/lychee-technology/tca"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLGenerator_ToSQL(t *testing.T) {
	b := NewExpressionBuilder()
	hidden := tca.Column{Alias: "tt_content", Field: "hidden"}
	starttime := tca.Column{Alias: "tt_content", Field: "starttime"}
	endtime := tca.Column{Alias: "tt_content", Field: "endtime"}
	group := tca.Column{Alias: "tt_content", Field: "fe_group"}

	tests := []struct {
		name     string
		dialect  Dialect
		expr     tca.Expression
		expected string
		args     []any
	}{
		{
			name:     "nil expression",
			expr:     nil,
			expected: "",
		},
		{
			name:     "empty composite",
			expr:     b.And(),
			expected: "",
		},
		{
			name:     "single comparison",
			expr:     b.Eq(hidden, 0),
			expected: `"tt_content"."hidden" = $1`,
			args:     []any{0},
		},
		{
			name:     "composite with one part keeps its parentheses",
			expr:     b.And(b.Eq(hidden, 0)),
			expected: `("tt_content"."hidden" = $1)`,
			args:     []any{0},
		},
		{
			name: "time window",
			expr: b.And(
				b.Eq(hidden, 0),
				b.Lte(starttime, int64(1700000000)),
				b.Or(b.Eq(endtime, 0), b.Gt(endtime, int64(1700000000))),
			),
			expected: `(("tt_content"."hidden" = $1) AND ("tt_content"."starttime" <= $2) AND ((("tt_content"."endtime" = $3) OR ("tt_content"."endtime" > $4))))`,
			args:     []any{0, int64(1700000000), 0, int64(1700000000)},
		},
		{
			name: "empty child composite is skipped",
			expr: &tca.CompositeExpression{Logic: tca.LogicOr, Parts: []tca.Expression{
				&tca.CompositeExpression{Logic: tca.LogicAnd},
				b.IsNull(group),
			}},
			expected: `("tt_content"."fe_group" IS NULL)`,
		},
		{
			name:     "unaliased column",
			expr:     b.Neq(tca.Column{Field: "deleted"}, 1),
			expected: `"deleted" <> $1`,
			args:     []any{1},
		},
		{
			name:     "set membership on postgres",
			dialect:  DialectPostgres,
			expr:     b.InSet(group, "-2"),
			expected: `$1 = ANY(string_to_array("tt_content"."fe_group", ','))`,
			args:     []any{"-2"},
		},
		{
			name:     "set membership on duckdb",
			dialect:  DialectDuckDB,
			expr:     b.InSet(group, "-2"),
			expected: `list_contains(string_split("tt_content"."fe_group", ','), $1)`,
			args:     []any{"-2"},
		},
		{
			name:     "in list",
			expr:     b.In(group, "", "0"),
			expected: `"tt_content"."fe_group" IN ($1, $2)`,
			args:     []any{"", "0"},
		},
		{
			name:     "empty in list",
			expr:     b.In(group),
			expected: "FALSE",
		},
		{
			name:     "identifiers are quoted",
			expr:     b.Eq(tca.Column{Alias: `we"ird`, Field: "uid"}, 1),
			expected: `"we""ird"."uid" = $1`,
			args:     []any{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := NewSQLGenerator(tt.dialect).ToSQL(tt.expr, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestSQLGenerator_ParamIndexContinues(t *testing.T) {
	b := NewExpressionBuilder()
	generator := NewSQLGenerator("")
	assert.Equal(t, DialectPostgres, generator.Dialect())

	index := 3
	sql, args, err := generator.ToSQL(b.Or(
		b.Eq(tca.Column{Alias: "p", Field: "hidden"}, 0),
		b.InSet(tca.Column{Alias: "p", Field: "fe_group"}, "4"),
	), &index)
	require.NoError(t, err)
	assert.Equal(t, `(("p"."hidden" = $4) OR ($5 = ANY(string_to_array("p"."fe_group", ','))))`, sql)
	assert.Equal(t, []any{0, "4"}, args)
	assert.Equal(t, 5, index)
}

func TestSQLGenerator_Errors(t *testing.T) {
	col := tca.Column{Alias: "pages", Field: "hidden"}

	tests := []struct {
		name    string
		dialect Dialect
		expr    tca.Expression
	}{
		{name: "null literal", expr: &tca.Comparison{Column: col, Operator: tca.OpEq, Value: nil}},
		{name: "unknown operator", expr: &tca.Comparison{Column: col, Operator: "LIKE", Value: "x"}},
		{name: "unknown logic", expr: &tca.CompositeExpression{Logic: "xor", Parts: []tca.Expression{&tca.NullCheck{Column: col}}}},
		{name: "nested failure", expr: &tca.CompositeExpression{Logic: tca.LogicAnd, Parts: []tca.Expression{
			&tca.NullCheck{Column: col},
			&tca.Comparison{Column: col, Operator: tca.OpGt, Value: nil},
		}}},
		{name: "unknown dialect", dialect: "mysql", expr: &tca.SetMembership{Column: col, Value: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewSQLGenerator(tt.dialect).ToSQL(tt.expr, nil)
			require.Error(t, err)
			var tcaErr *tca.TCAError
			require.ErrorAs(t, err, &tcaErr)
			assert.Equal(t, tca.ErrCodeRenderFailed, tcaErr.Code)
			assert.Equal(t, tca.ErrorTypeQuery, tcaErr.Type)
		})
	}
}
