package internal

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/lychee-technology/tca"
)

// Dialect selects the SQL flavor the generator renders.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectDuckDB   Dialect = "duckdb"
)

// SQLGenerator converts expression trees into SQL fragments and argument lists.
type SQLGenerator struct {
	dialect Dialect
}

// NewSQLGenerator constructs a SQLGenerator. An empty dialect means postgres.
func NewSQLGenerator(dialect Dialect) *SQLGenerator {
	if dialect == "" {
		dialect = DialectPostgres
	}
	return &SQLGenerator{dialect: dialect}
}

func (g *SQLGenerator) Dialect() Dialect { return g.dialect }

// ToSQL renders expr with $n placeholders starting after *paramIndex, which is
// advanced past the last placeholder used. An empty expression renders "".
func (g *SQLGenerator) ToSQL(expr tca.Expression, paramIndex *int) (string, []any, error) {
	if expr == nil {
		return "", nil, nil
	}
	if paramIndex == nil {
		start := 0
		paramIndex = &start
	}
	return g.buildExpression(expr, paramIndex)
}

func (g *SQLGenerator) buildExpression(expr tca.Expression, paramIndex *int) (string, []any, error) {
	switch e := expr.(type) {
	case *tca.CompositeExpression:
		return g.buildComposite(e, paramIndex)
	case *tca.Comparison:
		return g.buildComparison(e, paramIndex)
	case *tca.NullCheck:
		return g.column(e.Column) + " IS NULL", nil, nil
	case *tca.SetMembership:
		return g.buildSetMembership(e, paramIndex)
	case *tca.InList:
		return g.buildInList(e, paramIndex)
	default:
		return "", nil, renderError(fmt.Sprintf("unsupported expression type %T", expr))
	}
}

func (g *SQLGenerator) buildComposite(c *tca.CompositeExpression, paramIndex *int) (string, []any, error) {
	if c == nil || len(c.Parts) == 0 {
		return "", nil, nil
	}

	var sqlJoiner string
	switch c.Logic {
	case tca.LogicAnd:
		sqlJoiner = " AND "
	case tca.LogicOr:
		sqlJoiner = " OR "
	default:
		return "", nil, renderError(fmt.Sprintf("unknown logic: %s", c.Logic))
	}

	var childClauses []string
	var allArgs []any
	for _, part := range c.Parts {
		sql, args, err := g.buildExpression(part, paramIndex)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		childClauses = append(childClauses, fmt.Sprintf("(%s)", sql))
		allArgs = append(allArgs, args...)
	}

	if len(childClauses) == 0 {
		return "", nil, nil
	}
	if len(childClauses) == 1 {
		return childClauses[0], allArgs, nil
	}
	return "(" + strings.Join(childClauses, sqlJoiner) + ")", allArgs, nil
}

func (g *SQLGenerator) buildComparison(c *tca.Comparison, paramIndex *int) (string, []any, error) {
	switch c.Operator {
	case tca.OpEq, tca.OpNeq, tca.OpLt, tca.OpLte, tca.OpGt, tca.OpGte:
	default:
		return "", nil, renderError(fmt.Sprintf("unknown operator: %s", c.Operator))
	}
	if c.Value == nil {
		return "", nil, renderError(fmt.Sprintf("comparison of %s with NULL; use a null check", c.Column))
	}
	return fmt.Sprintf("%s %s %s", g.column(c.Column), c.Operator, nextParam(paramIndex)), []any{c.Value}, nil
}

func (g *SQLGenerator) buildSetMembership(s *tca.SetMembership, paramIndex *int) (string, []any, error) {
	placeholder := nextParam(paramIndex)
	column := g.column(s.Column)
	switch g.dialect {
	case DialectDuckDB:
		return fmt.Sprintf("list_contains(string_split(%s, ','), %s)", column, placeholder), []any{s.Value}, nil
	case DialectPostgres:
		return fmt.Sprintf("%s = ANY(string_to_array(%s, ','))", placeholder, column), []any{s.Value}, nil
	}
	return "", nil, renderError(fmt.Sprintf("unknown dialect: %s", g.dialect))
}

func (g *SQLGenerator) buildInList(in *tca.InList, paramIndex *int) (string, []any, error) {
	if len(in.Values) == 0 {
		return "FALSE", nil, nil
	}
	placeholders := make([]string, len(in.Values))
	args := make([]any, len(in.Values))
	for i, value := range in.Values {
		placeholders[i] = nextParam(paramIndex)
		args[i] = value
	}
	return fmt.Sprintf("%s IN (%s)", g.column(in.Column), strings.Join(placeholders, ", ")), args, nil
}

func (g *SQLGenerator) column(c tca.Column) string {
	if c.Alias == "" {
		return pq.QuoteIdentifier(c.Field)
	}
	return pq.QuoteIdentifier(c.Alias) + "." + pq.QuoteIdentifier(c.Field)
}

func nextParam(paramIndex *int) string {
	*paramIndex++
	return fmt.Sprintf("$%d", *paramIndex)
}

func renderError(message string) error {
	return tca.NewTCAError(tca.ErrorTypeQuery, tca.ErrCodeRenderFailed, message)
}
