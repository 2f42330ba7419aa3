package tca

import "fmt"

// Logic joins the parts of a CompositeExpression.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Operator is a binary comparison operator.
type Operator string

const (
	OpEq  Operator = "="
	OpNeq Operator = "<>"
	OpLt  Operator = "<"
	OpLte Operator = "<="
	OpGt  Operator = ">"
	OpGte Operator = ">="
)

// Column is a column qualified by the alias of its table in the query.
type Column struct {
	Alias string `json:"alias"`
	Field string `json:"field"`
}

func (c Column) String() string {
	if c.Alias == "" {
		return c.Field
	}
	return c.Alias + "." + c.Field
}

// Expression is a node of a predicate tree. The set of node types is closed.
type Expression interface {
	fmt.Stringer
	isExpression()
}

// CompositeExpression joins its parts with AND or OR. An empty composite is neutral
// and renders to nothing.
type CompositeExpression struct {
	Logic Logic        `json:"logic"`
	Parts []Expression `json:"parts"`
}

// Comparison compares a column with a literal.
type Comparison struct {
	Column   Column   `json:"column"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// NullCheck is "column IS NULL".
type NullCheck struct {
	Column Column `json:"column"`
}

// SetMembership is true when Value is an element of the comma separated list in Column.
type SetMembership struct {
	Column Column `json:"column"`
	Value  string `json:"value"`
}

// InList is "column IN (values)".
type InList struct {
	Column Column `json:"column"`
	Values []any  `json:"values"`
}

func (*CompositeExpression) isExpression() {}
func (*Comparison) isExpression()          {}
func (*NullCheck) isExpression()           {}
func (*SetMembership) isExpression()       {}
func (*InList) isExpression()              {}

// Count returns the number of parts.
func (c *CompositeExpression) Count() int {
	if c == nil {
		return 0
	}
	return len(c.Parts)
}

// With returns a copy with additional parts. Nil parts and empty composites are dropped.
func (c *CompositeExpression) With(parts ...Expression) *CompositeExpression {
	result := &CompositeExpression{Logic: c.Logic, Parts: append([]Expression(nil), c.Parts...)}
	for _, part := range parts {
		if part == nil {
			continue
		}
		if composite, ok := part.(*CompositeExpression); ok && composite.Count() == 0 {
			continue
		}
		result.Parts = append(result.Parts, part)
	}
	return result
}

func (c *CompositeExpression) String() string {
	if c.Count() == 0 {
		return ""
	}
	joiner := " AND "
	if c.Logic == LogicOr {
		joiner = " OR "
	}
	out := "("
	for i, part := range c.Parts {
		if i > 0 {
			out += joiner
		}
		out += part.String()
	}
	return out + ")"
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %#v", c.Column, c.Operator, c.Value)
}

func (n *NullCheck) String() string {
	return n.Column.String() + " IS NULL"
}

func (s *SetMembership) String() string {
	return fmt.Sprintf("FIND_IN_SET(%q, %s)", s.Value, s.Column)
}

func (in *InList) String() string {
	return fmt.Sprintf("%s IN %v", in.Column, in.Values)
}

// ExpressionBuilder emits predicate nodes for restrictions.
type ExpressionBuilder interface {
	And(parts ...Expression) *CompositeExpression
	Or(parts ...Expression) *CompositeExpression
	Eq(column Column, value any) Expression
	Neq(column Column, value any) Expression
	Lt(column Column, value any) Expression
	Lte(column Column, value any) Expression
	Gt(column Column, value any) Expression
	Gte(column Column, value any) Expression
	IsNull(column Column) Expression
	InSet(column Column, value string) Expression
	In(column Column, values ...any) Expression
}
