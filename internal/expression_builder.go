package internal

import "github.com/lychee-technology/tca"

// expressionBuilder emits plain expression nodes. Rendering happens later in
// SQLGenerator or Evaluator.
type expressionBuilder struct{}

var _ tca.ExpressionBuilder = expressionBuilder{}

func NewExpressionBuilder() tca.ExpressionBuilder {
	return expressionBuilder{}
}

func (expressionBuilder) And(parts ...tca.Expression) *tca.CompositeExpression {
	return (&tca.CompositeExpression{Logic: tca.LogicAnd}).With(parts...)
}

func (expressionBuilder) Or(parts ...tca.Expression) *tca.CompositeExpression {
	return (&tca.CompositeExpression{Logic: tca.LogicOr}).With(parts...)
}

func (expressionBuilder) Eq(column tca.Column, value any) tca.Expression {
	return &tca.Comparison{Column: column, Operator: tca.OpEq, Value: value}
}

func (expressionBuilder) Neq(column tca.Column, value any) tca.Expression {
	return &tca.Comparison{Column: column, Operator: tca.OpNeq, Value: value}
}

func (expressionBuilder) Lt(column tca.Column, value any) tca.Expression {
	return &tca.Comparison{Column: column, Operator: tca.OpLt, Value: value}
}

func (expressionBuilder) Lte(column tca.Column, value any) tca.Expression {
	return &tca.Comparison{Column: column, Operator: tca.OpLte, Value: value}
}

func (expressionBuilder) Gt(column tca.Column, value any) tca.Expression {
	return &tca.Comparison{Column: column, Operator: tca.OpGt, Value: value}
}

func (expressionBuilder) Gte(column tca.Column, value any) tca.Expression {
	return &tca.Comparison{Column: column, Operator: tca.OpGte, Value: value}
}

func (expressionBuilder) IsNull(column tca.Column) tca.Expression {
	return &tca.NullCheck{Column: column}
}

func (expressionBuilder) InSet(column tca.Column, value string) tca.Expression {
	return &tca.SetMembership{Column: column, Value: value}
}

func (expressionBuilder) In(column tca.Column, values ...any) tca.Expression {
	return &tca.InList{Column: column, Values: values}
}
