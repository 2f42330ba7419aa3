package internal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lychee-technology/tca"
)

// truth is a SQL truth value.
type truth int8

const (
	truthFalse truth = iota
	truthTrue
	truthUnknown
)

func truthOf(b bool) truth {
	if b {
		return truthTrue
	}
	return truthFalse
}

// Evaluator evaluates expression trees against fetched rows with SQL
// semantics: comparisons with NULL are unknown and unknown filters a row out.
// Columns missing from a row read as NULL.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate reports whether the rows, keyed by query alias, satisfy expr. A nil
// or empty expression matches everything.
func (e *Evaluator) Evaluate(expr tca.Expression, rows map[string]tca.Row) (bool, error) {
	if expr == nil {
		return true, nil
	}
	result, err := e.eval(expr, rows)
	if err != nil {
		return false, err
	}
	return result == truthTrue, nil
}

func (e *Evaluator) eval(expr tca.Expression, rows map[string]tca.Row) (truth, error) {
	switch x := expr.(type) {
	case *tca.CompositeExpression:
		return e.evalComposite(x, rows)
	case *tca.Comparison:
		value, err := lookup(x.Column, rows)
		if err != nil {
			return truthUnknown, err
		}
		return compare(value, x.Operator, x.Value)
	case *tca.NullCheck:
		value, err := lookup(x.Column, rows)
		if err != nil {
			return truthUnknown, err
		}
		return truthOf(value == nil), nil
	case *tca.SetMembership:
		value, err := lookup(x.Column, rows)
		if err != nil {
			return truthUnknown, err
		}
		if value == nil {
			return truthUnknown, nil
		}
		for _, item := range strings.Split(tca.StringOf(value), ",") {
			if item == x.Value {
				return truthTrue, nil
			}
		}
		return truthFalse, nil
	case *tca.InList:
		return e.evalInList(x, rows)
	}
	return truthUnknown, evaluateError(fmt.Sprintf("unsupported expression type %T", expr))
}

func (e *Evaluator) evalComposite(c *tca.CompositeExpression, rows map[string]tca.Row) (truth, error) {
	if c.Count() == 0 {
		return truthTrue, nil
	}
	var short truth
	switch c.Logic {
	case tca.LogicAnd:
		short = truthFalse
	case tca.LogicOr:
		short = truthTrue
	default:
		return truthUnknown, evaluateError(fmt.Sprintf("unknown logic: %s", c.Logic))
	}

	sawUnknown := false
	for _, part := range c.Parts {
		result, err := e.eval(part, rows)
		if err != nil {
			return truthUnknown, err
		}
		if result == short {
			return short, nil
		}
		if result == truthUnknown {
			sawUnknown = true
		}
	}
	if sawUnknown {
		return truthUnknown, nil
	}
	if short == truthFalse {
		return truthTrue, nil
	}
	return truthFalse, nil
}

func (e *Evaluator) evalInList(in *tca.InList, rows map[string]tca.Row) (truth, error) {
	value, err := lookup(in.Column, rows)
	if err != nil {
		return truthUnknown, err
	}
	if value == nil {
		return truthUnknown, nil
	}
	sawUnknown := false
	for _, candidate := range in.Values {
		result, err := compare(value, tca.OpEq, candidate)
		if err != nil {
			return truthUnknown, err
		}
		switch result {
		case truthTrue:
			return truthTrue, nil
		case truthUnknown:
			sawUnknown = true
		}
	}
	if sawUnknown {
		return truthUnknown, nil
	}
	return truthFalse, nil
}

func lookup(column tca.Column, rows map[string]tca.Row) (any, error) {
	row, ok := rows[column.Alias]
	if !ok {
		return nil, evaluateError(fmt.Sprintf("no row bound to alias %q", column.Alias))
	}
	return row[column.Field], nil
}

// compare orders two scalars. Two strings compare as text, anything else
// numerically when both sides are numbers.
func compare(left any, op tca.Operator, right any) (truth, error) {
	if left == nil || right == nil {
		return truthUnknown, nil
	}
	var order int
	_, leftIsString := left.(string)
	_, rightIsString := right.(string)
	l, lok := numeric(left)
	r, rok := numeric(right)
	switch {
	case !(leftIsString && rightIsString) && lok && rok:
		order = compareFloat(l, r)
	default:
		order = strings.Compare(tca.StringOf(left), tca.StringOf(right))
	}

	switch op {
	case tca.OpEq:
		return truthOf(order == 0), nil
	case tca.OpNeq:
		return truthOf(order != 0), nil
	case tca.OpLt:
		return truthOf(order < 0), nil
	case tca.OpLte:
		return truthOf(order <= 0), nil
	case tca.OpGt:
		return truthOf(order > 0), nil
	case tca.OpGte:
		return truthOf(order >= 0), nil
	}
	return truthUnknown, evaluateError(fmt.Sprintf("unknown operator: %s", op))
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case bool:
		return 0, false
	}
	i, ok := tca.IntValue(v)
	return float64(i), ok
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func evaluateError(message string) error {
	return tca.NewTCAError(tca.ErrorTypeQuery, tca.ErrCodeEvaluateFailed, message)
}
