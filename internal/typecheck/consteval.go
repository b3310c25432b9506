package typecheck

import (
	"github.com/gurre/dimcalc/internal/ast"
	"github.com/gurre/dimcalc/internal/rational"
)

// constEval restrictedly evaluates expr to an exact Rational, per
// spec.md §4.3.1. It supports integer/decimal scalars, unary negate, and
// the four arithmetic operators; everything else is rejected.
func constEval(expr ast.Expr) (rational.Rational, error) {
	switch e := expr.(type) {
	case *ast.ScalarLit:
		r, err := rational.FromFloat(e.Value)
		if err != nil {
			return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "non-finite literal", Pos: e.Pos()}
		}
		return r, nil
	case *ast.Negate:
		v, err := constEval(e.Operand)
		if err != nil {
			return rational.Zero, err
		}
		return v.Neg(), nil
	case *ast.Binary:
		switch e.Op {
		case ast.Add, ast.Sub, ast.Mul, ast.Div:
			left, err := constEval(e.Left)
			if err != nil {
				return rational.Zero, err
			}
			right, err := constEval(e.Right)
			if err != nil {
				return rational.Zero, err
			}
			switch e.Op {
			case ast.Add:
				return left.Add(right), nil
			case ast.Sub:
				return left.Sub(right), nil
			case ast.Mul:
				return left.Mul(right), nil
			case ast.Div:
				if right.IsZero() {
					return rational.Zero, &DivisionByZeroInConstEvalError{Pos: e.Pos()}
				}
				return left.Div(right), nil
			}
		case ast.Power:
			left, err := constEval(e.Left)
			if err != nil {
				return rational.Zero, err
			}
			exp, err := constEval(e.Right)
			if err != nil {
				return rational.Zero, err
			}
			n, isInt := exp.Int64()
			if !isInt {
				return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "exponentiation with non-integer exponent", Pos: e.Pos()}
			}
			return left.PowInt(n), nil
		case ast.ConvertTo:
			return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "unit conversion", Pos: e.Pos()}
		default:
			return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "comparison", Pos: e.Pos()}
		}
	case *ast.Ident:
		return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "variable", Pos: e.Pos()}
	case *ast.Call:
		return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "function call", Pos: e.Pos()}
	case *ast.Factorial:
		return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "factorial", Pos: e.Pos()}
	case *ast.If:
		return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "conditional", Pos: e.Pos()}
	case *ast.BoolLit:
		return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "boolean literal", Pos: e.Pos()}
	case *ast.StringLit:
		return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "string literal", Pos: e.Pos()}
	default:
		return rational.Zero, &UnsupportedConstEvalExpressionError{Kind: "expression", Pos: expr.Pos()}
	}
}
