package dimension

import "github.com/gurre/dimcalc/internal/rational"

// Expression is a dimension expression as produced by the parser for
// `dimension` declarations: one of Unity, Named, Mul, Div, Pow.
type Expression interface {
	isExpression()
}

// UnityExpr denotes the dimensionless expression "1".
type UnityExpr struct{}

func (UnityExpr) isExpression() {}

// NamedExpr references a previously declared base or derived dimension by
// name.
type NamedExpr struct {
	Name string
}

func (NamedExpr) isExpression() {}

// MulExpr is the product of two dimension expressions.
type MulExpr struct {
	Left, Right Expression
}

func (MulExpr) isExpression() {}

// DivExpr is the quotient of two dimension expressions.
type DivExpr struct {
	Left, Right Expression
}

func (DivExpr) isExpression() {}

// PowExpr raises a dimension expression to a rational power.
type PowExpr struct {
	Base     Expression
	Exponent rational.Rational
}

func (PowExpr) isExpression() {}
