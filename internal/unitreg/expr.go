package unitreg

import "github.com/gurre/dimcalc/internal/rational"

// Expression describes the right-hand side of a `unit u = e` declaration:
// a numeric coefficient composed with already-registered units by
// multiplication, division, and rational powers. This is the "defining
// quantity" spec.md's add_derived_unit refers to.
type Expression interface {
	isUnitExpression()
}

// ScalarExpr is a bare numeric coefficient, e.g. the 1000 in "1000 * m".
type ScalarExpr struct {
	Value float64
}

func (ScalarExpr) isUnitExpression() {}

// NamedExpr references a previously registered unit (or alias) by name.
type NamedExpr struct {
	Name string
}

func (NamedExpr) isUnitExpression() {}

// MulExpr is the product of two unit expressions.
type MulExpr struct {
	Left, Right Expression
}

func (MulExpr) isUnitExpression() {}

// DivExpr is the quotient of two unit expressions.
type DivExpr struct {
	Left, Right Expression
}

func (DivExpr) isUnitExpression() {}

// PowExpr raises a unit expression to a rational power.
type PowExpr struct {
	Base     Expression
	Exponent rational.Rational
}

func (PowExpr) isUnitExpression() {}
