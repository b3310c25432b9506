package unitreg

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Factor is the "exact-or-float scalar" spec.md requires for a unit's
// conversion to its base-unit expansion. Base units carry an exact factor
// of 1, and products, quotients and integer powers of exact factors stay
// exact; a numeric coefficient in a derived unit's defining expression
// (the 1000 in "1000 * m"), and any non-integer power, is carried as a
// plain float64, and so is every factor computed from one.
type Factor struct {
	exact   decimal.Decimal
	approx  float64
	isExact bool
}

// ExactFactor builds a Factor from an exact decimal value.
func ExactFactor(d decimal.Decimal) Factor {
	return Factor{exact: d, isExact: true}
}

// ExactFactorFromInt builds an exact Factor from an integer ratio n/d.
func ExactFactorFromInt(n, d int64) Factor {
	return ExactFactor(decimal.NewFromInt(n).Div(decimal.NewFromInt(d)))
}

// ApproxFactor builds a Factor from a float64 (a unit expression's numeric
// coefficient, or the result of a non-integer power).
func ApproxFactor(f float64) Factor {
	return Factor{approx: f}
}

// Float64 returns the factor as a float64, for use in runtime value
// arithmetic (spec.md keeps Quantity.value as f64; exactness only matters
// for how the factor itself was declared, not for the arithmetic it feeds).
func (f Factor) Float64() float64 {
	if f.isExact {
		v, _ := f.exact.Float64()
		return v
	}
	return f.approx
}

// IsExact reports whether the factor was declared as an exact decimal
// ratio rather than an approximate float64.
func (f Factor) IsExact() bool {
	return f.isExact
}

// Mul returns f * g. The result is exact only if both inputs were exact.
func (f Factor) Mul(g Factor) Factor {
	if f.isExact && g.isExact {
		return ExactFactor(f.exact.Mul(g.exact))
	}
	return ApproxFactor(f.Float64() * g.Float64())
}

// Div returns f / g. The result is exact only if both inputs were exact.
func (f Factor) Div(g Factor) Factor {
	if f.isExact && g.isExact {
		return ExactFactor(f.exact.Div(g.exact))
	}
	return ApproxFactor(f.Float64() / g.Float64())
}

// String renders the factor for diagnostics.
func (f Factor) String() string {
	if f.isExact {
		return f.exact.String()
	}
	return fmt.Sprintf("%g", f.approx)
}
