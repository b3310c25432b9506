// Package quantity implements runtime arithmetic on quantities: a numeric
// value paired with a unit, as specified by dimcalc's type system. Unlike
// the type checker (which only ever reasons about dimensions), the runtime
// Quantity carries an actual scale (the unit the user wrote) and converts
// between units as needed.
package quantity

import (
	"errors"
	"fmt"
	"math"

	"github.com/gurre/dimcalc/internal/rational"
	"github.com/gurre/dimcalc/internal/unitreg"
)

// ErrDimensionMismatch is returned when an operation requires two
// quantities (or a quantity and a target unit) to share a dimension and
// they do not.
var ErrDimensionMismatch = errors.New("quantity: dimension mismatch")

// ErrDivisionByZero is returned by Div and ConvertTo when the divisor (or
// target scale) is zero.
var ErrDivisionByZero = errors.New("quantity: division by zero")

// ErrNonScalarExponent is returned by Pow when the exponent quantity is not
// dimensionless.
var ErrNonScalarExponent = errors.New("quantity: exponent must be dimensionless")

// Quantity is a numeric value paired with a unit.
type Quantity struct {
	Value float64
	Unit  unitreg.Unit
}

// New returns the quantity value*unit.
func New(value float64, unit unitreg.Unit) Quantity {
	return Quantity{Value: value, Unit: unit}
}

// Scalar returns a dimensionless quantity.
func Scalar(value float64) Quantity {
	return Quantity{Value: value, Unit: unitreg.One()}
}

// toBase converts q to its fully-expanded base-unit representation.
func toBase(reg *unitreg.Registry, q Quantity) (Quantity, error) {
	factor, expansion, err := reg.BaseFactorOf(q.Unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value * factor.Float64(), Unit: expansion}, nil
}

// sameDimension reports whether a and b reduce to the same base dimension.
func sameDimension(reg *unitreg.Registry, a, b unitreg.Unit) (bool, error) {
	da, err := reg.DimensionOf(a)
	if err != nil {
		return false, err
	}
	db, err := reg.DimensionOf(b)
	if err != nil {
		return false, err
	}
	return da.Equal(db), nil
}

// Add returns lhs + rhs. Both operands must reduce to equal base-unit
// dimensions; the result carries the lhs unit, with both values brought to
// a common (base-unit) scale before combining.
func Add(reg *unitreg.Registry, lhs, rhs Quantity) (Quantity, error) {
	ok, err := sameDimension(reg, lhs.Unit, rhs.Unit)
	if err != nil {
		return Quantity{}, err
	}
	if !ok {
		return Quantity{}, fmt.Errorf("%w: add", ErrDimensionMismatch)
	}
	rhsConverted, err := ConvertTo(reg, rhs, lhs.Unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: lhs.Value + rhsConverted.Value, Unit: lhs.Unit}, nil
}

// Sub returns lhs - rhs, with the same dimension requirement as Add.
func Sub(reg *unitreg.Registry, lhs, rhs Quantity) (Quantity, error) {
	ok, err := sameDimension(reg, lhs.Unit, rhs.Unit)
	if err != nil {
		return Quantity{}, err
	}
	if !ok {
		return Quantity{}, fmt.Errorf("%w: subtract", ErrDimensionMismatch)
	}
	rhsConverted, err := ConvertTo(reg, rhs, lhs.Unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: lhs.Value - rhsConverted.Value, Unit: lhs.Unit}, nil
}

// Mul returns lhs * rhs, composing units and multiplying values.
func Mul(lhs, rhs Quantity) Quantity {
	return Quantity{Value: lhs.Value * rhs.Value, Unit: lhs.Unit.Multiply(rhs.Unit)}
}

// Div returns lhs / rhs, composing units and dividing values.
func Div(lhs, rhs Quantity) (Quantity, error) {
	if rhs.Value == 0 {
		return Quantity{}, ErrDivisionByZero
	}
	return Quantity{Value: lhs.Value / rhs.Value, Unit: lhs.Unit.Divide(rhs.Unit)}, nil
}

// Pow returns lhs^rhs. rhs must be dimensionless; its value is converted to
// an exact rational to raise lhs's unit, while the numeric value is raised
// with ordinary float exponentiation (lhs may be dimensionless too, in
// which case arbitrary real exponents are permitted, matching spec.md's
// "arbitrary real exponents permitted on scalars" rule).
func Pow(lhs, rhs Quantity) (Quantity, error) {
	if !rhs.Unit.IsOne() {
		return Quantity{}, ErrNonScalarExponent
	}
	value := math.Pow(lhs.Value, rhs.Value)
	if lhs.Unit.IsOne() {
		return Quantity{Value: value, Unit: unitreg.One()}, nil
	}
	r, err := rational.FromFloat(rhs.Value)
	if err != nil {
		return Quantity{}, fmt.Errorf("quantity: exponent %v does not simplify to a rational: %w", rhs.Value, err)
	}
	return Quantity{Value: value, Unit: lhs.Unit.Power(r)}, nil
}

// ConvertTo rescales q to target, which must share q's dimension.
func ConvertTo(reg *unitreg.Registry, q Quantity, target unitreg.Unit) (Quantity, error) {
	ok, err := sameDimension(reg, q.Unit, target)
	if err != nil {
		return Quantity{}, err
	}
	if !ok {
		return Quantity{}, fmt.Errorf("%w: convert_to", ErrDimensionMismatch)
	}
	qFactor, _, err := reg.BaseFactorOf(q.Unit)
	if err != nil {
		return Quantity{}, err
	}
	tFactor, _, err := reg.BaseFactorOf(target)
	if err != nil {
		return Quantity{}, err
	}
	if tFactor.Float64() == 0 {
		return Quantity{}, ErrDivisionByZero
	}
	value := q.Value * qFactor.Float64() / tFactor.Float64()
	return Quantity{Value: value, Unit: target}, nil
}

// FullSimplify canonicalizes q's unit representation: it converts q to its
// base-unit expansion, which is the canonical (and therefore simplest,
// in the sense of "no redundant named units") product-of-base-units form.
func FullSimplify(reg *unitreg.Registry, q Quantity) (Quantity, error) {
	return toBase(reg, q)
}

// Equals reports whether a and b denote the same physical quantity, within
// a small relative tolerance, after converting b to a's unit.
func Equals(reg *unitreg.Registry, a, b Quantity) (bool, error) {
	converted, err := ConvertTo(reg, b, a.Unit)
	if err != nil {
		return false, err
	}
	eps := 1e-9
	scale := math.Max(math.Abs(a.Value), math.Abs(converted.Value))
	if scale > 1 {
		eps *= scale
	}
	return math.Abs(a.Value-converted.Value) < eps, nil
}

// Compare returns -1, 0, 1 as a <, ==, > b (after converting b to a's
// unit), or an error if the dimensions differ.
func Compare(reg *unitreg.Registry, a, b Quantity) (int, error) {
	converted, err := ConvertTo(reg, b, a.Unit)
	if err != nil {
		return 0, err
	}
	switch {
	case math.Abs(a.Value-converted.Value) < 1e-9:
		return 0, nil
	case a.Value < converted.Value:
		return -1, nil
	default:
		return 1, nil
	}
}

// Negate returns -q.
func Negate(q Quantity) Quantity {
	return Quantity{Value: -q.Value, Unit: q.Unit}
}
