// Package rational implements exact arithmetic on rational numbers, used
// throughout dimcalc as the type of dimension and unit exponents. Exponents
// entered by a user as decimals or integers are converted once and carried
// as exact ratios from then on, so that repeated multiplication/division of
// dimensions never accumulates floating point error.
package rational

import (
	"fmt"
	"math/big"
)

// Rational is an exact ratio p/q with q > 0, always kept in lowest terms.
type Rational struct {
	r big.Rat
}

// Zero is the rational 0/1.
var Zero = Rational{}

// One is the rational 1/1.
var One = FromInt(1)

// FromInt returns the rational n/1.
func FromInt(n int64) Rational {
	var r Rational
	r.r.SetInt64(n)
	return r
}

// FromInts returns the rational num/den, reduced to lowest terms. Panics if
// den is zero, matching big.Rat's own contract.
func FromInts(num, den int64) Rational {
	var r Rational
	r.r.SetFrac64(num, den)
	return r
}

// FromFloat converts a float64 (as typically entered by a user for a
// decimal exponent) into an exact rational.
func FromFloat(f float64) (Rational, error) {
	var r Rational
	br := new(big.Rat)
	if br.SetFloat64(f) == nil {
		return Rational{}, fmt.Errorf("rational: %v is not a finite number", f)
	}
	r.r = *br
	return r, nil
}

// Add returns a + b.
func (a Rational) Add(b Rational) Rational {
	var out Rational
	out.r.Add(&a.r, &b.r)
	return out
}

// Sub returns a - b.
func (a Rational) Sub(b Rational) Rational {
	var out Rational
	out.r.Sub(&a.r, &b.r)
	return out
}

// Mul returns a * b.
func (a Rational) Mul(b Rational) Rational {
	var out Rational
	out.r.Mul(&a.r, &b.r)
	return out
}

// Div returns a / b. Panics if b is zero; callers that can observe a
// user-supplied zero divisor must check IsZero first.
func (a Rational) Div(b Rational) Rational {
	var out Rational
	out.r.Quo(&a.r, &b.r)
	return out
}

// Neg returns -a.
func (a Rational) Neg() Rational {
	var out Rational
	out.r.Neg(&a.r)
	return out
}

// PowInt raises a to an integer power n (n may be negative or zero).
func (a Rational) PowInt(n int64) Rational {
	if n == 0 {
		return One
	}
	neg := n < 0
	if neg {
		n = -n
	}
	num := new(big.Int).Exp(a.r.Num(), big.NewInt(n), nil)
	den := new(big.Int).Exp(a.r.Denom(), big.NewInt(n), nil)
	var out Rational
	out.r.SetFrac(num, den)
	if neg {
		out.r.Inv(&out.r)
	}
	return out
}

// IsZero reports whether a is exactly zero.
func (a Rational) IsZero() bool {
	return a.r.Sign() == 0
}

// IsInteger reports whether a has denominator 1.
func (a Rational) IsInteger() bool {
	return a.r.IsInt()
}

// Sign returns -1, 0, or 1.
func (a Rational) Sign() int {
	return a.r.Sign()
}

// Int64 returns the value as an int64 when IsInteger is true. The second
// return is false otherwise.
func (a Rational) Int64() (int64, bool) {
	if !a.IsInteger() {
		return 0, false
	}
	return a.r.Num().Int64(), true
}

// Float64 returns the nearest float64 approximation.
func (a Rational) Float64() float64 {
	f, _ := a.r.Float64()
	return f
}

// Equal reports whether a and b denote the same rational number.
func (a Rational) Equal(b Rational) bool {
	return a.r.Cmp(&b.r) == 0
}

// Cmp returns -1, 0, +1 as a <, ==, > b.
func (a Rational) Cmp(b Rational) int {
	return a.r.Cmp(&b.r)
}

// String renders the rational as "p" when integral, else "p/q".
func (a Rational) String() string {
	if a.IsInteger() {
		return a.r.Num().String()
	}
	return a.r.RatString()
}
