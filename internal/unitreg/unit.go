package unitreg

import (
	"sort"

	"github.com/gurre/dimcalc/internal/rational"
)

// Unit is a product of unit factors, each a (canonical unit id, rational
// exponent) pair, e.g. "m s^-1" for meters per second. It carries no value
// of its own; Factor and Dimension information for a Unit are only
// meaningful together with a Registry, which is how spec.md's "Unit"
// (a product of unit factors ... each carrying a conversion to base ...")
// is split here: Unit is the algebraic shape, Registry owns the per-id
// metadata.
type Unit map[string]rational.Rational

// One is the dimensionless unit "1" (no factors).
func One() Unit {
	return Unit{}
}

// Single returns the unit consisting of a single factor id^1.
func Single(id string) Unit {
	return Unit{id: rational.One}
}

func (u Unit) clone() Unit {
	out := make(Unit, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

// Multiply composes u and other, adding matching exponents and dropping
// factors whose exponent becomes zero.
func (u Unit) Multiply(other Unit) Unit {
	out := u.clone()
	for id, exp := range other {
		sum := out[id].Add(exp)
		if sum.IsZero() {
			delete(out, id)
		} else {
			out[id] = sum
		}
	}
	return out
}

// Divide composes u and other with the other's exponents negated.
func (u Unit) Divide(other Unit) Unit {
	out := u.clone()
	for id, exp := range other {
		diff := out[id].Sub(exp)
		if diff.IsZero() {
			delete(out, id)
		} else {
			out[id] = diff
		}
	}
	return out
}

// Power multiplies every exponent by r; r == 0 always yields One().
func (u Unit) Power(r rational.Rational) Unit {
	if r.IsZero() {
		return One()
	}
	out := make(Unit, len(u))
	for id, exp := range u {
		out[id] = exp.Mul(r)
	}
	return out
}

// Equal reports whether u and other are the identical product of factors.
func (u Unit) Equal(other Unit) bool {
	if len(u) != len(other) {
		return false
	}
	for id, exp := range u {
		oe, ok := other[id]
		if !ok || !exp.Equal(oe) {
			return false
		}
	}
	return true
}

// IsOne reports whether u carries no factors.
func (u Unit) IsOne() bool {
	return len(u) == 0
}

// UnitFactor is a single (id, exponent) pair, returned by Iter in a
// deterministic order.
type UnitFactor struct {
	ID       string
	Exponent rational.Rational
}

// Iter returns the factors of u sorted by id.
func (u Unit) Iter() []UnitFactor {
	ids := make([]string, 0, len(u))
	for id := range u {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]UnitFactor, 0, len(ids))
	for _, id := range ids {
		out = append(out, UnitFactor{ID: id, Exponent: u[id]})
	}
	return out
}
