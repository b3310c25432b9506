package typecheck

import (
	"github.com/gurre/dimcalc/internal/dimension"
	"github.com/gurre/dimcalc/internal/rational"
)

// Kind distinguishes the two type shapes spec.md §3 allows.
type Kind int

const (
	DimensionKind Kind = iota
	BooleanKind
	// StringKind types a string literal, accepted only as a procedure-call
	// argument (e.g. print("hello")); spec.md's Non-goals explicitly keep
	// string printing in scope ("no I/O beyond printing strings and
	// values") without elevating strings to a first-class Quantity type.
	StringKind
)

// Type is a Dimension(BaseRep), Boolean, or String. The dimensionless
// scalar is Dimension(empty).
type Type struct {
	Kind Kind
	Dim  dimension.BaseRep // meaningful only when Kind == DimensionKind
}

// DimensionType wraps a base representation as a Type.
func DimensionType(rep dimension.BaseRep) Type {
	return Type{Kind: DimensionKind, Dim: rep}
}

// Boolean is the sole boolean type value.
var Boolean = Type{Kind: BooleanKind}

// Scalar is the dimensionless scalar type, Dimension(empty).
var Scalar = DimensionType(dimension.Empty())

// StringType is the sole string type value.
var StringType = Type{Kind: StringKind}

// IsDimension reports whether t is a Dimension type.
func (t Type) IsDimension() bool { return t.Kind == DimensionKind }

// IsScalar reports whether t is the dimensionless scalar type.
func (t Type) IsScalar() bool { return t.Kind == DimensionKind && t.Dim.IsEmpty() }

// Equal reports whether t and other are the same type.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind != DimensionKind {
		return true
	}
	return t.Dim.Equal(other.Dim)
}

// Multiply returns the Dimension type for t * other (both must be
// Dimension types; callers enforce this).
func (t Type) Multiply(other Type) Type {
	return DimensionType(t.Dim.Multiply(other.Dim))
}

// Divide returns the Dimension type for t / other.
func (t Type) Divide(other Type) Type {
	return DimensionType(t.Dim.Divide(other.Dim))
}

// Power returns the Dimension type for t^r.
func (t Type) Power(r rational.Rational) Type {
	return DimensionType(t.Dim.Power(r))
}

// String renders t for error messages.
func (t Type) String() string {
	if t.Kind == BooleanKind {
		return "Boolean"
	}
	if t.Kind == StringKind {
		return "String"
	}
	if t.Dim.IsEmpty() {
		return "Scalar"
	}
	return t.Dim.String()
}
