package dimension

import (
	"fmt"

	"github.com/gurre/dimcalc/internal/rational"
)

// EntryExistsError is returned when re-declaring a dimension name that is
// already registered.
type EntryExistsError struct {
	Name string
}

func (e *EntryExistsError) Error() string {
	return fmt.Sprintf("dimension: entry %q already exists", e.Name)
}

// UnknownDimensionError is returned when looking up a dimension name that
// was never registered.
type UnknownDimensionError struct {
	Name string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("dimension: unknown dimension %q", e.Name)
}

// IncompatibleAlternativeError is returned when a derived dimension is
// declared a second time with an expression that reduces to a different
// base representation than the first declaration.
type IncompatibleAlternativeError struct {
	Name  string
	First BaseRep
	Then  BaseRep
}

func (e *IncompatibleAlternativeError) Error() string {
	return fmt.Sprintf("dimension: alternative expression for %q reduces to %s, but the first declaration reduces to %s",
		e.Name, e.Then, e.First)
}

// Registry holds the set of declared base dimensions and the mapping from
// derived dimension names to their canonical base representation. Once a
// name is registered it is immutable for the remainder of the program.
type Registry struct {
	reps map[string]BaseRep
}

// NewRegistry returns an empty dimension registry.
func NewRegistry() *Registry {
	return &Registry{reps: make(map[string]BaseRep)}
}

// AddBaseDimension registers name as a new, atomic base dimension whose
// representation is the singleton {name: 1}.
func (r *Registry) AddBaseDimension(name string) error {
	if _, ok := r.reps[name]; ok {
		return &EntryExistsError{Name: name}
	}
	r.reps[name] = BaseRep{name: rational.One}
	return nil
}

// AddDerivedDimension evaluates expr and registers name as an alias for the
// resulting BaseRep. If name is already registered, the freshly evaluated
// representation must be identical to the stored one, else
// IncompatibleAlternativeError is returned; declaring the same alternative
// twice is otherwise accepted (spec.md §4.1).
func (r *Registry) AddDerivedDimension(name string, expr Expression) error {
	rep, err := r.Evaluate(expr)
	if err != nil {
		return err
	}
	if existing, ok := r.reps[name]; ok {
		if !existing.Equal(rep) {
			return &IncompatibleAlternativeError{Name: name, First: existing, Then: rep}
		}
		return nil
	}
	r.reps[name] = rep
	return nil
}

// BaseRepresentationOf returns the canonical representation of a previously
// registered name.
func (r *Registry) BaseRepresentationOf(name string) (BaseRep, error) {
	rep, ok := r.reps[name]
	if !ok {
		return nil, &UnknownDimensionError{Name: name}
	}
	return rep, nil
}

// Has reports whether name has been registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.reps[name]
	return ok
}

// Clone returns an independent copy of r: mutations to the clone (such as
// registering a generic function's type parameters as synthetic base
// dimensions) never affect r. This backs the type checker's per-function
// scoping (spec.md §9, "clone the type checker ... register type
// parameters ... in the clone only").
func (r *Registry) Clone() *Registry {
	out := &Registry{reps: make(map[string]BaseRep, len(r.reps))}
	for name, rep := range r.reps {
		out.reps[name] = rep
	}
	return out
}

// Evaluate reduces a dimension expression to its canonical BaseRep by
// structural recursion.
func (r *Registry) Evaluate(expr Expression) (BaseRep, error) {
	switch e := expr.(type) {
	case UnityExpr:
		return Empty(), nil
	case NamedExpr:
		return r.BaseRepresentationOf(e.Name)
	case MulExpr:
		left, err := r.Evaluate(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.Evaluate(e.Right)
		if err != nil {
			return nil, err
		}
		return left.Multiply(right), nil
	case DivExpr:
		left, err := r.Evaluate(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.Evaluate(e.Right)
		if err != nil {
			return nil, err
		}
		return left.Divide(right), nil
	case PowExpr:
		base, err := r.Evaluate(e.Base)
		if err != nil {
			return nil, err
		}
		return base.Power(e.Exponent), nil
	default:
		return nil, fmt.Errorf("dimension: unhandled expression type %T", expr)
	}
}
