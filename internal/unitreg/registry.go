package unitreg

import (
	"fmt"
	"math"

	"github.com/gurre/dimcalc/internal/dimension"
)

// EntryExistsError is returned when re-declaring a unit or alias name that
// is already registered.
type EntryExistsError struct {
	Name string
}

func (e *EntryExistsError) Error() string {
	return fmt.Sprintf("unit: entry %q already exists", e.Name)
}

// UnknownEntryError is returned when looking up a unit name that was never
// registered.
type UnknownEntryError struct {
	Name string
}

func (e *UnknownEntryError) Error() string {
	return fmt.Sprintf("unit: unknown unit %q", e.Name)
}

// Entry is everything the registry knows about one canonically-named unit:
// its dimensional type, and its expansion/factor relative to base units.
type Entry struct {
	CanonicalName string
	IsBase        bool
	Dimension     dimension.BaseRep
	// BaseExpansion is the unit expressed purely in terms of other base
	// units (for a base unit, this is Single(CanonicalName)).
	BaseExpansion Unit
	// Factor is the multiplicative conversion from 1 of this unit to 1 of
	// its BaseExpansion (identity for a base unit).
	Factor Factor
}

// Registry holds declared base and derived units and resolves names
// (including aliases) to Entry and Unit values.
type Registry struct {
	entries map[string]*Entry // canonical name -> entry
	aliases map[string]string // alias (incl. canonical name) -> canonical name
}

// NewRegistry returns an empty unit registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		aliases: make(map[string]string),
	}
}

// AddBaseUnit registers name as a new base unit of the given dimensional
// type. A base unit has an identity conversion.
func (r *Registry) AddBaseUnit(name string, dimType dimension.BaseRep, aliases ...string) error {
	if _, ok := r.entries[name]; ok {
		return &EntryExistsError{Name: name}
	}
	entry := &Entry{
		CanonicalName: name,
		IsBase:        true,
		Dimension:     dimType,
		BaseExpansion: Single(name),
		Factor:        ExactFactorFromInt(1, 1),
	}
	r.entries[name] = entry
	return r.registerAliases(name, name, aliases)
}

// AddDerivedUnit evaluates expr against already-registered units and
// registers name (and its aliases) as a new derived unit whose dimensional
// type and conversion factor are determined by expr.
func (r *Registry) AddDerivedUnit(name string, expr Expression, aliases ...string) error {
	if _, ok := r.entries[name]; ok {
		return &EntryExistsError{Name: name}
	}
	factor, expansion, dim, err := r.Evaluate(expr)
	if err != nil {
		return err
	}
	entry := &Entry{
		CanonicalName: name,
		IsBase:        false,
		Dimension:     dim,
		BaseExpansion: expansion,
		Factor:        factor,
	}
	r.entries[name] = entry
	return r.registerAliases(name, name, aliases)
}

func (r *Registry) registerAliases(canonical, name string, aliases []string) error {
	if _, ok := r.aliases[name]; ok {
		return &EntryExistsError{Name: name}
	}
	r.aliases[name] = canonical
	for _, alias := range aliases {
		if _, ok := r.aliases[alias]; ok {
			return &EntryExistsError{Name: alias}
		}
		r.aliases[alias] = canonical
	}
	return nil
}

// Resolve maps a name (canonical or alias) to its Entry.
func (r *Registry) Resolve(name string) (*Entry, error) {
	canonical, ok := r.aliases[name]
	if !ok {
		return nil, &UnknownEntryError{Name: name}
	}
	entry, ok := r.entries[canonical]
	if !ok {
		return nil, &UnknownEntryError{Name: name}
	}
	return entry, nil
}

// Has reports whether name (canonical or alias) is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.aliases[name]
	return ok
}

// CanonicalName returns the canonical name a (possibly aliased) name
// resolves to.
func (r *Registry) CanonicalName(name string) (string, error) {
	canonical, ok := r.aliases[name]
	if !ok {
		return "", &UnknownEntryError{Name: name}
	}
	return canonical, nil
}

// DimensionOf returns the dimensional type a Unit (product of factors)
// produces, by composing the dimensions of its constituent entries.
func (r *Registry) DimensionOf(u Unit) (dimension.BaseRep, error) {
	rep := dimension.Empty()
	for _, f := range u.Iter() {
		entry, ok := r.entries[f.ID]
		if !ok {
			return nil, &UnknownEntryError{Name: f.ID}
		}
		rep = rep.Multiply(entry.Dimension.Power(f.Exponent))
	}
	return rep, nil
}

// BaseFactorOf returns the multiplicative conversion factor from 1 of Unit
// u to its fully-expanded base-unit representation, along with that base
// expansion.
func (r *Registry) BaseFactorOf(u Unit) (Factor, Unit, error) {
	factor := ExactFactorFromInt(1, 1)
	expansion := One()
	for _, f := range u.Iter() {
		entry, ok := r.entries[f.ID]
		if !ok {
			return Factor{}, nil, &UnknownEntryError{Name: f.ID}
		}
		n, isInt := f.Exponent.Int64()
		if !isInt {
			// Fall back to float exponentiation for non-integer unit
			// powers; the factor is no longer guaranteed exact.
			factor = factor.Mul(ApproxFactor(math.Pow(entry.Factor.Float64(), f.Exponent.Float64())))
		} else {
			factor = factor.Mul(powFactor(entry.Factor, n))
		}
		expansion = expansion.Multiply(entry.BaseExpansion.Power(f.Exponent))
	}
	return factor, expansion, nil
}

func powFactor(f Factor, n int64) Factor {
	if n == 0 {
		return ExactFactorFromInt(1, 1)
	}
	neg := n < 0
	if neg {
		n = -n
	}
	out := ExactFactorFromInt(1, 1)
	for i := int64(0); i < n; i++ {
		out = out.Mul(f)
	}
	if neg {
		return ExactFactorFromInt(1, 1).Div(out)
	}
	return out
}

// Evaluate reduces a unit Expression to (factor, base expansion, dimension)
// by structural recursion, mirroring dimension.Registry.Evaluate.
func (r *Registry) Evaluate(expr Expression) (Factor, Unit, dimension.BaseRep, error) {
	switch e := expr.(type) {
	case ScalarExpr:
		return ApproxFactor(e.Value), One(), dimension.Empty(), nil
	case NamedExpr:
		entry, err := r.Resolve(e.Name)
		if err != nil {
			return Factor{}, nil, nil, err
		}
		return entry.Factor, entry.BaseExpansion, entry.Dimension, nil
	case MulExpr:
		lf, lu, ld, err := r.Evaluate(e.Left)
		if err != nil {
			return Factor{}, nil, nil, err
		}
		rf, ru, rd, err := r.Evaluate(e.Right)
		if err != nil {
			return Factor{}, nil, nil, err
		}
		return lf.Mul(rf), lu.Multiply(ru), ld.Multiply(rd), nil
	case DivExpr:
		lf, lu, ld, err := r.Evaluate(e.Left)
		if err != nil {
			return Factor{}, nil, nil, err
		}
		rf, ru, rd, err := r.Evaluate(e.Right)
		if err != nil {
			return Factor{}, nil, nil, err
		}
		return lf.Div(rf), lu.Divide(ru), ld.Divide(rd), nil
	case PowExpr:
		bf, bu, bd, err := r.Evaluate(e.Base)
		if err != nil {
			return Factor{}, nil, nil, err
		}
		n, isInt := e.Exponent.Int64()
		var factor Factor
		if isInt {
			factor = powFactor(bf, n)
		} else {
			factor = ApproxFactor(math.Pow(bf.Float64(), e.Exponent.Float64()))
		}
		return factor, bu.Power(e.Exponent), bd.Power(e.Exponent), nil
	default:
		return Factor{}, nil, nil, fmt.Errorf("unit: unhandled expression type %T", expr)
	}
}

// UnitRepOf resolves a single registered name to its Unit (product-of-one
// form), for callers that need Single(canonical).
func (r *Registry) UnitRepOf(name string) (Unit, error) {
	entry, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return Single(entry.CanonicalName), nil
}
