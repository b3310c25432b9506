// Package fmtunit pretty-prints quantities and types for human
// consumption (the REPL's result line, "print" procedure output,
// diagnostics). It generalizes a fixed 7-slot SI dimension array
// formatter pattern into the dynamic, registry-driven unit system
// spec.md §4.2 describes.
package fmtunit

import (
	"fmt"
	"strings"

	"github.com/gurre/dimcalc/internal/quantity"
	"github.com/gurre/dimcalc/internal/rational"
	"github.com/gurre/dimcalc/internal/unitreg"
)

// Options configures how a unit's factors are rendered.
type Options struct {
	// MultSymbol joins positive-exponent factors (default "·").
	MultSymbol string
	// DivSymbol separates a numerator from a denominator (default "/").
	DivSymbol string
	// ExponentFmt formats an exponent whose magnitude isn't 1 (default "^%s").
	ExponentFmt string
	// UseParens wraps a multi-factor denominator in parentheses (default true).
	UseParens bool
}

// DefaultOptions uses "·" to match this repo's product notation
// elsewhere (see internal/dimension.BaseRep.String).
func DefaultOptions() Options {
	return Options{
		MultSymbol:  "·",
		DivSymbol:   "/",
		ExponentFmt: "^%s",
		UseParens:   true,
	}
}

// FormatQuantity renders q as "<value>" (dimensionless) or
// "<value> <unit>", using reg to resolve each factor's canonical display
// name.
func FormatQuantity(reg *unitreg.Registry, q quantity.Quantity) string {
	return FormatQuantityWithOptions(reg, q, DefaultOptions())
}

// FormatQuantityWithOptions is FormatQuantity with caller-supplied
// rendering options.
func FormatQuantityWithOptions(reg *unitreg.Registry, q quantity.Quantity, opts Options) string {
	unit := FormatUnitWithOptions(reg, q.Unit, opts)
	if unit == "" {
		return fmt.Sprintf("%g", q.Value)
	}
	return fmt.Sprintf("%g %s", q.Value, unit)
}

// FormatUnit renders u's factors using the default options; it returns ""
// for the dimensionless unit.
func FormatUnit(reg *unitreg.Registry, u unitreg.Unit) string {
	return FormatUnitWithOptions(reg, u, DefaultOptions())
}

// FormatUnitWithOptions splits u's factors into a numerator (positive
// exponents) and denominator (negated negative exponents), then joins
// them with opts.DivSymbol, parenthesizing a multi-factor denominator.
func FormatUnitWithOptions(reg *unitreg.Registry, u unitreg.Unit, opts Options) string {
	if u.IsOne() {
		return ""
	}

	var numerator, denominator []string
	for _, f := range u.Iter() {
		name := displayName(reg, f.ID)
		switch {
		case f.Exponent.Equal(rational.One):
			numerator = append(numerator, name)
		case f.Exponent.Sign() > 0:
			numerator = append(numerator, name+fmt.Sprintf(opts.ExponentFmt, f.Exponent.String()))
		case f.Exponent.Neg().Equal(rational.One):
			denominator = append(denominator, name)
		default:
			denominator = append(denominator, name+fmt.Sprintf(opts.ExponentFmt, f.Exponent.Neg().String()))
		}
	}

	if len(numerator) == 0 {
		numerator = append(numerator, "1")
	}
	numStr := strings.Join(numerator, opts.MultSymbol)
	if len(denominator) == 0 {
		return numStr
	}
	denomStr := strings.Join(denominator, opts.MultSymbol)
	if opts.UseParens && len(denominator) > 1 {
		denomStr = "(" + denomStr + ")"
	}
	return numStr + opts.DivSymbol + denomStr
}

// displayName resolves id to its canonical registry name, falling back to
// id itself if the registry has nothing registered under it (should not
// happen for a unit that reached the operand stack, but keeps formatting
// total rather than panicking on a malformed Unit value).
func displayName(reg *unitreg.Registry, id string) string {
	if name, err := reg.CanonicalName(id); err == nil {
		return name
	}
	return id
}
