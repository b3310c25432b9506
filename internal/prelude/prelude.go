// Package prelude bootstraps a fresh *typecheck.Checker with the generic
// type signatures SPEC_FULL.md's built-in foreign functions need, using
// Checker.RegisterFunction the way its doc comment describes: directly
// seeding shapes the parser's "fn" surface grammar would otherwise have to
// spell out with synthetic type-parameter names on every line.
package prelude

import (
	"github.com/gurre/dimcalc/internal/dimension"
	"github.com/gurre/dimcalc/internal/rational"
	"github.com/gurre/dimcalc/internal/typecheck"
)

// genericUnary returns "fn name<D>(x: D^pow) -> D", used for functions
// whose dimension passes through (or is rooted) regardless of what D is.
func genericUnary(name string, pow int64) typecheck.FunctionSignature {
	d := dimension.BaseRep{"D": rational.FromInt(pow)}
	return typecheck.FunctionSignature{
		Name:           name,
		TypeParameters: []string{"D"},
		ParamTypes:     []typecheck.Type{typecheck.DimensionType(d)},
		ReturnType:     typecheck.DimensionType(dimension.BaseRep{"D": rational.One}),
		IsForeign:      true,
	}
}

// genericVariadic returns "fn name<D>(x: D...) -> D", one repeated
// parameter type unified against every argument (spec.md §4.3.2 step 1).
func genericVariadic(name string) typecheck.FunctionSignature {
	d := dimension.BaseRep{"D": rational.One}
	return typecheck.FunctionSignature{
		Name:           name,
		TypeParameters: []string{"D"},
		ParamTypes:     []typecheck.Type{typecheck.DimensionType(d)},
		IsVariadic:     true,
		ReturnType:     typecheck.DimensionType(d),
		IsForeign:      true,
	}
}

func scalarUnary(name string) typecheck.FunctionSignature {
	return typecheck.FunctionSignature{
		Name:       name,
		ParamTypes: []typecheck.Type{typecheck.Scalar},
		ReturnType: typecheck.Scalar,
		IsForeign:  true,
	}
}

// Bootstrap registers every built-in foreign function internal/ffi.NewTable
// carries (sqrt, sin/cos/tan, abs/floor/ceil/round, min/max/mean) against
// checker, so programs can call them before any user "fn" statement runs.
func Bootstrap(checker *typecheck.Checker) error {
	sigs := []typecheck.FunctionSignature{
		genericUnary("sqrt", 2),
		scalarUnary("sin"),
		scalarUnary("cos"),
		scalarUnary("tan"),
		genericUnary("abs", 1),
		genericUnary("floor", 1),
		genericUnary("ceil", 1),
		genericUnary("round", 1),
		genericVariadic("min"),
		genericVariadic("max"),
		genericVariadic("mean"),
	}
	for _, sig := range sigs {
		if err := checker.RegisterFunction(sig); err != nil {
			return err
		}
	}
	return nil
}
