package typecheck

import (
	"strings"
	"testing"

	"github.com/gurre/dimcalc/internal/dimension"
	"github.com/gurre/dimcalc/internal/ffi"
	"github.com/gurre/dimcalc/internal/parser"
	"github.com/gurre/dimcalc/internal/rational"
	"github.com/gurre/dimcalc/internal/unitreg"
)

const prelude = `dimension Scalar = 1
dimension A
dimension B
dimension C = A*B
unit a: A
unit b: B
unit c: C = a*b
`

func newChecker() *Checker {
	return NewChecker(dimension.NewRegistry(), unitreg.NewRegistry(), ffi.NewTable(func(string) {}))
}

// check parses and type-checks source (prefixed with the standard prelude)
// against a fresh checker, returning the error from the last statement that
// failed (or nil) along with the checker for further inspection.
func check(t *testing.T, source string) (error, *Checker) {
	t.Helper()
	c := newChecker()
	full := prelude + source
	p, err := parser.New(full)
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	stmts, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram(%q): %v", full, err)
	}
	var last error
	for _, s := range stmts {
		if e := c.CheckStatement(s); e != nil {
			last = e
		}
	}
	return last, c
}

func TestEndToEndScenario1(t *testing.T) {
	err, c := check(t, "let x: C = 2*a*b^2 / b\nx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := c.dimReg.BaseRepresentationOf("C")
	got := c.identifiers["x"]
	if !got.Dim.Equal(want) {
		t.Errorf("type(x) = %s, want %s", got, DimensionType(want))
	}
}

func TestEndToEndScenario2GenericSquare(t *testing.T) {
	err, c := check(t, "fn f<D>(x: D) -> D^2 = x*x\nf(3 a)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantA, _ := c.dimReg.BaseRepresentationOf("A")
	want := wantA.Power(rational.FromInt(2))
	got := c.identifiers["ans"]
	if !got.Dim.Equal(want) {
		t.Errorf("type(f(3a)) = %s, want %s", got, DimensionType(want))
	}
}

func TestEndToEndScenario3TwoGenericParams(t *testing.T) {
	err, _ := check(t, "fn f<D0,D1>(x: D0, y: D1) -> D0/D1^2 = x/y^2\nf(2 a, 2 b)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddIncompatibleDimensions(t *testing.T) {
	err, _ := check(t, "a + b")
	if err == nil {
		t.Fatal("expected IncompatibleDimensionsError")
	}
	if _, ok := err.(*IncompatibleDimensionsError); !ok {
		t.Errorf("got %T, want *IncompatibleDimensionsError", err)
	}
}

func TestPowerNonScalarExponent(t *testing.T) {
	err, _ := check(t, "2^a")
	if _, ok := err.(*NonScalarExponentError); !ok {
		t.Errorf("got %T (%v), want *NonScalarExponentError", err, err)
	}
}

func TestPowerBothDimensioned(t *testing.T) {
	err, _ := check(t, "a^b")
	if _, ok := err.(*NonScalarExponentError); !ok {
		t.Errorf("got %T (%v), want *NonScalarExponentError", err, err)
	}
}

func TestPowerConstEvalDivisionByZero(t *testing.T) {
	err, _ := check(t, "a^(3/(1-1))")
	if _, ok := err.(*DivisionByZeroInConstEvalError); !ok {
		t.Errorf("got %T (%v), want *DivisionByZeroInConstEvalError", err, err)
	}
}

func TestPowerConstEvalRejectsVariable(t *testing.T) {
	err, _ := check(t, "let xx = 2\na^xx")
	uce, ok := err.(*UnsupportedConstEvalExpressionError)
	if !ok {
		t.Fatalf("got %T (%v), want *UnsupportedConstEvalExpressionError", err, err)
	}
	if uce.Kind != "variable" {
		t.Errorf("kind = %q, want variable", uce.Kind)
	}
}

func TestMultipleUnresolvedTypeParameters(t *testing.T) {
	err, _ := check(t, "fn f<D1,D2>(x: D1*D2) = 1\nf(2)")
	if _, ok := err.(*MultipleUnresolvedTypeParametersError); !ok {
		t.Errorf("got %T (%v), want *MultipleUnresolvedTypeParametersError", err, err)
	}
}

func TestCanNotInferTypeParameters(t *testing.T) {
	err, _ := check(t, "fn f<D0>(x: Scalar) -> Scalar = 1\nf(2)")
	cnip, ok := err.(*CanNotInferTypeParametersError)
	if !ok {
		t.Fatalf("got %T (%v), want *CanNotInferTypeParametersError", err, err)
	}
	if cnip.Function != "f" || len(cnip.Missing) != 1 || cnip.Missing[0] != "D0" {
		t.Errorf("got %+v", cnip)
	}
}

func TestTypeParameterNameClash(t *testing.T) {
	err, _ := check(t, "dimension X\nfn f<X>(x: X) = 1")
	if _, ok := err.(*TypeParameterNameClashError); !ok {
		t.Errorf("got %T (%v), want *TypeParameterNameClashError", err, err)
	}
}

func TestForeignFunctionNeedsTypeAnnotations(t *testing.T) {
	err, _ := check(t, "fn sin(x: Scalar)")
	if _, ok := err.(*ForeignFunctionNeedsTypeAnnotationsError); !ok {
		t.Errorf("got %T (%v), want *ForeignFunctionNeedsTypeAnnotationsError", err, err)
	}
}

func TestUnknownForeignFunction(t *testing.T) {
	err, _ := check(t, "fn totallyMadeUp(x: Scalar) -> Scalar")
	if _, ok := err.(*UnknownForeignFunctionError); !ok {
		t.Errorf("got %T (%v), want *UnknownForeignFunctionError", err, err)
	}
}

func TestAssertEqWrongArity(t *testing.T) {
	err, _ := check(t, "assert_eq(1)")
	wa, ok := err.(*WrongArityError)
	if !ok {
		t.Fatalf("got %T (%v), want *WrongArityError", err, err)
	}
	if wa.Min != 2 || wa.Max != 3 || wa.Got != 1 {
		t.Errorf("got %+v", wa)
	}
}

func TestUnknownIdentifier(t *testing.T) {
	err, _ := check(t, "aa")
	ui, ok := err.(*UnknownIdentifierError)
	if !ok {
		t.Fatalf("got %T (%v), want *UnknownIdentifierError", err, err)
	}
	if ui.Suggestion != "" {
		t.Logf("suggestion = %q", ui.Suggestion)
	}
}

func TestFactorialRequiresScalar(t *testing.T) {
	err, _ := check(t, "a!")
	if _, ok := err.(*NonScalarFactorialArgumentError); !ok {
		t.Errorf("got %T (%v), want *NonScalarFactorialArgumentError", err, err)
	}
}

func TestIncompatibleAlternativeDimension(t *testing.T) {
	err, _ := check(t, "dimension D = A/B\ndimension D = C/B^3")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "alternative") {
		t.Errorf("error = %v, want mention of alternative expression", err)
	}
}

func TestConvertToRequiresEqualDimension(t *testing.T) {
	err, _ := check(t, "a -> b")
	if _, ok := err.(*IncompatibleDimensionsError); !ok {
		t.Errorf("got %T, want *IncompatibleDimensionsError", err)
	}
}

func TestIfBranchesMustMatch(t *testing.T) {
	err, _ := check(t, "if 1 < 2 then a else b")
	if _, ok := err.(*IncompatibleDimensionsError); !ok {
		t.Errorf("got %T, want *IncompatibleDimensionsError", err)
	}
}

func TestBatchCheckAggregatesErrors(t *testing.T) {
	c := newChecker()
	p, err := parser.New(prelude + "a + b\nc!\nundefinedName")
	if err != nil {
		t.Fatal(err)
	}
	stmts, err := p.ParseProgram()
	if err != nil {
		t.Fatal(err)
	}
	batchErr := c.Check(stmts)
	if batchErr == nil {
		t.Fatal("expected aggregated error")
	}
	msg := batchErr.Error()
	if !strings.Contains(msg, "3 error") {
		t.Errorf("expected multierror summary mentioning 3 errors, got: %s", msg)
	}
}
