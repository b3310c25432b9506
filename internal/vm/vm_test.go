package vm

import (
	"strings"
	"testing"

	"github.com/gurre/dimcalc/internal/compiler"
	"github.com/gurre/dimcalc/internal/dimension"
	"github.com/gurre/dimcalc/internal/ffi"
	"github.com/gurre/dimcalc/internal/parser"
	"github.com/gurre/dimcalc/internal/typecheck"
	"github.com/gurre/dimcalc/internal/unitreg"
)

const prelude = `dimension A
dimension B
dimension C = A*B
unit a: A
unit b: B
unit c: C = a*b
`

// harness bundles everything a test needs to compile-and-run dimcalc
// source against one shared VM instance, supporting REPL-style successive
// calls against the same checker/compiler/VM triple.
type harness struct {
	t       *testing.T
	dimReg  *dimension.Registry
	unitReg *unitreg.Registry
	ffi     *ffi.Table
	checker *typecheck.Checker
	comp    *compiler.Compiler
	vm      *VM
	printed []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t}
	h.dimReg = dimension.NewRegistry()
	h.unitReg = unitreg.NewRegistry()
	h.ffi = ffi.NewTable(func(s string) { h.printed = append(h.printed, s) })
	h.checker = typecheck.NewChecker(h.dimReg, h.unitReg, h.ffi)
	h.comp = compiler.New(h.checker, h.ffi)
	h.vm = New(h.comp.Program(), h.unitReg, h.ffi, func(s string) { h.printed = append(h.printed, s) })
	h.run(prelude)
	return h
}

// run type-checks, compiles, and executes source against the harness's
// persistent checker/compiler/VM state, returning the VM's results for
// this batch of statements.
func (h *harness) run(source string) ([]Result, error) {
	h.t.Helper()
	p, err := parser.New(source)
	if err != nil {
		h.t.Fatalf("parser.New(%q): %v", source, err)
	}
	stmts, err := p.ParseProgram()
	if err != nil {
		h.t.Fatalf("ParseProgram(%q): %v", source, err)
	}
	for _, s := range stmts {
		if err := h.checker.CheckStatement(s); err != nil {
			h.t.Fatalf("CheckStatement(%q): %v", source, err)
		}
	}
	prog, err := h.comp.Compile(stmts)
	if err != nil {
		h.t.Fatalf("Compile(%q): %v", source, err)
	}
	h.vm.Sync(prog)
	return h.vm.Run()
}

func lastResult(t *testing.T, results []Result) Result {
	t.Helper()
	if len(results) == 0 {
		t.Fatal("no results")
	}
	return results[len(results)-1]
}

func TestRunLetThenIdentifierReturnsAssignedQuantity(t *testing.T) {
	h := newHarness(t)
	results, err := h.run("let x = 2*a\nx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := lastResult(t, results)
	if !res.HasValue {
		t.Fatal("expected a value")
	}
	if res.Quantity.Value != 2 {
		t.Errorf("value = %v, want 2", res.Quantity.Value)
	}
	if !res.Quantity.Unit.Equal(unitreg.Single("a")) {
		t.Errorf("unit = %v, want a", res.Quantity.Unit)
	}
}

func TestRunLetProducesContinueResult(t *testing.T) {
	h := newHarness(t)
	results, err := h.run("let x = 2*a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := lastResult(t, results)
	if res.HasValue {
		t.Error("expected Continue (no value) for a let statement")
	}
}

func TestRunPrefixedUnitIdentifierScalesValue(t *testing.T) {
	h := newHarness(t)
	results, err := h.run("ka")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := lastResult(t, results)
	if res.Quantity.Value != 1000 {
		t.Errorf("value = %v, want 1000 (kilo * 1)", res.Quantity.Value)
	}
	if !res.Quantity.Unit.Equal(unitreg.Single("a")) {
		t.Errorf("unit = %v, want a", res.Quantity.Unit)
	}
}

func TestRunFactorial(t *testing.T) {
	h := newHarness(t)
	results, err := h.run("5!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := lastResult(t, results)
	if res.Quantity.Value != 120 {
		t.Errorf("5! = %v, want 120", res.Quantity.Value)
	}
}

func TestRunFactorialOfNegativeIsError(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("(0-5)!")
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestRunDivisionByZero(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("1/(1-1)")
	if err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestRunConditionalTakesTrueBranch(t *testing.T) {
	h := newHarness(t)
	results, err := h.run("if 1 < 2 then 10 else 20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lastResult(t, results).Quantity.Value; got != 10 {
		t.Errorf("got %v, want 10", got)
	}
}

func TestRunConditionalTakesFalseBranch(t *testing.T) {
	h := newHarness(t)
	results, err := h.run("if 2 < 1 then 10 else 20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lastResult(t, results).Quantity.Value; got != 20 {
		t.Errorf("got %v, want 20", got)
	}
}

func TestRunFunctionCallAsStatement(t *testing.T) {
	h := newHarness(t)
	results, err := h.run("fn f(x: A) -> A = x\nf(a)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := lastResult(t, results)
	if res.Quantity.Value != 1 || !res.Quantity.Unit.Equal(unitreg.Single("a")) {
		t.Errorf("f(a) = %+v, want 1 a", res.Quantity)
	}
}

func TestRunAnsAndUnderscoreRebindAfterEachStatement(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("2*a"); err != nil {
		t.Fatal(err)
	}
	results, err := h.run("ans")
	if err != nil {
		t.Fatal(err)
	}
	if got := lastResult(t, results).Quantity.Value; got != 2 {
		t.Errorf("ans = %v, want 2", got)
	}
}

func TestRunPrintEmitsToSink(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run(`print(2 a)`); err != nil {
		t.Fatal(err)
	}
	if len(h.printed) == 0 {
		t.Fatal("expected print to invoke the sink")
	}
	if !strings.Contains(h.printed[len(h.printed)-1], "2") {
		t.Errorf("printed = %q, want it to mention 2", h.printed[len(h.printed)-1])
	}
}

func TestRunTypeEmitsRenderedDimension(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run(`type(2*a)`); err != nil {
		t.Fatal(err)
	}
	if len(h.printed) == 0 {
		t.Fatal("expected type() to invoke the sink")
	}
	if h.printed[len(h.printed)-1] != "A" {
		t.Errorf("printed = %q, want %q", h.printed[len(h.printed)-1], "A")
	}
}

func TestRunAssertEqPasses(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run(`assert_eq(2 a, 2 a)`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunAssertEqFails(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(`assert_eq(2 a, 3 a)`)
	if err == nil {
		t.Fatal("expected assert_eq to fail")
	}
}

func TestRunRecoversAfterRuntimeError(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("1/(1-1)"); err == nil {
		t.Fatal("expected an error")
	}
	results, err := h.run("2*a")
	if err != nil {
		t.Fatalf("expected the VM to recover and accept the next statement: %v", err)
	}
	res := lastResult(t, results)
	if res.Quantity.Value != 2 {
		t.Errorf("got %v, want 2", res.Quantity.Value)
	}
}

func TestRunFFIFunction(t *testing.T) {
	h := newHarness(t)
	if err := h.checker.RegisterFunction(typecheck.FunctionSignature{
		Name:       "sqrt",
		ParamTypes: []typecheck.Type{typecheck.Scalar},
		ReturnType: typecheck.Scalar,
		IsForeign:  true,
	}); err != nil {
		t.Fatal(err)
	}
	results, err := h.run("sqrt(9)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lastResult(t, results).Quantity.Value; got != 3 {
		t.Errorf("sqrt(9) = %v, want 3", got)
	}
}
