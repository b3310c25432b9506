package unitreg

import (
	"testing"

	"github.com/gurre/dimcalc/internal/dimension"
	"github.com/gurre/dimcalc/internal/rational"
)

func newTestRegistry(t *testing.T) (*Registry, *dimension.Registry) {
	t.Helper()
	dimReg := dimension.NewRegistry()
	if err := dimReg.AddBaseDimension("A"); err != nil {
		t.Fatal(err)
	}
	if err := dimReg.AddBaseDimension("B"); err != nil {
		t.Fatal(err)
	}
	unitReg := NewRegistry()
	aRep, _ := dimReg.BaseRepresentationOf("A")
	bRep, _ := dimReg.BaseRepresentationOf("B")
	if err := unitReg.AddBaseUnit("a", aRep); err != nil {
		t.Fatal(err)
	}
	if err := unitReg.AddBaseUnit("b", bRep, "bee"); err != nil {
		t.Fatal(err)
	}
	return unitReg, dimReg
}

func TestAddBaseUnitDuplicate(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if err := reg.AddBaseUnit("a", dimension.Empty()); err == nil {
		t.Fatal("expected error re-declaring unit a")
	}
}

func TestAliasResolution(t *testing.T) {
	reg, _ := newTestRegistry(t)
	entry, err := reg.Resolve("bee")
	if err != nil {
		t.Fatal(err)
	}
	if entry.CanonicalName != "b" {
		t.Errorf("alias bee resolved to %q, want b", entry.CanonicalName)
	}
}

func TestDerivedUnitFactorAndDimension(t *testing.T) {
	reg, dimReg := newTestRegistry(t)
	cRep, err := dimReg.Evaluate(dimension.MulExpr{dimension.NamedExpr{Name: "A"}, dimension.NamedExpr{Name: "B"}})
	if err != nil {
		t.Fatal(err)
	}
	_ = cRep

	// c = a * b
	if err := reg.AddDerivedUnit("c", MulExpr{NamedExpr{"a"}, NamedExpr{"b"}}); err != nil {
		t.Fatal(err)
	}
	entry, err := reg.Resolve("c")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Factor.Float64() != 1 {
		t.Errorf("c factor = %v, want 1", entry.Factor)
	}
	wantDim, _ := dimReg.Evaluate(dimension.MulExpr{dimension.NamedExpr{Name: "A"}, dimension.NamedExpr{Name: "B"}})
	if !entry.Dimension.Equal(wantDim) {
		t.Errorf("c dimension = %v, want %v", entry.Dimension, wantDim)
	}

	// kiloA = 1000 * a
	if err := reg.AddDerivedUnit("kiloA", MulExpr{ScalarExpr{Value: 1000}, NamedExpr{"a"}}); err != nil {
		t.Fatal(err)
	}
	kentry, err := reg.Resolve("kiloA")
	if err != nil {
		t.Fatal(err)
	}
	if kentry.Factor.Float64() != 1000 {
		t.Errorf("kiloA factor = %v, want 1000", kentry.Factor)
	}
}

func TestBaseFactorOfWithPower(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if err := reg.AddDerivedUnit("kiloA", MulExpr{ScalarExpr{Value: 1000}, NamedExpr{"a"}}); err != nil {
		t.Fatal(err)
	}
	u := Single("kiloA").Power(rational.FromInt(2))
	factor, expansion, err := reg.BaseFactorOf(u)
	if err != nil {
		t.Fatal(err)
	}
	if factor.Float64() != 1_000_000 {
		t.Errorf("kiloA^2 factor = %v, want 1e6", factor)
	}
	want := Single("a").Power(rational.FromInt(2))
	if !expansion.Equal(want) {
		t.Errorf("kiloA^2 expansion = %v, want %v", expansion, want)
	}
}

func TestUnitAlgebra(t *testing.T) {
	a := Single("a")
	b := Single("b")
	ab := a.Multiply(b)
	if !ab.Equal(Unit{"a": rational.One, "b": rational.One}) {
		t.Errorf("a*b = %v", ab)
	}
	back := ab.Divide(b)
	if !back.Equal(a) {
		t.Errorf("(a*b)/b = %v, want a", back)
	}
}
