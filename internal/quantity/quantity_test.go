package quantity

import (
	"testing"

	"github.com/gurre/dimcalc/internal/dimension"
	"github.com/gurre/dimcalc/internal/rational"
	"github.com/gurre/dimcalc/internal/unitreg"
)

// newTestRegistries builds a length/time registry with meter/kilometer and
// second/minute units, analogous to a tiny slice of the real prefix table.
func newTestRegistries(t *testing.T) (*dimension.Registry, *unitreg.Registry) {
	t.Helper()
	dimReg := dimension.NewRegistry()
	if err := dimReg.AddBaseDimension("Length"); err != nil {
		t.Fatal(err)
	}
	if err := dimReg.AddBaseDimension("Time"); err != nil {
		t.Fatal(err)
	}
	lengthRep, _ := dimReg.BaseRepresentationOf("Length")
	timeRep, _ := dimReg.BaseRepresentationOf("Time")

	unitReg := unitreg.NewRegistry()
	if err := unitReg.AddBaseUnit("meter", lengthRep, "m"); err != nil {
		t.Fatal(err)
	}
	if err := unitReg.AddBaseUnit("second", timeRep, "s"); err != nil {
		t.Fatal(err)
	}
	if err := unitReg.AddDerivedUnit("kilometer", unitreg.MulExpr{
		Left:  unitreg.ScalarExpr{Value: 1000},
		Right: unitreg.NamedExpr{Name: "meter"},
	}, "km"); err != nil {
		t.Fatal(err)
	}
	if err := unitReg.AddDerivedUnit("minute", unitreg.MulExpr{
		Left:  unitreg.ScalarExpr{Value: 60},
		Right: unitreg.NamedExpr{Name: "second"},
	}, "min"); err != nil {
		t.Fatal(err)
	}
	return dimReg, unitReg
}

func TestAddConvertsUnits(t *testing.T) {
	_, unitReg := newTestRegistries(t)
	oneKm := New(1, unitreg.Single("kilometer"))
	fiveHundredM := New(500, unitreg.Single("meter"))
	sum, err := Add(unitReg, oneKm, fiveHundredM)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Value != 1.5 {
		t.Errorf("1 km + 500 m = %v km, want 1.5", sum.Value)
	}
}

func TestAddDimensionMismatch(t *testing.T) {
	_, unitReg := newTestRegistries(t)
	a := New(1, unitreg.Single("meter"))
	b := New(1, unitreg.Single("second"))
	if _, err := Add(unitReg, a, b); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestMulDivComposeUnits(t *testing.T) {
	_, unitReg := newTestRegistries(t)
	length := New(10, unitreg.Single("meter"))
	time := New(2, unitreg.Single("second"))
	speed, err := Div(length, time)
	if err != nil {
		t.Fatal(err)
	}
	if speed.Value != 5 {
		t.Errorf("10 m / 2 s = %v, want 5", speed.Value)
	}
	want := unitreg.Single("meter").Divide(unitreg.Single("second"))
	if !speed.Unit.Equal(want) {
		t.Errorf("10 m / 2 s unit = %v, want %v", speed.Unit, want)
	}

	back := Mul(speed, time)
	if !back.Unit.Equal(unitreg.Single("meter")) {
		t.Errorf("(m/s)*s unit = %v, want m", back.Unit)
	}
}

func TestPowDimensionedBase(t *testing.T) {
	_, unitReg := newTestRegistries(t)
	_ = unitReg
	side := New(3, unitreg.Single("meter"))
	two := Scalar(2)
	area, err := Pow(side, two)
	if err != nil {
		t.Fatal(err)
	}
	if area.Value != 9 {
		t.Errorf("3 m ^ 2 = %v, want 9", area.Value)
	}
	want := unitreg.Single("meter").Power(rational.FromInt(2))
	if !area.Unit.Equal(want) {
		t.Errorf("3 m ^ 2 unit = %v, want %v", area.Unit, want)
	}
}

func TestPowRejectsDimensionedExponent(t *testing.T) {
	base := Scalar(2)
	exp := New(2, unitreg.Single("meter"))
	if _, err := Pow(base, exp); err == nil {
		t.Fatal("expected error for dimensioned exponent")
	}
}

func TestConvertTo(t *testing.T) {
	_, unitReg := newTestRegistries(t)
	q := New(2, unitreg.Single("kilometer"))
	converted, err := ConvertTo(unitReg, q, unitreg.Single("meter"))
	if err != nil {
		t.Fatal(err)
	}
	if converted.Value != 2000 {
		t.Errorf("2 km -> m = %v, want 2000", converted.Value)
	}
}

func TestFullSimplify(t *testing.T) {
	_, unitReg := newTestRegistries(t)
	q := New(2, unitreg.Single("kilometer"))
	simplified, err := FullSimplify(unitReg, q)
	if err != nil {
		t.Fatal(err)
	}
	if simplified.Value != 2000 {
		t.Errorf("full_simplify(2 km) value = %v, want 2000", simplified.Value)
	}
	if !simplified.Unit.Equal(unitreg.Single("meter")) {
		t.Errorf("full_simplify(2 km) unit = %v, want meter", simplified.Unit)
	}
}

func TestEqualsAndCompare(t *testing.T) {
	_, unitReg := newTestRegistries(t)
	oneKm := New(1, unitreg.Single("kilometer"))
	thousandM := New(1000, unitreg.Single("meter"))
	eq, err := Equals(unitReg, oneKm, thousandM)
	if err != nil {
		t.Fatal(err)
	}
	if !eq {
		t.Error("1 km should equal 1000 m")
	}

	smaller := New(500, unitreg.Single("meter"))
	cmp, err := Compare(unitReg, oneKm, smaller)
	if err != nil {
		t.Fatal(err)
	}
	if cmp <= 0 {
		t.Errorf("Compare(1 km, 500 m) = %d, want > 0", cmp)
	}
}

func TestNegate(t *testing.T) {
	q := New(5, unitreg.Single("meter"))
	n := Negate(q)
	if n.Value != -5 {
		t.Errorf("Negate(5 m).Value = %v, want -5", n.Value)
	}
}
