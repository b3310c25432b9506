package fmtunit

import (
	"testing"

	"github.com/gurre/dimcalc/internal/dimension"
	"github.com/gurre/dimcalc/internal/quantity"
	"github.com/gurre/dimcalc/internal/unitreg"
)

func newRegistry(t *testing.T) *unitreg.Registry {
	t.Helper()
	dimReg := dimension.NewRegistry()
	if err := dimReg.AddBaseDimension("Length"); err != nil {
		t.Fatal(err)
	}
	if err := dimReg.AddBaseDimension("Time"); err != nil {
		t.Fatal(err)
	}
	length, err := dimReg.BaseRepresentationOf("Length")
	if err != nil {
		t.Fatal(err)
	}
	time, err := dimReg.BaseRepresentationOf("Time")
	if err != nil {
		t.Fatal(err)
	}
	reg := unitreg.NewRegistry()
	if err := reg.AddBaseUnit("meter", length, "m"); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddBaseUnit("second", time, "s"); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestFormatQuantityDimensionless(t *testing.T) {
	reg := newRegistry(t)
	got := FormatQuantity(reg, quantity.Scalar(3))
	if got != "3" {
		t.Errorf("got %q, want %q", got, "3")
	}
}

func TestFormatQuantitySingleUnit(t *testing.T) {
	reg := newRegistry(t)
	got := FormatQuantity(reg, quantity.New(5, unitreg.Single("meter")))
	if got != "5 meter" {
		t.Errorf("got %q, want %q", got, "5 meter")
	}
}

func TestFormatUnitDivision(t *testing.T) {
	reg := newRegistry(t)
	u := unitreg.Single("meter").Divide(unitreg.Single("second"))
	got := FormatUnit(reg, u)
	if got != "meter/second" {
		t.Errorf("got %q, want %q", got, "meter/second")
	}
}

func TestFormatUnitNegativeExponent(t *testing.T) {
	reg := newRegistry(t)
	squared := unitreg.Single("second").Multiply(unitreg.Single("second"))
	u := unitreg.Single("meter").Divide(squared)
	got := FormatUnit(reg, u)
	if got != "meter/second^2" {
		t.Errorf("got %q, want %q", got, "meter/second^2")
	}
}

func TestFormatUnitMultiFactorDenominatorIsParenthesized(t *testing.T) {
	reg := newRegistry(t)
	denom := unitreg.Single("second").Multiply(unitreg.Single("meter"))
	u := unitreg.One().Divide(denom)
	got := FormatUnit(reg, u)
	want := "1/(meter·second)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
