package prefix

import "testing"

func TestSplitPrefersLongestMatch(t *testing.T) {
	units := map[string]bool{"m": true, "eter": false}
	entry, base, ok := Split("km", func(name string) bool { return units[name] })
	if !ok {
		t.Fatal("expected split to succeed")
	}
	if entry.Long != "kilo" || base != "m" {
		t.Errorf("got (%+v, %q), want kilo/m", entry, base)
	}
}

func TestSplitNoMatch(t *testing.T) {
	_, _, ok := Split("xyz", func(string) bool { return false })
	if ok {
		t.Fatal("expected no split")
	}
}

func TestByShort(t *testing.T) {
	entry, ok := ByShort("M")
	if !ok || entry.Long != "mega" {
		t.Errorf("ByShort(M) = %+v, %v, want mega", entry, ok)
	}
	if _, ok := ByShort("??"); ok {
		t.Error("expected ByShort to fail for unknown symbol")
	}
}
