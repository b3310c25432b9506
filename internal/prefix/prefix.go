// Package prefix implements the fixed table of SI and binary prefixes and
// the rewrite of a prefixed identifier (e.g. "km") into (prefix, base-unit
// name) before type checking, per spec.md §2's "name resolver / prefix
// transformer" collaborator.
package prefix

import (
	"math"
	"sort"
)

// Entry is one (long-name, short-name, multiplier) triple.
type Entry struct {
	Long       string
	Short      string
	Multiplier float64
}

// Table is the fixed list of SI and binary prefixes, generalized from a
// short-symbol-only prefix map into a data table with both long and short
// forms, since spec.md's prefix transformer rewrites a long-named alias
// too (e.g. "kilometer").
var Table = []Entry{
	{"yotta", "Y", 1e24},
	{"zetta", "Z", 1e21},
	{"exa", "E", 1e18},
	{"peta", "P", 1e15},
	{"tera", "T", 1e12},
	{"giga", "G", 1e9},
	{"mega", "M", 1e6},
	{"kilo", "k", 1e3},
	{"hecto", "h", 1e2},
	{"deca", "da", 1e1},
	{"deci", "d", 1e-1},
	{"centi", "c", 1e-2},
	{"milli", "m", 1e-3},
	{"micro", "u", 1e-6},
	{"nano", "n", 1e-9},
	{"pico", "p", 1e-12},
	{"femto", "f", 1e-15},
	{"atto", "a", 1e-18},
	{"zepto", "z", 1e-21},
	{"yocto", "y", 1e-24},
	{"kibi", "Ki", math.Pow(2, 10)},
	{"mebi", "Mi", math.Pow(2, 20)},
	{"gibi", "Gi", math.Pow(2, 30)},
	{"tebi", "Ti", math.Pow(2, 40)},
	{"pebi", "Pi", math.Pow(2, 50)},
	{"exbi", "Ei", math.Pow(2, 60)},
}

// sortedBySymbolLength lists every prefix spelling (long and short) paired
// with its Entry, longest spelling first, so greedy matching of a
// compound identifier (e.g. "kilometer") prefers "kilo" over a shorter
// false match.
var sortedBySymbolLength = func() []struct {
	Spelling string
	Entry    Entry
} {
	var all []struct {
		Spelling string
		Entry    Entry
	}
	for _, e := range Table {
		all = append(all, struct {
			Spelling string
			Entry    Entry
		}{e.Long, e})
		all = append(all, struct {
			Spelling string
			Entry    Entry
		}{e.Short, e})
	}
	sort.Slice(all, func(i, j int) bool {
		return len(all[i].Spelling) > len(all[j].Spelling)
	})
	return all
}()

// Split attempts to split identifier into (prefix spelling, base name)
// where base is a registered unit name (checked via hasUnit). It tries
// every known prefix spelling, longest first, and returns the first split
// whose remainder hasUnit accepts. ok is false when no split applies (the
// identifier is presumed to be a bare, unprefixed unit or not a unit at
// all).
func Split(identifier string, hasUnit func(name string) bool) (entry Entry, base string, ok bool) {
	for _, candidate := range sortedBySymbolLength {
		if len(candidate.Spelling) == 0 || len(candidate.Spelling) >= len(identifier) {
			continue
		}
		if identifier[:len(candidate.Spelling)] != candidate.Spelling {
			continue
		}
		rest := identifier[len(candidate.Spelling):]
		if hasUnit(rest) {
			return candidate.Entry, rest, true
		}
	}
	return Entry{}, "", false
}

// ByShort looks up a prefix entry by its short symbol, e.g. "k" -> kilo.
func ByShort(symbol string) (Entry, bool) {
	for _, e := range Table {
		if e.Short == symbol {
			return e, true
		}
	}
	return Entry{}, false
}
