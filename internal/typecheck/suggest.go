package typecheck

// damerauLevenshtein computes the Damerau-Levenshtein edit distance
// (insertions, deletions, substitutions, and adjacent transpositions)
// between a and b.
func damerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if t := d[i-2][j-2] + cost; t < best {
					best = t
				}
			}
			d[i][j] = best
		}
	}
	return d[la][lb]
}

// suggest returns the closest candidate to probe by Damerau-Levenshtein
// distance, per spec.md §4.3's UnknownIdentifier suggestion rule: both
// names must be at least length 2, probe must be at least length 3, and
// the distance must be at most 3. Ties are broken by lexical order of the
// candidate name, for determinism.
func suggest(probe string, candidates []string) string {
	if len(probe) < 3 {
		return ""
	}
	best := ""
	bestDist := 4 // one more than the maximum accepted distance
	for _, candidate := range candidates {
		if len(candidate) < 2 {
			continue
		}
		dist := damerauLevenshtein(probe, candidate)
		if dist > 3 {
			continue
		}
		if dist < bestDist || (dist == bestDist && candidate < best) {
			best = candidate
			bestDist = dist
		}
	}
	return best
}
