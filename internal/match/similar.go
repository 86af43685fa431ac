package match

import "strings"

// Similar reports whether two titles share every word of the shorter one
// after normalization and case folding.
func Similar(a, b string) bool {
	ta := strings.Fields(strings.ToLower(Normalize(a)))
	tb := strings.Fields(strings.ToLower(Normalize(b)))
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	set := make(map[string]struct{}, len(tb))
	for _, t := range tb {
		set[t] = struct{}{}
	}
	for _, t := range ta {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// YearDistance is the absolute distance between two years. Unknown years
// (non-positive) sort after every known one.
func YearDistance(year, expected int) int {
	if year <= 0 || expected <= 0 {
		return 1 << 30
	}
	if d := year - expected; d >= 0 {
		return d
	}
	return expected - year
}
