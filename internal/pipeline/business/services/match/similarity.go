package match

import "strings"

// foldName is the canonical form used for exact-name lookups.
func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// tokenSetSimilarity scores two names on the overlap of their unique,
// case-folded word sets: 2*|A∩B| / (|A|+|B|). Word order and duplicates do
// not matter, which suits seller-rewritten listings ("5G Galaxy S24 Samsung"
// still scores high against "Samsung Galaxy S24 5G").
func tokenSetSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	common := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common++
		}
	}
	return 2 * float64(common) / float64(len(setA)+len(setB))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = struct{}{}
	}
	return set
}
