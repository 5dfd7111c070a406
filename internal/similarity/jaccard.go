// Package similarity measures lexical overlap between token sets.
package similarity

import "github.com/sells-group/deep-research/internal/canon"

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b canon.TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if large.Has(t) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Text tokenizes both strings and returns their Jaccard similarity.
func Text(a, b string) float64 {
	return Jaccard(canon.Tokenize(a), canon.Tokenize(b))
}
