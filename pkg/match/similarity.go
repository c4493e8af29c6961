package match

import "strings"

// similarityMaxEdit caps the input size for edit-distance scoring; beyond it
// the quadratic cost is not worth the extra precision and token overlap is
// used instead.
const similarityMaxEdit = 512

// similarity scores how alike two strings are in [0,1]. Short inputs use a
// normalized Levenshtein ratio; long inputs fall back to token overlap.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	if len(a) > similarityMaxEdit || len(b) > similarityMaxEdit {
		return tokenOverlap(a, b)
	}

	ra := []rune(a)
	rb := []rune(b)
	longest := max(len(ra), len(rb))

	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes edit distance with the two-row dynamic programming
// formulation.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// tokenOverlap computes the Sørensen–Dice coefficient over lowercased word
// multisets.
func tokenOverlap(a, b string) float64 {
	ta := strings.Fields(strings.ToLower(a))
	tb := strings.Fields(strings.ToLower(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	counts := make(map[string]int, len(ta))
	for _, t := range ta {
		counts[t]++
	}

	common := 0
	for _, t := range tb {
		if counts[t] > 0 {
			counts[t]--
			common++
		}
	}

	return 2.0 * float64(common) / float64(len(ta)+len(tb))
}
