package match

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// normalize collapses runs of whitespace to single spaces and trims the
// edges. The returned map carries, for every byte of the normalized string,
// the byte offset of the originating character in the raw input, so matches
// against the normalized form can be projected back onto raw offsets.
func normalize(s string) (string, []int) {
	buf := make([]byte, 0, len(s))
	offsets := make([]int, 0, len(s))
	pendingSpace := false

	for i, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = len(buf) > 0
			continue
		}
		if pendingSpace {
			buf = append(buf, ' ')
			offsets = append(offsets, i)
			pendingSpace = false
		}
		start := len(buf)
		buf = utf8.AppendRune(buf, r)
		for j := start; j < len(buf); j++ {
			offsets = append(offsets, i)
		}
	}

	return string(buf), offsets
}

// normalizeText is normalize without the offset map, for reference text.
func normalizeText(s string) string {
	n, _ := normalize(s)
	return n
}

// rawSpan projects a [start,end) span in normalized coordinates back onto
// the raw string the offset map was built from.
func rawSpan(raw string, offsets []int, normStart, normEnd int) (int, int) {
	if len(offsets) == 0 || normStart >= len(offsets) {
		return 0, 0
	}
	if normEnd > len(offsets) {
		normEnd = len(offsets)
	}

	start := offsets[normStart]
	last := offsets[normEnd-1]
	_, size := utf8.DecodeRuneInString(raw[last:])
	return start, last + size
}

// occurrences returns the start index of every non-overlapping occurrence of
// needle in haystack.
func occurrences(haystack, needle string) []int {
	if needle == "" {
		return nil
	}

	var found []int
	offset := 0
	for {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return found
		}
		found = append(found, offset+i)
		offset += i + len(needle)
	}
}

// nearest picks the occurrence closest to approx, or the first occurrence
// when no approximate position is known.
func nearest(positions []int, approx int) int {
	if len(positions) == 0 {
		return -1
	}
	if approx < 0 {
		return positions[0]
	}

	best := positions[0]
	for _, p := range positions[1:] {
		if abs(p-approx) < abs(best-approx) {
			best = p
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
