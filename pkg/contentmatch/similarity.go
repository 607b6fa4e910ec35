package contentmatch

import "strings"

// similarity compares two strings case-insensitively and returns a score in
// [0,1]: twice the number of matched runes over the total rune count, where
// matches are found by repeatedly taking the longest common block.
func similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	return 2 * float64(matchedRunes(ra, rb)) / float64(len(ra)+len(rb))
}

func matchedRunes(a, b []rune) int {
	i, j, k := longestCommonBlock(a, b)
	if k == 0 {
		return 0
	}
	return k + matchedRunes(a[:i], b[:j]) + matchedRunes(a[i+k:], b[j+k:])
}

// longestCommonBlock returns the start in a, start in b and length of the
// longest common substring. Ties go to the earliest start in a, then in b.
func longestCommonBlock(a, b []rune) (int, int, int) {
	best, bestI, bestJ := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				cur[j] = 0
				continue
			}
			cur[j] = prev[j-1] + 1
			if cur[j] > best {
				best = cur[j]
				bestI, bestJ = i-best, j-best
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, best
}
