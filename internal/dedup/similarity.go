package dedup

import "strings"

// Similarity computes a matching-blocks ratio between two text blobs:
// 2 * matched / (len(a) + len(b)) after collapsing whitespace runs to
// single spaces. Returns a value in [0, 1]; empty input on either side
// yields 0. Symmetric and deterministic.
//
// Cost is O(len(a) * len(b)) per call; callers comparing one candidate
// against every current item pay that per item.
func Similarity(a, b string) float64 {
	an := normalizeWhitespace(a)
	bn := normalizeWhitespace(b)
	if an == "" || bn == "" {
		return 0.0
	}

	ar := []rune(an)
	br := []rune(bn)
	matched := matchedRunes(ar, br)
	return 2.0 * float64(matched) / float64(len(ar)+len(br))
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// matchedRunes counts the total characters covered by matching blocks:
// the longest common run, then recursively the pieces to its left and right.
func matchedRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ai, bi, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}

	return size +
		matchedRunes(a[:ai], b[:bi]) +
		matchedRunes(a[ai+size:], b[bi+size:])
}

// longestCommonRun finds the longest common contiguous run of a and b,
// returning its start offsets and length. Ties go to the earliest run in a.
func longestCommonRun(a, b []rune) (int, int, int) {
	var bestA, bestB, best int

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
				bestA = i - best
				bestB = j - best
			}
		}
		prev, cur = cur, prev
		for j := range cur {
			cur[j] = 0
		}
	}

	return bestA, bestB, best
}
