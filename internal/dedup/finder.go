package dedup

import "sort"

// Find enumerates every unordered pair among the given vendors, scores each
// one, and returns the pairs with score ≥ threshold, sorted descending by
// score and truncated to limit. Ties keep input-pair order (stable sort), so
// output is deterministic for a given input ordering.
//
// Callers pass canonical vendors only — Find does not re-filter for
// canonicality. Comparisons are O(n²), which is a deliberate scoping
// decision: vendor lists run to the thousands, not millions.
func Find(vendors []Record, threshold float64, limit int) []ScoredPair {
	seen := make(map[string]struct{}, len(vendors))
	var pairs []ScoredPair

	for i := 0; i < len(vendors); i++ {
		for j := i + 1; j < len(vendors); j++ {
			a, b := vendors[i], vendors[j]
			if a.ID == b.ID {
				// Duplicate input row — the i<j loop already avoids
				// re-deriving the same unordered pair.
				continue
			}
			key := pairKey(a, b)
			if _, done := seen[key]; done {
				continue
			}
			seen[key] = struct{}{}

			score, reasons := Score(a, b)
			if score < threshold {
				continue
			}
			pairs = append(pairs, ScoredPair{
				VendorAID:    a.ID,
				VendorAName:  a.CompanyName,
				VendorBID:    b.ID,
				VendorBName:  b.CompanyName,
				Similarity:   score,
				MatchReasons: reasons,
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// Comparisons returns the number of pairs scored over n distinct vendors.
func Comparisons(n int) int { return n * (n - 1) / 2 }

// pairKey builds an order-independent key for an unordered vendor pair.
func pairKey(a, b Record) string {
	x, y := a.ID.String(), b.ID.String()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}
