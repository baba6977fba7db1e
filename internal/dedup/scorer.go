// Package dedup implements the vendor deduplication engine: a weighted
// multi-field similarity scorer and an O(n²) pairwise duplicate finder.
// Everything in this package is pure computation — no storage, no goroutines —
// so it is safe to call concurrently for different inputs.
package dedup

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Field weights. The maximum theoretical score is 1.0 when every field
// matches perfectly; missing fields contribute 0, never a penalty.
const (
	companyNameWeight = 0.50
	phoneWeight       = 0.25
	emailExactWeight  = 0.15
	emailDomainWeight = 0.05
	contactNameWeight = 0.10
)

// Record is the projection of a vendor the scorer consumes. The full gorm
// model is not needed — callers map only these fields (see the analysis
// worker's canonical-vendor query).
type Record struct {
	ID          uuid.UUID
	CompanyName string
	ContactName string
	Email       string
	Phone       string
}

// ScoredPair is one candidate duplicate pair. Serialized as-is into the
// analysis results JSONB column and into API responses.
type ScoredPair struct {
	VendorAID    uuid.UUID `json:"vendor_a_id"`
	VendorAName  string    `json:"vendor_a_name"`
	VendorBID    uuid.UUID `json:"vendor_b_id"`
	VendorBName  string    `json:"vendor_b_name"`
	Similarity   float64   `json:"similarity"`
	MatchReasons []string  `json:"match_reasons"`
}

var (
	corporateSuffixRe = regexp.MustCompile(`\b(llc|inc|corp|co|ltd|company)\b`)
	nonAlnumRe        = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
	nonDigitRe        = regexp.MustCompile(`\D`)
)

// Domains that are too generic for a shared email domain to suggest the two
// records belong to the same company.
var freeEmailDomains = map[string]bool{
	"gmail.com":   true,
	"yahoo.com":   true,
	"hotmail.com": true,
	"outlook.com": true,
}

// Score computes a weighted similarity in [0,1] between two vendor records,
// plus human-readable reasons for the match. Pure, deterministic, and
// symmetric: Score(a, b) == Score(b, a). The result is rounded to 3 decimal
// places. Callers must never pass the same vendor on both sides — the finder
// enforces that.
func Score(a, b Record) (float64, []string) {
	var score float64
	var reasons []string

	if a.CompanyName != "" && b.CompanyName != "" {
		na, nb := normalizeName(a.CompanyName), normalizeName(b.CompanyName)
		if na != "" && nb != "" {
			pct := similarityPercent(na, nb)
			score += pct / 100 * companyNameWeight
			if pct > 60 {
				reasons = append(reasons, fmt.Sprintf("Similar company name (%.0f%% match)", pct))
			}
		}
	}

	pa, pb := nonDigitRe.ReplaceAllString(a.Phone, ""), nonDigitRe.ReplaceAllString(b.Phone, "")
	if len(pa) >= 10 && pa == pb {
		score += phoneWeight
		reasons = append(reasons, "Same phone number")
	}

	ea, eb := strings.ToLower(strings.TrimSpace(a.Email)), strings.ToLower(strings.TrimSpace(b.Email))
	if ea != "" && eb != "" {
		if ea == eb {
			score += emailExactWeight
			reasons = append(reasons, "Same email address")
		} else if d := emailDomain(ea); d != "" && d == emailDomain(eb) && !freeEmailDomains[d] {
			// Same company domain is weak evidence — scored but deliberately
			// not surfaced as a reason.
			score += emailDomainWeight
		}
	}

	if a.ContactName != "" && b.ContactName != "" {
		na, nb := normalizeName(a.ContactName), normalizeName(b.ContactName)
		if na != "" && nb != "" {
			if pct := similarityPercent(na, nb); pct > 70 {
				score += pct / 100 * contactNameWeight
				if pct > 80 {
					reasons = append(reasons, fmt.Sprintf("Similar contact name (%.0f%% match)", pct))
				}
			}
		}
	}

	return math.Round(score*1000) / 1000, reasons
}

// normalizeName lowercases, strips common corporate suffixes as whole words,
// removes non-alphanumeric characters, and collapses whitespace.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = corporateSuffixRe.ReplaceAllString(s, " ")
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// emailDomain returns the part after the last '@', or "" if there is none.
func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

// similarityPercent returns a character-level similarity between a and b on a
// 0–100 scale: 2 × matching / (len(a)+len(b)) × 100, where matching counts
// the longest common substring plus, recursively, the regions to its left and
// right. Thresholds elsewhere in the engine are calibrated against this exact
// metric — do not swap in Levenshtein or the like.
func similarityPercent(a, b string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// longestCommonSubstring breaks length ties by first-found position, so
	// which substring anchors the recursion depends on argument order.
	// Canonicalize the order to keep the metric symmetric.
	if a > b {
		a, b = b, a
	}
	return float64(2*similarChars(a, b)) / float64(len(a)+len(b)) * 100
}

func similarChars(a, b string) int {
	posA, posB, max := longestCommonSubstring(a, b)
	if max == 0 {
		return 0
	}
	sum := max
	if posA > 0 && posB > 0 {
		sum += similarChars(a[:posA], b[:posB])
	}
	if posA+max < len(a) && posB+max < len(b) {
		sum += similarChars(a[posA+max:], b[posB+max:])
	}
	return sum
}

func longestCommonSubstring(a, b string) (posA, posB, max int) {
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > max {
				posA, posB, max = i, j, k
			}
		}
	}
	return
}
