package dedup

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind_ThresholdFilters(t *testing.T) {
	a := rec("Acme Industrial Supply LLC", "", "", "(555) 123-4567")
	b := rec("Acme Industrial Supply", "", "", "555.123.4567")
	c := rec("Zenith Plumbing Co", "", "", "(555) 999-0000")

	pairs := Find([]Record{a, b, c}, 0.7, 50)

	require.Len(t, pairs, 1)
	assert.Equal(t, a.ID, pairs[0].VendorAID)
	assert.Equal(t, b.ID, pairs[0].VendorBID)
	assert.InDelta(t, 0.75, pairs[0].Similarity, 0.0001)
	assert.Contains(t, pairs[0].MatchReasons, "Same phone number")
}

func TestFind_SortedDescendingAndTruncated(t *testing.T) {
	// a/b match on company+phone+email, a/c and b/c on company only.
	a := rec("Acme Industrial Supply", "", "sales@acmesupply.com", "(555) 123-4567")
	b := rec("Acme Industrial Supply", "", "sales@acmesupply.com", "555-123-4567")
	c := rec("Acme Industrial Supply", "", "", "")

	all := Find([]Record{a, b, c}, 0.3, 50)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Similarity, all[i].Similarity)
	}
	assert.Equal(t, a.ID, all[0].VendorAID)
	assert.Equal(t, b.ID, all[0].VendorBID)

	limited := Find([]Record{a, b, c}, 0.3, 2)
	require.Len(t, limited, 2)
	assert.Equal(t, all[0], limited[0])
	assert.Equal(t, all[1], limited[1])
}

func TestFind_NeverComparesVendorToItself(t *testing.T) {
	a := rec("Acme Industrial Supply", "", "", "(555) 123-4567")

	pairs := Find([]Record{a, a}, 0.0, 50)

	assert.Empty(t, pairs)
}

func TestFind_DuplicateInputRowsYieldOnePair(t *testing.T) {
	a := rec("Acme Industrial Supply", "", "", "(555) 123-4567")
	b := rec("Acme Industrial Supply", "", "", "(555) 123-4567")

	// a appears twice; the (a, b) pair must still be reported exactly once.
	pairs := Find([]Record{a, b, a}, 0.5, 50)

	require.Len(t, pairs, 1)
	assert.Equal(t, a.ID, pairs[0].VendorAID)
	assert.Equal(t, b.ID, pairs[0].VendorBID)
}

func TestFind_EmptyAndSingleInput(t *testing.T) {
	assert.Empty(t, Find(nil, 0.5, 50))
	assert.Empty(t, Find([]Record{rec("Solo Vendor", "", "", "")}, 0.0, 50))
}

func TestFind_TiesKeepInputOrder(t *testing.T) {
	// Three identical vendors produce three pairs with equal scores; stable
	// sort must preserve enumeration order (a,b), (a,c), (b,c).
	a := rec("Acme Industrial Supply", "", "", "(555) 123-4567")
	b := rec("Acme Industrial Supply", "", "", "(555) 123-4567")
	c := rec("Acme Industrial Supply", "", "", "(555) 123-4567")

	pairs := Find([]Record{a, b, c}, 0.5, 50)

	require.Len(t, pairs, 3)
	assert.Equal(t, [2]uuid.UUID{a.ID, b.ID}, [2]uuid.UUID{pairs[0].VendorAID, pairs[0].VendorBID})
	assert.Equal(t, [2]uuid.UUID{a.ID, c.ID}, [2]uuid.UUID{pairs[1].VendorAID, pairs[1].VendorBID})
	assert.Equal(t, [2]uuid.UUID{b.ID, c.ID}, [2]uuid.UUID{pairs[2].VendorAID, pairs[2].VendorBID})
}

func TestComparisons(t *testing.T) {
	assert.Equal(t, 0, Comparisons(0))
	assert.Equal(t, 0, Comparisons(1))
	assert.Equal(t, 1, Comparisons(2))
	assert.Equal(t, 10, Comparisons(5))
	assert.Equal(t, 4950, Comparisons(100))
}
