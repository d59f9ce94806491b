package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, LevenshteinDistance("Pump", "pump"))
	assert.Equal(t, 3, LevenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 4, LevenshteinDistance("", "seal"))
	assert.Equal(t, 0, LevenshteinDistance("café", "cafe"))
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"refund", "policy", "order"}, Terms("Refund policy? My order... refund!! is ok"))
	assert.Empty(t, Terms("a b c"))
}

func TestScore(t *testing.T) {
	snippet := "Refunds are processed within 5 business days of receiving the returned pump."

	assert.Equal(t, 0.0, Score("invoice address", snippet))
	assert.Equal(t, 0.0, Score("", snippet))
	assert.Equal(t, 1.0, Score("returned pump", snippet))

	exact := Score("pump refund", snippet)
	typo := Score("pmup", snippet)
	assert.Greater(t, exact, typo)
	assert.Greater(t, exact, 0.0)
	assert.Greater(t, Score("pumps", snippet), 0.0, "prefix counts partially")
}
