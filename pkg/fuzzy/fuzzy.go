package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LevenshteinDistance calculates the edit distance between two strings
// This measures how many single-character edits (insertions, deletions, or substitutions)
// are required to change one string into another
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(Normalize(s1))
	r2 := []rune(Normalize(s2))
	m := len(r1)
	n := len(r2)

	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// two rolling rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// Score rates how well text matches query, from 0 (no term matches) to 1 (every term
// appears as a whole word). Terms shorter than three letters are ignored. Typos within
// the length-based tolerance and prefix matches count partially.
func Score(query, text string) float64 {
	terms := Terms(query)
	if len(terms) == 0 {
		return 0
	}

	words := Terms(text)
	if len(words) == 0 {
		return 0
	}
	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[w] = struct{}{}
	}

	total := 0.0
	for _, term := range terms {
		if _, ok := wordSet[term]; ok {
			total += 1.0
			continue
		}
		total += bestPartial(term, words)
	}
	return total / float64(len(terms))
}

func bestPartial(term string, words []string) float64 {
	threshold := typoThreshold(term)
	best := 0.0
	for _, word := range words {
		if strings.HasPrefix(word, term) || strings.HasPrefix(term, word) && len(word) >= 4 {
			if best < 0.6 {
				best = 0.6
			}
			continue
		}
		if dist := LevenshteinDistance(term, word); dist <= threshold {
			if s := 0.5 - 0.1*float64(dist-1); s > best {
				best = s
			}
		}
	}
	return best
}

// typoThreshold is the allowed edit distance for a term of this length
func typoThreshold(term string) int {
	switch n := len([]rune(term)); {
	case n <= 3:
		return 0
	case n >= 8:
		return 2
	default:
		return 1
	}
}

// Terms splits s into distinct normalized words of at least three letters, in order.
func Terms(s string) []string {
	fields := strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Normalize lowercases s, strips diacritics and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = removeAccents(s)
	return strings.Join(strings.Fields(s), " ")
}

// Helper functions

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// removeAccents removes diacritical marks from a string
func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
