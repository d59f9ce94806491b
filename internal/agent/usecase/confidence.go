package usecase

import (
	"regexp"
	"strings"
)

var linkPattern = regexp.MustCompile(`https?://`)

// HeuristicScorer gives 0.7 to drafts that cite a link or were written with
// knowledge-base context, and 0.5 otherwise.
type HeuristicScorer struct{}

func (HeuristicScorer) Score(draft, context string) float64 {
	if linkPattern.MatchString(draft) || strings.TrimSpace(context) != "" {
		return 0.7
	}
	return 0.5
}
