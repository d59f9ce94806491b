package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
)

// Enumerator turns the paginated change log into a deduplicated set of added message ids.
type Enumerator struct {
	lister ChangeLister
	logger zerolog.Logger
}

func NewEnumerator(lister ChangeLister, logger zerolog.Logger) *Enumerator {
	return &Enumerator{lister: lister, logger: logger}
}

// EnumerateSince follows the change log from cursor until the continuation token runs out.
// It returns the added ids in ascending order and the highest history id seen,
// which is cursor itself when the log has no entries.
func (e *Enumerator) EnumerateSince(ctx context.Context, cursor uint64) ([]string, uint64, error) {
	seen := make(map[string]struct{})
	highWaterMark := cursor
	pageToken := ""

	for pages := 0; ; pages++ {
		page, err := e.lister.ListHistory(ctx, cursor, pageToken)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list history page %d: %w", pages+1, err)
		}

		for _, record := range page.Records {
			if record.HistoryID > highWaterMark {
				highWaterMark = record.HistoryID
			}
			for _, id := range record.AddedMessageIDs {
				seen[id] = struct{}{}
			}
		}

		if page.NextPageToken == "" {
			e.logger.Debug().
				Uint64("cursor", cursor).
				Int("pages", pages+1).
				Int("added", len(seen)).
				Uint64("high_water_mark", highWaterMark).
				Msg("history enumerated")
			break
		}
		pageToken = page.NextPageToken
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	SortMessageIDs(ids)
	return ids, highWaterMark, nil
}

// SortMessageIDs orders ids ascending: hex ids numerically first, then the rest lexically.
func SortMessageIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, errA := strconv.ParseUint(ids[i], 16, 64)
		b, errB := strconv.ParseUint(ids[j], 16, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil || errB == nil:
			// hex ids sort before anything else
			return errA == nil
		default:
			return ids[i] < ids[j]
		}
	})
}
