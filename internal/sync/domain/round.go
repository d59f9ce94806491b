package domain

// RoundOutcome is the terminal state of one reconciliation round.
type RoundOutcome string

const (
	OutcomeBootstrapped RoundOutcome = "bootstrapped"
	OutcomeCursorReset  RoundOutcome = "cursor_reset"
	OutcomeCompleted    RoundOutcome = "completed"
	OutcomeFailed       RoundOutcome = "failed"
)

// RoundResult summarizes a reconciliation round.
type RoundResult struct {
	Outcome           RoundOutcome `json:"outcome"`
	StartCursor       uint64       `json:"start_cursor"`
	HighWaterMark     uint64       `json:"high_water_mark"`
	NotifiedHistoryID uint64       `json:"notified_history_id"`
	FinalCursor       uint64       `json:"final_cursor"`
	Processed         int          `json:"processed"`
	Succeeded         int          `json:"succeeded"`
	Failed            int          `json:"failed"`
	Skipped           int          `json:"skipped"`
}
