package domain

import "strings"

// Stage names the last completed pipeline stage of a message.
type Stage string

const (
	StagePending   Stage = "pending"
	StageParsed    Stage = "parsed"
	StageRetrieved Stage = "retrieved"
	StageDrafted   Stage = "drafted"
	StagePersisted Stage = "persisted"
)

// MessageState is the value threaded through the pipeline. Each stage consumes the
// previous result and returns the next, strictly larger one:
//
//	Pending -> Parsed -> Retrieved -> Drafted -> Persisted
//
// Values are never mutated after a stage returns them.
type MessageState interface {
	MessageID() string
	Stage() Stage
	Done() bool
}

type Pending struct {
	ID string
}

func (p Pending) MessageID() string { return p.ID }
func (Pending) Stage() Stage        { return StagePending }
func (Pending) Done() bool          { return false }

type Parsed struct {
	Pending
	Subject         string
	Sender          string
	Body            string
	ThreadID        string
	RFC822MessageID string
}

func (Parsed) Stage() Stage { return StageParsed }

// Query is the retrieval query built from subject and body.
func (p Parsed) Query() string {
	return strings.TrimSpace(p.Subject + "\n" + p.Body)
}

type Retrieved struct {
	Parsed
	Chunks  []string
	Context string
}

func (Retrieved) Stage() Stage { return StageRetrieved }

type Drafted struct {
	Retrieved
	DraftText  string
	Confidence float64
}

func (Drafted) Stage() Stage { return StageDrafted }

// Persisted is terminal.
type Persisted struct {
	Drafted
	DraftID string
}

func (Persisted) Stage() Stage { return StagePersisted }
func (Persisted) Done() bool   { return true }
