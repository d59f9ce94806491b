package domain

import "time"

// Checkpoint statuses.
const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
	StatusAbandoned  = "abandoned"
)

// MessageCheckpoint is the durable record of a message's progress through the pipeline.
// It is written after every stage and doubles as the dead-letter ledger for failed messages.
type MessageCheckpoint struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	MessageID       string    `json:"message_id" gorm:"uniqueIndex;not null"`
	Stage           Stage     `json:"stage" gorm:"size:16;not null"`
	Subject         string    `json:"subject"`
	Sender          string    `json:"sender"`
	Body            string    `json:"-" gorm:"type:text"`
	ThreadID        string    `json:"thread_id"`
	RFC822MessageID string    `json:"rfc822_message_id"`
	Context         string    `json:"-" gorm:"type:text"`
	DraftText       string    `json:"draft_text,omitempty" gorm:"type:text"`
	Confidence      float64   `json:"confidence"`
	DraftID         string    `json:"draft_id,omitempty"`
	Done            bool      `json:"done" gorm:"index"`
	Status          string    `json:"status" gorm:"size:16;index;not null"`
	Attempts        int       `json:"attempts"`
	LastError       string    `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (MessageCheckpoint) TableName() string { return "message_checkpoints" }

// Apply copies the fields of state into the checkpoint and sets its stage.
func (c *MessageCheckpoint) Apply(state MessageState) {
	c.MessageID = state.MessageID()
	c.Stage = state.Stage()
	c.Done = state.Done()

	switch s := state.(type) {
	case Persisted:
		c.applyDrafted(s.Drafted)
		c.DraftID = s.DraftID
	case Drafted:
		c.applyDrafted(s)
	case Retrieved:
		c.applyRetrieved(s)
	case Parsed:
		c.applyParsed(s)
	}
}

func (c *MessageCheckpoint) applyParsed(p Parsed) {
	c.Subject = p.Subject
	c.Sender = p.Sender
	c.Body = p.Body
	c.ThreadID = p.ThreadID
	c.RFC822MessageID = p.RFC822MessageID
}

func (c *MessageCheckpoint) applyRetrieved(r Retrieved) {
	c.applyParsed(r.Parsed)
	c.Context = r.Context
}

func (c *MessageCheckpoint) applyDrafted(d Drafted) {
	c.applyRetrieved(d.Retrieved)
	c.DraftText = d.DraftText
	c.Confidence = d.Confidence
}

// State rebuilds the stage result recorded by the checkpoint.
func (c *MessageCheckpoint) State() MessageState {
	pending := Pending{ID: c.MessageID}
	parsed := Parsed{
		Pending:         pending,
		Subject:         c.Subject,
		Sender:          c.Sender,
		Body:            c.Body,
		ThreadID:        c.ThreadID,
		RFC822MessageID: c.RFC822MessageID,
	}
	retrieved := Retrieved{Parsed: parsed, Context: c.Context}
	drafted := Drafted{Retrieved: retrieved, DraftText: c.DraftText, Confidence: c.Confidence}

	switch c.Stage {
	case StagePersisted:
		return Persisted{Drafted: drafted, DraftID: c.DraftID}
	case StageDrafted:
		return drafted
	case StageRetrieved:
		return retrieved
	case StageParsed:
		return parsed
	default:
		return pending
	}
}
