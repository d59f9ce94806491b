package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateChain(t *testing.T) {
	parsed := Parsed{Pending: Pending{ID: "18c2"}, Subject: "  Hello", Body: "body  "}
	retrieved := Retrieved{Parsed: parsed, Context: "ctx"}
	drafted := Drafted{Retrieved: retrieved, DraftText: "hi", Confidence: 0.7}
	persisted := Persisted{Drafted: drafted, DraftID: "r-1"}

	for _, s := range []MessageState{Pending{ID: "18c2"}, parsed, retrieved, drafted, persisted} {
		assert.Equal(t, "18c2", s.MessageID())
	}
	assert.Equal(t, StageDrafted, drafted.Stage())
	assert.False(t, drafted.Done())
	assert.True(t, persisted.Done())
	assert.Equal(t, "Hello\nbody", parsed.Query())
}

func TestCheckpoint_RoundTripsState(t *testing.T) {
	drafted := Drafted{
		Retrieved: Retrieved{
			Parsed: Parsed{
				Pending:         Pending{ID: "m1"},
				Subject:         "Pricing",
				Sender:          "a@example.com",
				Body:            "How much?",
				ThreadID:        "t1",
				RFC822MessageID: "<abc@mail>",
			},
			Context: "Plans start at $10",
		},
		DraftText:  "Hi, plans start at $10.",
		Confidence: 0.7,
	}

	var cp MessageCheckpoint
	cp.Apply(drafted)
	assert.Equal(t, StageDrafted, cp.Stage)
	assert.False(t, cp.Done)

	restored, ok := cp.State().(Drafted)
	assert.True(t, ok)
	assert.Equal(t, drafted.DraftText, restored.DraftText)
	assert.Equal(t, drafted.RFC822MessageID, restored.RFC822MessageID)
	assert.Equal(t, drafted.Context, restored.Context)

	cp.Apply(Persisted{Drafted: drafted, DraftID: "r-9"})
	assert.True(t, cp.Done)
	assert.Equal(t, "r-9", cp.DraftID)
	assert.True(t, cp.State().Done())

	empty := MessageCheckpoint{MessageID: "m2"}
	assert.Equal(t, StagePending, empty.State().Stage())
}

func TestIsPermanent(t *testing.T) {
	perm := fmt.Errorf("wrap: %w", &ProviderFetchError{MessageID: "x", Permanent: true, Err: errors.New("404")})
	assert.True(t, IsPermanent(perm))
	assert.False(t, IsPermanent(&ProviderFetchError{MessageID: "x", Err: errors.New("500")}))
	assert.False(t, IsPermanent(&GenerationError{MessageID: "x", Err: ErrEmptyGeneration}))
	assert.ErrorIs(t, &GenerationError{MessageID: "x", Err: ErrEmptyGeneration}, ErrEmptyGeneration)
}
