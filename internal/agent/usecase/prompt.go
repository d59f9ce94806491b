package usecase

import (
	"fmt"

	"inbox-agent/internal/agent/domain"
)

// BuildPrompt renders the drafting prompt for a message and its retrieved context.
func BuildPrompt(r domain.Retrieved) string {
	return fmt.Sprintf(`You draft concise, professional replies to customer emails.
If the context below answers the question, use it and include 1-2 relevant links from it.
If it does not, ask for the details needed to help (order number, model, serial).

Subject: %s
From: %s
Email body:
%s

Retrieved context (may be empty):
%s

Return ONLY the draft body text (no JSON, no preface).`, r.Subject, r.Sender, r.Body, r.Context)
}
