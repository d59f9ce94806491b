package domain

// Message is an inbound mailbox message reduced to what the pipeline needs.
type Message struct {
	ID              string
	ThreadID        string
	Subject         string
	Sender          string
	Body            string
	RFC822MessageID string
	LabelIDs        []string
}

// Reply is a draft reply to be stored in the mailbox.
type Reply struct {
	ThreadID  string
	To        string
	Subject   string
	InReplyTo string
	Body      string
}
