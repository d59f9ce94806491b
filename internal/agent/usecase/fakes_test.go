package usecase

import (
	"context"
	"errors"
	"sync"

	"inbox-agent/internal/agent/domain"
)

var errBoom = errors.New("boom")

// fakeMailbox is an in-memory mailbox. Errors are injected per method and
// consumed one call at a time.
type fakeMailbox struct {
	mu       sync.Mutex
	messages map[string]*domain.Message
	labels   map[string]map[string]bool

	getErrs   []error
	fetchErrs map[string]error
	draftErrs []error
	markErrs  []error

	gets    map[string]int
	drafts  []*domain.Reply
	marks   map[string]int
	nextDID int
}

func newFakeMailbox(msgs ...*domain.Message) *fakeMailbox {
	m := &fakeMailbox{
		messages: make(map[string]*domain.Message),
		labels:   make(map[string]map[string]bool),
		gets:     make(map[string]int),
		marks:    make(map[string]int),
	}
	for _, msg := range msgs {
		m.messages[msg.ID] = msg
		m.labels[msg.ID] = map[string]bool{"UNREAD": true, "INBOX": true}
	}
	return m
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (m *fakeMailbox) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets[id]++
	if err := pop(&m.getErrs); err != nil {
		return nil, err
	}
	if err := m.fetchErrs[id]; err != nil {
		return nil, &domain.ProviderFetchError{MessageID: id, Err: err}
	}
	msg, ok := m.messages[id]
	if !ok {
		return nil, &domain.ProviderFetchError{MessageID: id, Permanent: true, Err: errors.New("404 not found")}
	}
	copied := *msg
	return &copied, nil
}

func (m *fakeMailbox) HasLabel(_ context.Context, id, label string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.labels[id][label], nil
}

func (m *fakeMailbox) CreateDraft(_ context.Context, id string, reply *domain.Reply) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := pop(&m.draftErrs); err != nil {
		return "", &domain.ProviderWriteError{MessageID: id, Op: "create draft", Err: err}
	}
	m.drafts = append(m.drafts, reply)
	m.nextDID++
	return "r-" + string(rune('0'+m.nextDID)), nil
}

func (m *fakeMailbox) MarkDrafted(_ context.Context, id, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[id]++
	if err := pop(&m.markErrs); err != nil {
		return &domain.ProviderWriteError{MessageID: id, Op: "modify labels", Err: err}
	}
	if m.labels[id] == nil {
		m.labels[id] = make(map[string]bool)
	}
	m.labels[id][label] = true
	delete(m.labels[id], "UNREAD")
	return nil
}

func (m *fakeMailbox) draftCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drafts)
}

func (m *fakeMailbox) getCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets[id]
}

func (m *fakeMailbox) hasLabel(id, label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.labels[id][label]
}

type fakeRetriever struct {
	chunks []string
	err    error
	query  string
}

func (f *fakeRetriever) TopK(_ context.Context, query string, k int) ([]string, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	if len(f.chunks) > k {
		return f.chunks[:k], nil
	}
	return f.chunks, nil
}

// fakeGenerator replies with text after consuming any queued errors.
type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	errs    []error
	prompts []string
}

func (g *fakeGenerator) GenerateReply(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if err := pop(&g.errs); err != nil {
		return "", err
	}
	return g.text, nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// blockingGenerator parks until release is closed or the context ends.
type blockingGenerator struct {
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGenerator) GenerateReply(ctx context.Context, _ string) (string, error) {
	close(g.entered)
	select {
	case <-g.release:
		return "Thanks, we are on it.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type recordingNotifier struct {
	mu        sync.Mutex
	persisted []domain.Persisted
}

func (n *recordingNotifier) NotifyDrafted(_ context.Context, p domain.Persisted) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.persisted = append(n.persisted, p)
	return nil
}
