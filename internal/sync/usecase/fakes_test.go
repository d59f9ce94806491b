package usecase

import (
	"context"
	"errors"
	"sync"

	"inbox-agent/internal/sync/domain"
)

// fakeLister serves pages keyed by page token ("" is the first page).
type fakeLister struct {
	mu     sync.Mutex
	pages  map[string]*domain.ChangePage
	err    error
	calls  int
	starts []uint64
}

func (f *fakeLister) ListHistory(_ context.Context, start uint64, pageToken string) (*domain.ChangePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.starts = append(f.starts, start)
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[pageToken]
	if !ok {
		return &domain.ChangePage{}, nil
	}
	return page, nil
}

// stubEnumerator returns a fixed result.
type stubEnumerator struct {
	ids []string
	hwm uint64
	err error

	mu      sync.Mutex
	cursors []uint64
}

func (s *stubEnumerator) EnumerateSince(_ context.Context, cursor uint64) ([]string, uint64, error) {
	s.mu.Lock()
	s.cursors = append(s.cursors, cursor)
	s.mu.Unlock()
	if s.err != nil {
		return nil, 0, s.err
	}
	hwm := s.hwm
	if hwm == 0 {
		hwm = cursor
	}
	return s.ids, hwm, nil
}

// recordingProcessor fails ids listed in failures and skips ids listed in done.
type recordingProcessor struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]error
	done     map[string]bool
}

func (p *recordingProcessor) Process(_ context.Context, id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, id)
	if err, ok := p.failures[id]; ok {
		return false, err
	}
	if p.done[id] {
		return true, nil
	}
	if p.done == nil {
		p.done = make(map[string]bool)
	}
	p.done[id] = true
	return false, nil
}

func (p *recordingProcessor) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type fakeWatchProvider struct {
	lease    *domain.WatchLease
	watchErr error
	stopErr  error
	stops    int
	topics   []string
}

func (f *fakeWatchProvider) Watch(_ context.Context, topic string) (*domain.WatchLease, error) {
	f.topics = append(f.topics, topic)
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	return f.lease, nil
}

func (f *fakeWatchProvider) Stop(context.Context) error {
	f.stops++
	return f.stopErr
}

var errBoom = errors.New("boom")
