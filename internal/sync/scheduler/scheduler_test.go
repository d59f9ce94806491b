package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inbox-agent/internal/sync/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeLeases struct {
	mu       sync.Mutex
	needs    bool
	err      error
	renewals int
}

func (f *fakeLeases) NeedsRenewal(context.Context, time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.needs, f.err
}

func (f *fakeLeases) Renew(context.Context) (*domain.WatchLease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renewals++
	f.needs = false
	return &domain.WatchLease{HistoryID: 1, Expiration: time.Now().Add(7 * 24 * time.Hour)}, nil
}

func (f *fakeLeases) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renewals
}

type fakeRetrier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRetrier) RetryFailed(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 0, nil
}

func (f *fakeRetrier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTick_RenewsOnlyWhenNeeded(t *testing.T) {
	leases := &fakeLeases{needs: true}
	s := NewMaintenanceScheduler(leases, nil, time.Minute, 0, zerolog.Nop())

	s.tick(context.Background())
	s.tick(context.Background())
	assert.Equal(t, 1, leases.renewals)

	leases.err = errors.New("cursor store down")
	leases.needs = true
	s.tick(context.Background())
	assert.Equal(t, 1, leases.renewals, "no renewal when the check fails")
}

func TestTick_RetriesOnRetryInterval(t *testing.T) {
	retrier := &fakeRetrier{}
	s := NewMaintenanceScheduler(nil, retrier, time.Minute, 5*time.Minute, zerolog.Nop())
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.tick(context.Background())
	assert.Equal(t, 1, retrier.calls)

	clock = clock.Add(2 * time.Minute)
	s.tick(context.Background())
	assert.Equal(t, 1, retrier.calls)

	clock = clock.Add(3 * time.Minute)
	s.tick(context.Background())
	assert.Equal(t, 2, retrier.calls)
}

func TestStartStop(t *testing.T) {
	leases := &fakeLeases{needs: true}
	retrier := &fakeRetrier{}
	s := NewMaintenanceScheduler(leases, retrier, time.Hour, time.Hour, zerolog.Nop())

	s.Start()
	assert.Eventually(t, func() bool { return leases.count() == 1 && retrier.count() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()
}
