package repository

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"inbox-agent/internal/sync/domain"
	"inbox-agent/pkg/blobstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "sync_cursor.json"

func TestLoad_Absent(t *testing.T) {
	repo := NewBlobCursorRepository(blobstore.NewMemoryStore(), testKey)

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCursorNotFound)
}

func TestLoad_CorruptBlob(t *testing.T) {
	store := blobstore.NewMemoryStore()
	_, err := store.Write(context.Background(), testKey, []byte("{not json"), 0)
	require.NoError(t, err)

	_, err = NewBlobCursorRepository(store, testKey).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCursorNotFound)
}

func TestInitialize_CreatesOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobCursorRepository(blobstore.NewMemoryStore(), testKey)

	cur, created, err := repo.Initialize(ctx, 100)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(100), cur.LastHistoryID)

	cur, created, err = repo.Initialize(ctx, 50)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint64(100), cur.LastHistoryID)
}

func TestAdvance_Monotonic(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobCursorRepository(blobstore.NewMemoryStore(), testKey)
	_, _, err := repo.Initialize(ctx, 100)
	require.NoError(t, err)

	cur, advanced, err := repo.Advance(ctx, 105)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, uint64(105), cur.LastHistoryID)

	cur, advanced, err = repo.Advance(ctx, 103)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, uint64(105), cur.LastHistoryID)

	_, advanced, err = repo.Advance(ctx, 105)
	require.NoError(t, err)
	assert.False(t, advanced)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(105), loaded.LastHistoryID)
}

func TestAdvance_CreatesWhenAbsent(t *testing.T) {
	repo := NewBlobCursorRepository(blobstore.NewMemoryStore(), testKey)

	cur, advanced, err := repo.Advance(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, uint64(7), cur.LastHistoryID)
}

func TestRecordWatch(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	repo := NewBlobCursorRepository(store, testKey)
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("absent cursor takes the watch history id", func(t *testing.T) {
		cur, err := repo.RecordWatch(ctx, domain.WatchLease{HistoryID: 500, Expiration: exp})
		require.NoError(t, err)
		assert.Equal(t, uint64(500), cur.LastHistoryID)
		assert.Equal(t, exp.UnixMilli(), cur.WatchExpirationMs)
	})

	t.Run("existing cursor is never moved by the watch", func(t *testing.T) {
		_, _, err := repo.Advance(ctx, 900)
		require.NoError(t, err)

		later := exp.Add(7 * 24 * time.Hour)
		cur, err := repo.RecordWatch(ctx, domain.WatchLease{HistoryID: 400, Expiration: later})
		require.NoError(t, err)
		assert.Equal(t, uint64(900), cur.LastHistoryID)
		assert.True(t, later.Equal(cur.WatchExpiration))

		cur, err = repo.RecordWatch(ctx, domain.WatchLease{HistoryID: 5000, Expiration: later})
		require.NoError(t, err)
		assert.Equal(t, uint64(900), cur.LastHistoryID)
	})

	t.Run("persisted layout", func(t *testing.T) {
		obj, err := store.Read(ctx, testKey)
		require.NoError(t, err)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(obj.Data, &raw))
		assert.EqualValues(t, 900, raw["last_history_id"])
		assert.Contains(t, raw, "watch_expiration_ms")
		assert.Equal(t, "2030-01-09T03:04:05Z", raw["watch_expiration_iso"])
	})
}

// gatedStore holds the first two reads until both have happened, so two
// writers are guaranteed to start from the same generation.
type gatedStore struct {
	*blobstore.MemoryStore

	mu    sync.Mutex
	reads int
	gate  chan struct{}
}

func (g *gatedStore) Read(ctx context.Context, key string) (*blobstore.Object, error) {
	obj, err := g.MemoryStore.Read(ctx, key)

	g.mu.Lock()
	g.reads++
	if g.reads == 2 {
		close(g.gate)
	}
	g.mu.Unlock()

	<-g.gate
	return obj, err
}

func TestAdvance_ConcurrentRoundsConvergeOnMax(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	seed := NewBlobCursorRepository(mem, testKey)
	_, _, err := seed.Initialize(ctx, 100)
	require.NoError(t, err)

	store := &gatedStore{MemoryStore: mem, gate: make(chan struct{})}
	repo := NewBlobCursorRepository(store, testKey)

	var wg sync.WaitGroup
	for _, target := range []uint64{105, 110} {
		wg.Add(1)
		go func(target uint64) {
			defer wg.Done()
			_, _, err := repo.Advance(ctx, target)
			assert.NoError(t, err)
		}(target)
	}
	wg.Wait()

	cur, err := seed.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(110), cur.LastHistoryID)
}

func TestAdvance_ManyWritersEndAtMax(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobCursorRepository(blobstore.NewMemoryStore(), testKey)

	targets := make([]uint64, 40)
	var highest uint64
	for i := range targets {
		targets[i] = uint64(rand.Intn(10_000) + 1)
		if targets[i] > highest {
			highest = targets[i]
		}
	}

	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target uint64) {
			defer wg.Done()
			_, _, err := repo.Advance(ctx, target)
			assert.NoError(t, err)
		}(target)
	}
	wg.Wait()

	cur, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, highest, cur.LastHistoryID)
}
