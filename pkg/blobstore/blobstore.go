// Package blobstore stores small named blobs with generation-checked writes.
//
// Every successful write bumps the object's generation. Writers pass the generation they
// read; a mismatch fails with ErrPreconditionFailed so read-modify-write cycles can be
// retried instead of silently overwriting a concurrent update.
package blobstore

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound           = errors.New("blob not found")
	ErrPreconditionFailed = errors.New("blob generation mismatch")
)

// Object is a blob together with the generation it was read at.
type Object struct {
	Data       []byte
	Generation int64
}

// Store is a durable key-value blob store with conditional writes.
type Store interface {
	// Read returns ErrNotFound when the key has never been written.
	Read(ctx context.Context, key string) (*Object, error)
	// Write stores data only if the current generation equals ifGeneration.
	// ifGeneration == 0 means the key must not exist yet. Returns the new generation.
	Write(ctx context.Context, key string, data []byte, ifGeneration int64) (int64, error)
}

// MemoryStore is an in-process Store, used for local runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (m *MemoryStore) Read(_ context.Context, key string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	data := make([]byte, len(obj.Data))
	copy(data, obj.Data)
	return &Object{Data: data, Generation: obj.Generation}, nil
}

func (m *MemoryStore) Write(_ context.Context, key string, data []byte, ifGeneration int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.objects[key]
	switch {
	case !ok && ifGeneration != 0:
		return 0, ErrPreconditionFailed
	case ok && current.Generation != ifGeneration:
		return 0, ErrPreconditionFailed
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	next := current.Generation + 1
	m.objects[key] = Object{Data: stored, Generation: next}
	return next, nil
}
