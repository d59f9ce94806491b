package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ConditionalWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Read(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Write(ctx, "k", []byte("v0"), 3)
	assert.ErrorIs(t, err, ErrPreconditionFailed, "non-zero generation on a missing key")

	gen, err := s.Write(ctx, "k", []byte("v1"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	_, err = s.Write(ctx, "k", []byte("again"), 0)
	assert.ErrorIs(t, err, ErrPreconditionFailed, "create-if-absent on an existing key")

	gen, err = s.Write(ctx, "k", []byte("v2"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)

	_, err = s.Write(ctx, "k", []byte("stale"), 1)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	obj, err := s.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(obj.Data))
	assert.Equal(t, int64(2), obj.Generation)
}

func TestMemoryStore_ReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Write(ctx, "k", []byte("abc"), 0)
	require.NoError(t, err)

	obj, err := s.Read(ctx, "k")
	require.NoError(t, err)
	obj.Data[0] = 'z'

	again, err := s.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Data))
}
