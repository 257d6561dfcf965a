package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datenlord/sdk-go/pkg/sdk"
	"github.com/datenlord/sdk-go/pkg/storage"
)

func newTestClient(t *testing.T) *sdk.Client {
	t.Helper()

	client, err := sdk.New(context.Background(), "storage:\n  type: memory\n")
	require.NoError(t, err)
	return client
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	client := newTestClient(t)

	handle := reg.Register(client)
	assert.NotZero(t, handle)
	assert.Equal(t, 1, reg.Count())

	got, err := reg.Get(handle)
	require.NoError(t, err)
	assert.Same(t, client, got)
}

func TestRegistry_HandlesAreUnique(t *testing.T) {
	reg := NewRegistry()

	h1 := reg.Register(newTestClient(t))
	h2 := reg.Register(newTestClient(t))
	assert.NotEqual(t, h1, h2)

	require.NoError(t, reg.Release(h1))

	// Released handles are never reissued
	h3 := reg.Register(newTestClient(t))
	assert.NotEqual(t, h1, h3)
	assert.NotEqual(t, h2, h3)

	require.NoError(t, reg.Release(h2))
	require.NoError(t, reg.Release(h3))
}

func TestRegistry_Get_InvalidHandle(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get(0)
	assert.Equal(t, storage.ErrInvalidHandle, storage.CodeOf(err))

	_, err = reg.Get(42)
	assert.Equal(t, storage.ErrInvalidHandle, storage.CodeOf(err))
}

func TestRegistry_Release(t *testing.T) {
	reg := NewRegistry()
	client := newTestClient(t)
	handle := reg.Register(client)

	require.NoError(t, reg.Release(handle))
	assert.Equal(t, 0, reg.Count())

	// The client was closed by Release
	_, err := client.Exists(context.Background(), "/")
	assert.Equal(t, storage.ErrInvalidHandle, storage.CodeOf(err))

	// Double release reports an invalid handle
	err = reg.Release(handle)
	assert.Equal(t, storage.ErrInvalidHandle, storage.CodeOf(err))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	handles := make([]uint64, 16)
	for i := range handles {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			handles[n] = reg.Register(newTestClient(t))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, reg.Count())

	seen := make(map[uint64]bool)
	for _, h := range handles {
		assert.False(t, seen[h], "handle %d issued twice", h)
		seen[h] = true
		require.NoError(t, reg.Release(h))
	}
	assert.Equal(t, 0, reg.Count())
}
