package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datenlord/sdk-go/pkg/storage"
	storagetesting "github.com/datenlord/sdk-go/pkg/storage/testing"
)

// TestMemoryBackend_Conformance runs the shared backend conformance suite.
func TestMemoryBackend_Conformance(t *testing.T) {
	suite := &storagetesting.BackendTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			return New(Config{})
		},
	}
	suite.Run(t)
}

func TestMemoryBackend_OwnerFromConfig(t *testing.T) {
	ctx := context.Background()

	backend := New(Config{UID: 1000, GID: 1000})
	require.NoError(t, backend.Init(ctx))
	defer func() { require.NoError(t, backend.Close()) }()

	require.NoError(t, backend.CreateFile(ctx, "/owned.txt"))

	stat, err := backend.Stat(ctx, "/owned.txt")
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), stat.UID)
	assert.Equal(t, uint32(1000), stat.GID)
}

func TestMemoryBackend_InodesAreUnique(t *testing.T) {
	ctx := context.Background()

	backend := New(Config{})
	require.NoError(t, backend.Init(ctx))
	defer func() { require.NoError(t, backend.Close()) }()

	require.NoError(t, backend.CreateFile(ctx, "/a"))
	require.NoError(t, backend.CreateFile(ctx, "/b"))

	statA, err := backend.Stat(ctx, "/a")
	require.NoError(t, err)
	statB, err := backend.Stat(ctx, "/b")
	require.NoError(t, err)

	assert.NotEqual(t, statA.Ino, statB.Ino)
}

// TestMemoryBackend_ConcurrentWriters exercises the RWMutex protection by
// hammering disjoint paths from many goroutines.
func TestMemoryBackend_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()

	backend := New(Config{})
	require.NoError(t, backend.Init(ctx))
	defer func() { require.NoError(t, backend.Close()) }()

	require.NoError(t, backend.MkDir(ctx, "/work"))

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			path := "/work/file-" + string(rune('a'+n))
			if err := backend.WriteFile(ctx, path, []byte{byte(n)}); err != nil {
				t.Errorf("write %s: %v", path, err)
				return
			}
			if _, err := backend.ReadFile(ctx, path); err != nil {
				t.Errorf("read %s: %v", path, err)
			}
		}(i)
	}
	wg.Wait()
}
