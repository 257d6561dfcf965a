package badgerfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datenlord/sdk-go/pkg/storage"
	storagetesting "github.com/datenlord/sdk-go/pkg/storage/testing"
)

// TestBadgerBackend_Conformance runs the shared backend conformance suite
// against an in-memory BadgerDB instance.
func TestBadgerBackend_Conformance(t *testing.T) {
	suite := &storagetesting.BackendTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			backend, err := New(Config{InMemory: true})
			require.NoError(t, err)
			return backend
		},
	}
	suite.Run(t)
}

func TestBadgerBackend_RequiresPath(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

// TestBadgerBackend_Persistence verifies that entries survive a close/reopen
// cycle on the same database directory.
func TestBadgerBackend_Persistence(t *testing.T) {
	ctx := context.Background()
	dbPath := t.TempDir()

	backend, err := New(Config{Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, backend.Init(ctx))

	require.NoError(t, backend.MkDir(ctx, "/persistent"))
	require.NoError(t, backend.WriteFile(ctx, "/persistent/data.bin", []byte{0x01, 0x00, 0x02}))
	require.NoError(t, backend.Close())

	reopened, err := New(Config{Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, reopened.Init(ctx))
	defer func() { require.NoError(t, reopened.Close()) }()

	assert.True(t, reopened.Exists(ctx, "/persistent"))

	data, err := reopened.ReadFile(ctx, "/persistent/data.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x02}, data)

	stat, err := reopened.Stat(ctx, "/persistent/data.bin")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stat.Size)
}

// TestFileRecord_RoundTrip covers the XDR record encoding used for metadata
// persistence.
func TestFileRecord_RoundTrip(t *testing.T) {
	original := &fileRecord{
		IsDir: true,
		Ino:   42,
		Size:  4096,
		Perm:  0755,
		UID:   1000,
		GID:   1000,
	}

	raw, err := encodeRecord(original)
	require.NoError(t, err)

	decoded, err := decodeRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeRecord_Corrupt(t *testing.T) {
	_, err := decodeRecord([]byte{0x01})
	require.Error(t, err)
	assert.Equal(t, storage.ErrIOError, storage.CodeOf(err))
}
