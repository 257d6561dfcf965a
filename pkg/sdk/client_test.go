package sdk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datenlord/sdk-go/pkg/storage"
)

// newMemoryClient creates a client backed by the in-memory store and
// registers cleanup.
func newMemoryClient(t *testing.T) *Client {
	t.Helper()

	client, err := New(context.Background(), "storage:\n  type: memory\n")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestNew_InvalidConfig(t *testing.T) {
	client, err := New(context.Background(), "storage:\n  type: carrier-pigeon\n")
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

func TestNew_LocalfsBackend(t *testing.T) {
	root := t.TempDir()
	client, err := New(context.Background(), "storage:\n  type: localfs\n  localfs:\n    root: "+root+"\n")
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.MkDir(ctx, "/data"))

	// The directory is visible through the OS as well
	fi, err := os.Stat(filepath.Join(root, "data"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestClient_Close_Idempotent(t *testing.T) {
	client := newMemoryClient(t)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestClient_OperationsAfterClose(t *testing.T) {
	client := newMemoryClient(t)
	require.NoError(t, client.Close())

	ctx := context.Background()

	_, err := client.Exists(ctx, "/x")
	assert.Equal(t, storage.ErrInvalidHandle, storage.CodeOf(err))

	err = client.MkDir(ctx, "/x")
	assert.Equal(t, storage.ErrInvalidHandle, storage.CodeOf(err))

	_, err = client.ReadFile(ctx, "/x")
	assert.Equal(t, storage.ErrInvalidHandle, storage.CodeOf(err))
}

func TestClient_DirectoryLifecycle(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	exists, err := client.Exists(ctx, "/projects")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.MkDir(ctx, "/projects"))
	require.NoError(t, client.MkDir(ctx, "/projects/alpha"))

	exists, err = client.Exists(ctx, "/projects/alpha")
	require.NoError(t, err)
	assert.True(t, exists)

	// Non-recursive delete of a populated directory fails and changes nothing
	err = client.DeleteDir(ctx, "/projects", false)
	assert.Equal(t, storage.ErrNotEmpty, storage.CodeOf(err))

	require.NoError(t, client.DeleteDir(ctx, "/projects", true))

	exists, err = client.Exists(ctx, "/projects")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_Exists_EmptyPath(t *testing.T) {
	client := newMemoryClient(t)

	_, err := client.Exists(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, storage.ErrInvalidArgument, storage.CodeOf(err))
}

func TestClient_FileLifecycle(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateFile(ctx, "/notes.txt"))

	err := client.CreateFile(ctx, "/notes.txt")
	assert.Equal(t, storage.ErrAlreadyExists, storage.CodeOf(err))

	content := []byte("hello datenlord")
	require.NoError(t, client.WriteFile(ctx, "/notes.txt", content))

	got, err := client.ReadFile(ctx, "/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	stat, err := client.Stat(ctx, "/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(len(content)), stat.Size)
	assert.Equal(t, storage.BlockCount(stat.Size), stat.Blocks)
}

func TestClient_Rename(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	require.NoError(t, client.CreateFile(ctx, "/old.txt"))
	require.NoError(t, client.WriteFile(ctx, "/old.txt", []byte("payload")))

	require.NoError(t, client.RenamePath(ctx, "/old.txt", "/new.txt"))

	_, err := client.ReadFile(ctx, "/old.txt")
	assert.Equal(t, storage.ErrNotFound, storage.CodeOf(err))

	got, err := client.ReadFile(ctx, "/new.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestClient_CopyFromLocalFile(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	localPath := filepath.Join(t.TempDir(), "upload.bin")
	content := []byte{0x00, 0x01, 0xFF, 0x00, 0x42}
	require.NoError(t, os.WriteFile(localPath, content, 0o644))

	require.NoError(t, client.CopyFromLocalFile(ctx, false, localPath, "/upload.bin"))

	got, err := client.ReadFile(ctx, "/upload.bin")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	t.Run("no overwrite", func(t *testing.T) {
		err := client.CopyFromLocalFile(ctx, false, localPath, "/upload.bin")
		assert.Equal(t, storage.ErrAlreadyExists, storage.CodeOf(err))
	})

	t.Run("overwrite", func(t *testing.T) {
		replacement := []byte("v2")
		require.NoError(t, os.WriteFile(localPath, replacement, 0o644))
		require.NoError(t, client.CopyFromLocalFile(ctx, true, localPath, "/upload.bin"))

		got, err := client.ReadFile(ctx, "/upload.bin")
		require.NoError(t, err)
		assert.Equal(t, replacement, got)
	})

	t.Run("missing local file", func(t *testing.T) {
		err := client.CopyFromLocalFile(ctx, true, "/nonexistent/file", "/x.bin")
		assert.Equal(t, storage.ErrNotFound, storage.CodeOf(err))
	})
}

func TestClient_CopyToLocalFile(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	content := []byte("download me")
	require.NoError(t, client.WriteFile(ctx, "/download.txt", content))

	// Local parent directories are created on demand
	localPath := filepath.Join(t.TempDir(), "nested", "dir", "download.txt")
	require.NoError(t, client.CopyToLocalFile(ctx, "/download.txt", localPath))

	got, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	t.Run("missing remote file", func(t *testing.T) {
		err := client.CopyToLocalFile(ctx, "/nonexistent.txt", filepath.Join(t.TempDir(), "out"))
		assert.Equal(t, storage.ErrNotFound, storage.CodeOf(err))
	})
}

func TestClient_ConcurrentOperations(t *testing.T) {
	client := newMemoryClient(t)
	ctx := context.Background()

	require.NoError(t, client.MkDir(ctx, "/work"))

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(n int) {
			path := string(rune('a'+n))
			if err := client.WriteFile(ctx, "/work/"+path, []byte(path)); err != nil {
				done <- err
				return
			}
			_, err := client.ReadFile(ctx, "/work/"+path)
			done <- err
		}(i)
	}

	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}
