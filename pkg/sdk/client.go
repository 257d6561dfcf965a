package sdk

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/datenlord/sdk-go/internal/logger"
	"github.com/datenlord/sdk-go/pkg/config"
	"github.com/datenlord/sdk-go/pkg/storage"
)

// ============================================================================
// Client
// ============================================================================

// Client is a handle to an initialized storage session.
//
// A Client is created with New and released with Close. Between those two
// calls it may be used from any number of goroutines concurrently; the
// underlying backends are thread-safe and the Client itself holds no mutable
// per-operation state.
//
// After Close every operation fails with ErrInvalidHandle. Close itself is
// idempotent.
type Client struct {
	backend storage.Backend
	timeout time.Duration
	closed  atomic.Bool
}

// New creates and initializes a Client from an opaque configuration string.
//
// The string is inline YAML, "@/path/to/file.yaml", or a bare path naming a
// YAML file; the empty string selects an all-defaults configuration (localfs
// under /tmp/datenlord-sdk). See package config for the full schema.
//
// Initialization is all-or-nothing: on any failure no resources are retained
// and the returned error carries ErrConfigError (bad configuration) or
// ErrConnectionError (backend unreachable).
//
// Parameters:
//   - ctx: Context bounding session establishment
//   - configStr: Opaque configuration string
//
// Returns:
//   - *Client: Ready-to-use client
//   - error: *storage.StoreError on failure
func New(ctx context.Context, configStr string) (*Client, error) {
	cfg, err := config.Load(configStr)
	if err != nil {
		return nil, err
	}

	logger.SetLevel(cfg.Logging.Level)

	if dump, err := config.Dump(cfg); err == nil {
		logger.Debug("effective configuration:\n%s", dump)
	}

	backend, err := config.CreateBackend(ctx, &cfg.Storage)
	if err != nil {
		return nil, err
	}

	if err := backend.Init(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}

	logger.Info("client initialized: %s", cfg.Storage.String())

	return &Client{
		backend: backend,
		timeout: cfg.Client.OperationTimeout,
	}, nil
}

// Close releases the client's backend session.
//
// The first call closes the backend and returns its error; subsequent calls
// are no-ops returning nil. Operations issued after Close fail with
// ErrInvalidHandle.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	logger.Info("client closed")
	return c.backend.Close()
}

// opCtx applies the configured operation timeout, if any.
func (c *Client) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// guard rejects operations on a closed client.
func (c *Client) guard() error {
	if c.closed.Load() {
		return storage.Errorf(storage.ErrInvalidHandle, "client is closed")
	}
	return nil
}

// ============================================================================
// Directory operations
// ============================================================================

// Exists reports whether a file or directory exists at path.
//
// The boolean is only meaningful when the error is nil. Backend outages are
// indistinguishable from absence by design: the backend's existence probe has
// no error channel.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	if err := c.guard(); err != nil {
		return false, err
	}
	if _, err := storage.CleanPath(path); err != nil {
		return false, err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	return c.backend.Exists(ctx, path), nil
}

// MkDir creates a directory at path. The parent directory must already
// exist; missing intermediate directories are not created.
func (c *Client) MkDir(ctx context.Context, path string) error {
	if err := c.guard(); err != nil {
		return err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	logger.Debug("mkdir %s", path)
	return c.backend.MkDir(ctx, path)
}

// DeleteDir removes the directory at path.
//
// A non-empty directory is only removed when recursive is true; otherwise the
// call fails with ErrNotEmpty and the directory is left intact.
func (c *Client) DeleteDir(ctx context.Context, path string, recursive bool) error {
	if err := c.guard(); err != nil {
		return err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	logger.Debug("deletedir %s (recursive=%v)", path, recursive)
	return c.backend.RemoveDir(ctx, path, recursive)
}

// RenamePath moves src to dst. Works for both files and directories; fails
// with ErrNotFound when src is missing and ErrAlreadyExists when dst is
// occupied.
func (c *Client) RenamePath(ctx context.Context, src, dst string) error {
	if err := c.guard(); err != nil {
		return err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	logger.Debug("rename %s -> %s", src, dst)
	return c.backend.Rename(ctx, src, dst)
}

// ============================================================================
// File operations
// ============================================================================

// CreateFile creates an empty regular file at path. Fails with
// ErrAlreadyExists if the path is occupied.
func (c *Client) CreateFile(ctx context.Context, path string) error {
	if err := c.guard(); err != nil {
		return err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	logger.Debug("create %s", path)
	return c.backend.CreateFile(ctx, path)
}

// Stat returns the metadata snapshot for path.
func (c *Client) Stat(ctx context.Context, path string) (*storage.FileStat, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	return c.backend.Stat(ctx, path)
}

// WriteFile replaces the content of the file at path, creating the file if
// its parent directory exists. The data slice is borrowed for the duration of
// the call only.
func (c *Client) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := c.guard(); err != nil {
		return err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	logger.Debug("write %s (%d bytes)", path, len(data))
	return c.backend.WriteFile(ctx, path, data)
}

// ReadFile returns the full content of the file at path. The returned slice
// is freshly allocated and owned by the caller.
func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	return c.backend.ReadFile(ctx, path)
}

// ============================================================================
// Local copy helpers
// ============================================================================

// CopyFromLocalFile uploads the local file at localPath to remotePath.
//
// When overwrite is false and remotePath already exists the call fails with
// ErrAlreadyExists and the remote entry is untouched. The remote parent
// directory must exist.
func (c *Client) CopyFromLocalFile(ctx context.Context, overwrite bool, localPath, remotePath string) error {
	if err := c.guard(); err != nil {
		return err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	if !overwrite && c.backend.Exists(ctx, remotePath) {
		return storage.Errorf(storage.ErrAlreadyExists, "remote path already exists: %s", remotePath)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return mapLocalError(err, localPath)
	}

	logger.Debug("copy local:%s -> %s (%d bytes)", localPath, remotePath, len(data))
	return c.backend.WriteFile(ctx, remotePath, data)
}

// CopyToLocalFile downloads the file at remotePath into localPath, creating
// local parent directories as needed and replacing any existing local file.
func (c *Client) CopyToLocalFile(ctx context.Context, remotePath, localPath string) error {
	if err := c.guard(); err != nil {
		return err
	}

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	data, err := c.backend.ReadFile(ctx, remotePath)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return mapLocalError(err, dir)
		}
	}

	logger.Debug("copy %s -> local:%s (%d bytes)", remotePath, localPath, len(data))
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return mapLocalError(err, localPath)
	}
	return nil
}

// mapLocalError converts a local-filesystem error into the shared taxonomy.
func mapLocalError(err error, path string) error {
	switch {
	case os.IsNotExist(err):
		return storage.Errorf(storage.ErrNotFound, "local path not found: %s", path)
	case os.IsPermission(err):
		return storage.Errorf(storage.ErrPermissionDenied, "local path permission denied: %s", path)
	default:
		return storage.Errorf(storage.ErrIOError, "local I/O error on %s: %v", path, err)
	}
}
