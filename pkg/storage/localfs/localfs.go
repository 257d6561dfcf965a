package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"github.com/datenlord/sdk-go/pkg/storage"
)

// LocalBackend implements storage.Backend on a local filesystem subtree.
//
// All SDK paths are resolved under a root directory, so "/data/a.txt" maps to
// "<root>/data/a.txt". The root is created by Init if missing. This is the
// reference backend: it mirrors what the distributed store does, byte for
// byte, against a plain directory, which makes it the backend of choice for
// demos and for the binding test suites.
//
// Thread Safety:
// Operations map 1:1 to OS calls and are as concurrent as the underlying
// filesystem. Concurrent writes to the same path follow OS last-write-wins
// semantics.
type LocalBackend struct {
	root string
}

// Config contains configuration for the local filesystem backend.
type Config struct {
	// Root is the directory all SDK paths are resolved under (required)
	Root string
}

// New creates a local filesystem backend rooted at cfg.Root.
// The root directory is not touched until Init.
func New(cfg Config) (*LocalBackend, error) {
	if cfg.Root == "" {
		return nil, storage.Errorf(storage.ErrConfigError, "localfs backend: root is required")
	}
	return &LocalBackend{root: cfg.Root}, nil
}

// Init creates the root directory if it doesn't exist and verifies it is
// usable. Failures surface as ErrConnectionError so init reports the same
// error kind for an unreachable directory as for an unreachable remote store.
func (b *LocalBackend) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storage.Errorf(storage.ErrConnectionError, "init cancelled: %v", err)
	}
	if err := os.MkdirAll(b.root, 0755); err != nil {
		return storage.Errorf(storage.ErrConnectionError, "failed to create root %s: %v", b.root, err)
	}
	return nil
}

// Close releases the backend. Local directories hold no session state, so
// this only marks the backend unusable by contract.
func (b *LocalBackend) Close() error {
	return nil
}

// Exists reports whether a file or directory exists at path.
func (b *LocalBackend) Exists(ctx context.Context, p string) bool {
	if ctx.Err() != nil {
		return false
	}
	full, err := b.resolve(p)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(full)
	return statErr == nil
}

// MkDir creates a directory at path. The parent must exist.
func (b *LocalBackend) MkDir(ctx context.Context, p string) error {
	full, err := b.checkedResolve(ctx, p)
	if err != nil {
		return err
	}
	if err := os.Mkdir(full, 0755); err != nil {
		return mapOSError(err, p)
	}
	return nil
}

// RemoveDir removes the directory at path. Non-empty directories require
// recursive=true.
func (b *LocalBackend) RemoveDir(ctx context.Context, p string, recursive bool) error {
	full, err := b.checkedResolve(ctx, p)
	if err != nil {
		return err
	}

	fi, err := os.Stat(full)
	if err != nil {
		return mapOSError(err, p)
	}
	if !fi.IsDir() {
		return &storage.StoreError{Code: storage.ErrIOError, Message: "not a directory", Path: p}
	}

	if recursive {
		if err := os.RemoveAll(full); err != nil {
			return mapOSError(err, p)
		}
		return nil
	}
	if err := os.Remove(full); err != nil {
		return mapOSError(err, p)
	}
	return nil
}

// Rename moves src to dst. The destination must not exist; unlike raw
// rename(2), the SDK contract never silently replaces an existing entry.
func (b *LocalBackend) Rename(ctx context.Context, src, dst string) error {
	cleanSrc, err := storage.CleanPath(src)
	if err != nil {
		return err
	}
	cleanDst, err := storage.CleanPath(dst)
	if err != nil {
		return err
	}
	// rename(2) reports EINVAL here; reject up front for a deterministic code.
	if storage.IsDescendant(cleanSrc, cleanDst) {
		return &storage.StoreError{Code: storage.ErrInvalidArgument, Message: "destination is inside the source directory", Path: cleanDst}
	}

	fullSrc, err := b.checkedResolve(ctx, src)
	if err != nil {
		return err
	}
	fullDst, err := b.resolve(dst)
	if err != nil {
		return err
	}

	if _, err := os.Stat(fullSrc); err != nil {
		return mapOSError(err, src)
	}
	if _, err := os.Stat(fullDst); err == nil {
		return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "destination already exists", Path: dst}
	}

	if err := os.Rename(fullSrc, fullDst); err != nil {
		return mapOSError(err, src)
	}
	return nil
}

// CreateFile creates an empty regular file at path.
func (b *LocalBackend) CreateFile(ctx context.Context, p string) error {
	full, err := b.checkedResolve(ctx, p)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return mapOSError(err, p)
	}
	return f.Close()
}

// Stat returns the metadata snapshot for path.
func (b *LocalBackend) Stat(ctx context.Context, p string) (*storage.FileStat, error) {
	full, err := b.checkedResolve(ctx, p)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(full)
	if err != nil {
		return nil, mapOSError(err, p)
	}

	stat := &storage.FileStat{
		Size: uint64(fi.Size()),
		Perm: uint32(fi.Mode().Perm()),
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		stat.Ino = st.Ino
		stat.Blocks = uint64(st.Blocks)
		stat.Nlink = uint32(st.Nlink)
		stat.UID = st.Uid
		stat.GID = st.Gid
		stat.Rdev = uint32(st.Rdev)
	} else {
		stat.Blocks = storage.BlockCount(stat.Size)
		stat.Nlink = 1
	}
	return stat, nil
}

// ReadFile returns the full content of the file at path.
func (b *LocalBackend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	full, err := b.checkedResolve(ctx, p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, mapOSError(err, p)
	}
	return data, nil
}

// WriteFile replaces the content of the file at path. The parent directory
// must exist; a missing parent reports ErrNotFound.
func (b *LocalBackend) WriteFile(ctx context.Context, p string, data []byte) error {
	full, err := b.checkedResolve(ctx, p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return mapOSError(err, p)
	}
	return nil
}

// resolve maps an SDK path into the root subtree.
func (b *LocalBackend) resolve(p string) (string, error) {
	clean, err := storage.CleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}

// checkedResolve validates the context before resolving.
func (b *LocalBackend) checkedResolve(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storage.Errorf(storage.ErrIOError, "operation cancelled: %v", err)
	}
	return b.resolve(p)
}

// mapOSError translates OS-level errors into the SDK error taxonomy.
// ENOTEMPTY satisfies os.IsExist on Linux, so it must be checked first.
func mapOSError(err error, path string) *storage.StoreError {
	switch {
	case os.IsNotExist(err):
		return &storage.StoreError{Code: storage.ErrNotFound, Message: "no such file or directory", Path: path}
	case errors.Is(err, syscall.ENOTEMPTY):
		return &storage.StoreError{Code: storage.ErrNotEmpty, Message: "directory not empty", Path: path}
	case os.IsExist(err):
		return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "entry already exists", Path: path}
	case os.IsPermission(err):
		return &storage.StoreError{Code: storage.ErrPermissionDenied, Message: "permission denied", Path: path}
	case errors.Is(err, syscall.EISDIR):
		return &storage.StoreError{Code: storage.ErrIOError, Message: "is a directory", Path: path}
	default:
		return &storage.StoreError{Code: storage.ErrIOError, Message: err.Error(), Path: path}
	}
}
