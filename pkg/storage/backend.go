package storage

import (
	"context"
)

// Backend is the backing-client abstraction behind the SDK.
//
// A Backend exposes a minimal POSIX-like surface: existence checks, directory
// creation and removal, rename, file create/stat/read/write. The SDK client
// layers configuration, local-file copy helpers, and the foreign-call contract
// on top of this interface without knowing which store performs the work.
//
// Path Semantics:
// All paths are absolute within the backend's namespace, use "/" separators,
// and are interpreted relative to the backend's root. Backends normalize paths
// before use; "" and "/" both refer to the root.
//
// Error Handling:
// Every operation returns nil on success or a *StoreError with a populated
// code and message. Backends never return raw OS or driver errors.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// The SDK documents a Client as concurrency-safe only because every backend
// in this repository guarantees it; a third-party backend that does not must
// say so, and its callers must serialize access themselves.
type Backend interface {
	// Init establishes the backing session. It is called exactly once by the
	// SDK before any other operation and must be cheap to call on an already
	// reachable store. Failures map to ErrConnectionError.
	Init(ctx context.Context) error

	// Close releases all backing resources. Called exactly once; the backend
	// is unusable afterwards.
	Close() error

	// Exists reports whether a file or directory exists at path.
	// Exists has no error channel: any failure (including backend outage)
	// reports false.
	Exists(ctx context.Context, path string) bool

	// MkDir creates a directory at path. The parent must exist.
	// Fails with ErrAlreadyExists if an entry already occupies the path.
	MkDir(ctx context.Context, path string) error

	// RemoveDir removes the directory at path. A non-empty directory is only
	// removed when recursive is true; otherwise the call fails with
	// ErrNotEmpty. A partially completed recursive removal still reports an
	// error.
	RemoveDir(ctx context.Context, path string, recursive bool) error

	// Rename atomically moves src to dst. Fails with ErrNotFound when src is
	// missing and ErrAlreadyExists when dst is occupied.
	Rename(ctx context.Context, src, dst string) error

	// CreateFile creates an empty regular file at path.
	// Fails with ErrAlreadyExists if the path is occupied.
	CreateFile(ctx context.Context, path string) error

	// Stat returns the metadata snapshot for path. On success every FileStat
	// field is valid; there are no partially populated results.
	Stat(ctx context.Context, path string) (*FileStat, error)

	// ReadFile returns the full content of the file at path. The returned
	// slice is owned by the caller; the backend retains no reference to it.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile replaces the content of the file at path, creating it if the
	// parent directory exists. The data slice is borrowed: the backend must
	// not retain a reference to it after the call returns.
	WriteFile(ctx context.Context, path string, data []byte) error
}

// FileStat is a snapshot of file metadata.
//
// The layout mirrors the datenlord_file_stat record of the C binding; fields
// are populated from whatever the backend natively tracks, with documented
// synthetic values where a store has no real counterpart (e.g. link counts on
// object storage are always 1).
type FileStat struct {
	// Ino is the inode number (backend-defined, stable for the entry lifetime)
	Ino uint64

	// Size is the file size in bytes (directories report a backend-defined
	// constant, conventionally 4096)
	Size uint64

	// Blocks is the number of 512-byte blocks allocated
	Blocks uint64

	// Perm holds the Unix permission bits
	Perm uint32

	// Nlink is the hard link count
	Nlink uint32

	// UID is the owner user id
	UID uint32

	// GID is the owner group id
	GID uint32

	// Rdev is the device id for special files (0 for regular entries)
	Rdev uint32
}

// BlockCount returns the number of 512-byte blocks needed for size bytes.
// Shared by backends that have no native block accounting.
func BlockCount(size uint64) uint64 {
	return (size + 511) / 512
}
