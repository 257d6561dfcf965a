package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/datenlord/sdk-go/pkg/storage"
)

// MemoryBackend implements storage.Backend using in-memory storage.
//
// This implementation keeps the whole namespace in a map keyed by cleaned
// path. It's designed for:
//   - Testing and development
//   - Ephemeral scratch namespaces
//   - Exercising SDK and binding behavior without external dependencies
//
// Characteristics:
//   - Fast: all operations are memory-speed
//   - Volatile: data lost when the backend is released
//   - Thread-safe: protected by RWMutex
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Read and write buffers are
// copied at the boundary so callers never share memory with the store; this
// is what makes WriteFile's borrowed-buffer contract trivially safe here.
type MemoryBackend struct {
	// entries maps cleaned absolute paths to their metadata and content.
	// The root directory "/" is always present after Init.
	entries map[string]*entry

	// nextIno is the next inode number to assign
	nextIno uint64

	// uid/gid are reported as the owner of every entry
	uid uint32
	gid uint32

	// mu protects all fields above
	mu sync.RWMutex
}

// entry holds one file or directory.
type entry struct {
	isDir bool
	perm  uint32
	ino   uint64
	data  []byte // nil for directories
}

// Config contains configuration for the memory backend.
type Config struct {
	// UID/GID reported as the owner of every entry (default 0/0)
	UID uint32
	GID uint32
}

// New creates a new in-memory backend.
//
// The namespace starts empty except for the root directory, which is created
// by Init. All data is lost when the backend is released.
func New(cfg Config) *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*entry),
		nextIno: 1,
		uid:     cfg.UID,
		gid:     cfg.GID,
	}
}

// Init creates the root directory. It is idempotent so that a backend reused
// across tests behaves like a freshly mounted store.
func (b *MemoryBackend) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storage.Errorf(storage.ErrConnectionError, "init cancelled: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries["/"]; !ok {
		b.entries["/"] = &entry{isDir: true, perm: 0755, ino: b.allocIno()}
	}
	return nil
}

// Close releases the namespace. The backend is unusable afterwards.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	return nil
}

// Exists reports whether a file or directory exists at path.
// Any failure, including a malformed path, reports false.
func (b *MemoryBackend) Exists(ctx context.Context, p string) bool {
	if ctx.Err() != nil {
		return false
	}
	clean, err := storage.CleanPath(p)
	if err != nil {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[clean]
	return ok
}

// MkDir creates a directory at path. The parent must already exist.
func (b *MemoryBackend) MkDir(ctx context.Context, p string) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries[clean]; ok {
		return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "entry already exists", Path: clean}
	}
	if err := b.requireDirLocked(storage.ParentPath(clean)); err != nil {
		return err
	}

	b.entries[clean] = &entry{isDir: true, perm: 0755, ino: b.allocIno()}
	return nil
}

// RemoveDir removes the directory at path. Non-empty directories require
// recursive=true; otherwise the call fails with ErrNotEmpty.
func (b *MemoryBackend) RemoveDir(ctx context.Context, p string, recursive bool) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[clean]
	if !ok {
		return &storage.StoreError{Code: storage.ErrNotFound, Message: "directory not found", Path: clean}
	}
	if !e.isDir {
		return &storage.StoreError{Code: storage.ErrIOError, Message: "not a directory", Path: clean}
	}

	prefix := childPrefix(clean)
	if !recursive {
		for existing := range b.entries {
			if existing != clean && strings.HasPrefix(existing, prefix) {
				return &storage.StoreError{Code: storage.ErrNotEmpty, Message: "directory not empty", Path: clean}
			}
		}
	} else {
		for existing := range b.entries {
			if existing != clean && strings.HasPrefix(existing, prefix) {
				delete(b.entries, existing)
			}
		}
	}

	if storage.IsRoot(clean) {
		// Removing "/" empties the namespace but keeps the root itself.
		return nil
	}
	delete(b.entries, clean)
	return nil
}

// Rename moves src to dst, carrying any children along when src is a
// directory. The destination path must be free.
func (b *MemoryBackend) Rename(ctx context.Context, src, dst string) error {
	cleanSrc, err := b.checkedPath(ctx, src)
	if err != nil {
		return err
	}
	cleanDst, err := storage.CleanPath(dst)
	if err != nil {
		return err
	}
	if storage.IsRoot(cleanSrc) || storage.IsRoot(cleanDst) {
		return &storage.StoreError{Code: storage.ErrInvalidArgument, Message: "cannot rename the root directory"}
	}
	if storage.IsDescendant(cleanSrc, cleanDst) {
		return &storage.StoreError{Code: storage.ErrInvalidArgument, Message: "destination is inside the source directory", Path: cleanDst}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[cleanSrc]
	if !ok {
		return &storage.StoreError{Code: storage.ErrNotFound, Message: "source not found", Path: cleanSrc}
	}
	if _, ok := b.entries[cleanDst]; ok {
		return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "destination already exists", Path: cleanDst}
	}
	if err := b.requireDirLocked(storage.ParentPath(cleanDst)); err != nil {
		return err
	}

	delete(b.entries, cleanSrc)
	b.entries[cleanDst] = e

	if e.isDir {
		// Collect first: mutating the map while ranging over it leaves
		// inserted keys with unspecified visibility.
		srcPrefix := childPrefix(cleanSrc)
		dstPrefix := childPrefix(cleanDst)
		var moves []string
		for existing := range b.entries {
			if strings.HasPrefix(existing, srcPrefix) {
				moves = append(moves, existing)
			}
		}
		for _, from := range moves {
			b.entries[dstPrefix+strings.TrimPrefix(from, srcPrefix)] = b.entries[from]
			delete(b.entries, from)
		}
	}
	return nil
}

// CreateFile creates an empty regular file at path.
func (b *MemoryBackend) CreateFile(ctx context.Context, p string) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries[clean]; ok {
		return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "entry already exists", Path: clean}
	}
	if err := b.requireDirLocked(storage.ParentPath(clean)); err != nil {
		return err
	}

	b.entries[clean] = &entry{perm: 0644, ino: b.allocIno()}
	return nil
}

// Stat returns the metadata snapshot for path.
func (b *MemoryBackend) Stat(ctx context.Context, p string) (*storage.FileStat, error) {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[clean]
	if !ok {
		return nil, &storage.StoreError{Code: storage.ErrNotFound, Message: "entry not found", Path: clean}
	}

	stat := &storage.FileStat{
		Ino:   e.ino,
		Perm:  e.perm,
		Nlink: 1,
		UID:   b.uid,
		GID:   b.gid,
	}
	if e.isDir {
		stat.Size = 4096
		stat.Nlink = 2
	} else {
		stat.Size = uint64(len(e.data))
	}
	stat.Blocks = storage.BlockCount(stat.Size)
	return stat, nil
}

// ReadFile returns a copy of the file content at path.
func (b *MemoryBackend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[clean]
	if !ok {
		return nil, &storage.StoreError{Code: storage.ErrNotFound, Message: "file not found", Path: clean}
	}
	if e.isDir {
		return nil, &storage.StoreError{Code: storage.ErrIOError, Message: "is a directory", Path: clean}
	}

	// Copy so the caller never aliases store-owned memory.
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

// WriteFile replaces the content of the file at path, creating it when the
// parent directory exists. The data slice is copied before the call returns.
func (b *MemoryBackend) WriteFile(ctx context.Context, p string, data []byte) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[clean]; ok {
		if e.isDir {
			return &storage.StoreError{Code: storage.ErrIOError, Message: "is a directory", Path: clean}
		}
		e.data = append(e.data[:0:0], data...)
		return nil
	}

	if err := b.requireDirLocked(storage.ParentPath(clean)); err != nil {
		return err
	}

	b.entries[clean] = &entry{
		perm: 0644,
		ino:  b.allocIno(),
		data: append([]byte(nil), data...),
	}
	return nil
}

// checkedPath validates the context and cleans the path.
func (b *MemoryBackend) checkedPath(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storage.Errorf(storage.ErrIOError, "operation cancelled: %v", err)
	}
	return storage.CleanPath(p)
}

// requireDirLocked fails with ErrNotFound unless a directory exists at path.
// Callers must hold the mutex.
func (b *MemoryBackend) requireDirLocked(p string) error {
	e, ok := b.entries[p]
	if !ok {
		return &storage.StoreError{Code: storage.ErrNotFound, Message: "parent directory not found", Path: p}
	}
	if !e.isDir {
		return &storage.StoreError{Code: storage.ErrIOError, Message: "parent is not a directory", Path: p}
	}
	return nil
}

// allocIno assigns the next inode number. Callers must hold the mutex.
func (b *MemoryBackend) allocIno() uint64 {
	ino := b.nextIno
	b.nextIno++
	return ino
}

// childPrefix returns the prefix matching all descendants of a directory.
func childPrefix(dir string) string {
	if storage.IsRoot(dir) {
		return "/"
	}
	return dir + "/"
}
