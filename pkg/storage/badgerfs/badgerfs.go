package badgerfs

import (
	"context"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/datenlord/sdk-go/pkg/storage"
)

// BadgerBackend implements storage.Backend using BadgerDB for persistence.
//
// This implementation provides a persistent, embedded namespace backed by
// BadgerDB, a fast key-value store with WAL-based crash recovery. It is
// suitable for:
//   - Single-node deployments that must survive restarts
//   - Bindings embedded in long-lived host processes
//   - Testing persistence semantics without a remote cluster
//
// Storage Model:
// Entry metadata lives under "meta:<path>" keys as XDR records; file content
// lives under "data:<path>" as raw bytes (see serialization.go). Directory
// emptiness checks and recursive removals are prefix scans over the metadata
// namespace.
//
// Thread Safety:
// BadgerDB transactions provide isolation; a single write mutex serializes
// multi-key mutations (rename, recursive delete) so their read-check-write
// sequences can't interleave.
type BadgerBackend struct {
	db  *badger.DB
	seq *badger.Sequence

	// uid/gid reported as the owner of every entry
	uid uint32
	gid uint32

	path     string
	inMemory bool

	// mu serializes multi-key mutations
	mu sync.Mutex
}

// Config contains configuration for the BadgerDB backend.
type Config struct {
	// Path is the database directory (required unless InMemory)
	Path string

	// InMemory runs BadgerDB without touching disk. Used by tests.
	InMemory bool

	// UID/GID reported as the owner of every entry (default 0/0)
	UID uint32
	GID uint32
}

// New creates a BadgerDB backend. The database is not opened until Init.
func New(cfg Config) (*BadgerBackend, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, storage.Errorf(storage.ErrConfigError, "badgerfs backend: path is required")
	}
	return &BadgerBackend{
		path:     cfg.Path,
		inMemory: cfg.InMemory,
		uid:      cfg.UID,
		gid:      cfg.GID,
	}, nil
}

// Init opens the database and creates the root directory record if missing.
func (b *BadgerBackend) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storage.Errorf(storage.ErrConnectionError, "init cancelled: %v", err)
	}

	opts := badger.DefaultOptions(b.path).WithLogger(nil)
	if b.inMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return storage.Errorf(storage.ErrConnectionError, "failed to open badger database: %v", err)
	}

	seq, err := db.GetSequence([]byte(seqKey), 128)
	if err != nil {
		_ = db.Close()
		return storage.Errorf(storage.ErrConnectionError, "failed to open inode sequence: %v", err)
	}

	b.db = db
	b.seq = seq

	// Ensure the root directory exists.
	return b.update(func(txn *badger.Txn) error {
		if _, err := b.getRecord(txn, "/"); err == nil {
			return nil
		}
		ino, err := b.seq.Next()
		if err != nil {
			return storage.Errorf(storage.ErrIOError, "failed to allocate inode: %v", err)
		}
		return b.putRecord(txn, "/", &fileRecord{IsDir: true, Ino: ino + 1, Size: 4096, Perm: 0755, UID: b.uid, GID: b.gid})
	})
}

// Close releases the inode sequence and closes the database.
func (b *BadgerBackend) Close() error {
	if b.db == nil {
		return nil
	}
	if err := b.seq.Release(); err != nil {
		_ = b.db.Close()
		return storage.Errorf(storage.ErrIOError, "failed to release inode sequence: %v", err)
	}
	if err := b.db.Close(); err != nil {
		return storage.Errorf(storage.ErrIOError, "failed to close badger database: %v", err)
	}
	b.db = nil
	return nil
}

// Exists reports whether a file or directory exists at path.
func (b *BadgerBackend) Exists(ctx context.Context, p string) bool {
	if ctx.Err() != nil {
		return false
	}
	clean, err := storage.CleanPath(p)
	if err != nil {
		return false
	}

	found := false
	_ = b.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(clean)); err == nil {
			found = true
		}
		return nil
	})
	return found
}

// MkDir creates a directory at path. The parent must exist.
func (b *BadgerBackend) MkDir(ctx context.Context, p string) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.update(func(txn *badger.Txn) error {
		if _, err := b.getRecord(txn, clean); err == nil {
			return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "entry already exists", Path: clean}
		}
		if err := b.requireDir(txn, storage.ParentPath(clean)); err != nil {
			return err
		}
		ino, err := b.seq.Next()
		if err != nil {
			return storage.Errorf(storage.ErrIOError, "failed to allocate inode: %v", err)
		}
		return b.putRecord(txn, clean, &fileRecord{IsDir: true, Ino: ino + 1, Size: 4096, Perm: 0755, UID: b.uid, GID: b.gid})
	})
}

// RemoveDir removes the directory at path. Non-empty directories require
// recursive=true.
func (b *BadgerBackend) RemoveDir(ctx context.Context, p string, recursive bool) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.update(func(txn *badger.Txn) error {
		rec, err := b.getRecord(txn, clean)
		if err != nil {
			return err
		}
		if !rec.IsDir {
			return &storage.StoreError{Code: storage.ErrIOError, Message: "not a directory", Path: clean}
		}

		children := b.descendantPaths(txn, clean)
		if !recursive && len(children) > 0 {
			return &storage.StoreError{Code: storage.ErrNotEmpty, Message: "directory not empty", Path: clean}
		}
		for _, child := range children {
			if err := b.deleteEntry(txn, child); err != nil {
				return err
			}
		}
		if storage.IsRoot(clean) {
			return nil
		}
		return b.deleteEntry(txn, clean)
	})
}

// Rename moves src to dst, rewriting descendant keys when src is a directory.
func (b *BadgerBackend) Rename(ctx context.Context, src, dst string) error {
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

	return b.update(func(txn *badger.Txn) error {
		if _, err := b.getRecord(txn, cleanSrc); err != nil {
			return err
		}
		if _, err := b.getRecord(txn, cleanDst); err == nil {
			return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "destination already exists", Path: cleanDst}
		}
		if err := b.requireDir(txn, storage.ParentPath(cleanDst)); err != nil {
			return err
		}

		moves := append([]string{cleanSrc}, b.descendantPaths(txn, cleanSrc)...)
		for _, from := range moves {
			to := cleanDst + strings.TrimPrefix(from, cleanSrc)
			if err := b.moveEntry(txn, from, to); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateFile creates an empty regular file at path.
func (b *BadgerBackend) CreateFile(ctx context.Context, p string) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.update(func(txn *badger.Txn) error {
		if _, err := b.getRecord(txn, clean); err == nil {
			return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "entry already exists", Path: clean}
		}
		if err := b.requireDir(txn, storage.ParentPath(clean)); err != nil {
			return err
		}
		ino, err := b.seq.Next()
		if err != nil {
			return storage.Errorf(storage.ErrIOError, "failed to allocate inode: %v", err)
		}
		return b.putRecord(txn, clean, &fileRecord{Ino: ino + 1, Perm: 0644, UID: b.uid, GID: b.gid})
	})
}

// Stat returns the metadata snapshot for path.
func (b *BadgerBackend) Stat(ctx context.Context, p string) (*storage.FileStat, error) {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return nil, err
	}

	var stat *storage.FileStat
	err = b.db.View(func(txn *badger.Txn) error {
		rec, err := b.getRecord(txn, clean)
		if err != nil {
			return err
		}
		stat = recordToStat(rec)
		return nil
	})
	if err != nil {
		return nil, asStoreError(err)
	}
	return stat, nil
}

// ReadFile returns the full content of the file at path.
func (b *BadgerBackend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = b.db.View(func(txn *badger.Txn) error {
		rec, err := b.getRecord(txn, clean)
		if err != nil {
			return err
		}
		if rec.IsDir {
			return &storage.StoreError{Code: storage.ErrIOError, Message: "is a directory", Path: clean}
		}
		item, err := txn.Get(dataKey(clean))
		if err == badger.ErrKeyNotFound {
			// Metadata without content means an empty file.
			data = []byte{}
			return nil
		}
		if err != nil {
			return storage.Errorf(storage.ErrIOError, "failed to read content: %v", err)
		}
		data, err = item.ValueCopy(nil)
		if err != nil {
			return storage.Errorf(storage.ErrIOError, "failed to copy content: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, asStoreError(err)
	}
	return data, nil
}

// WriteFile replaces the content of the file at path, creating the entry when
// the parent directory exists.
func (b *BadgerBackend) WriteFile(ctx context.Context, p string, data []byte) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.update(func(txn *badger.Txn) error {
		rec, err := b.getRecord(txn, clean)
		switch {
		case err == nil:
			if rec.IsDir {
				return &storage.StoreError{Code: storage.ErrIOError, Message: "is a directory", Path: clean}
			}
		case storage.CodeOf(err) == storage.ErrNotFound:
			if err := b.requireDir(txn, storage.ParentPath(clean)); err != nil {
				return err
			}
			ino, seqErr := b.seq.Next()
			if seqErr != nil {
				return storage.Errorf(storage.ErrIOError, "failed to allocate inode: %v", seqErr)
			}
			rec = &fileRecord{Ino: ino + 1, Perm: 0644, UID: b.uid, GID: b.gid}
		default:
			return err
		}

		rec.Size = uint64(len(data))
		if err := b.putRecord(txn, clean, rec); err != nil {
			return err
		}
		if err := txn.Set(dataKey(clean), data); err != nil {
			return storage.Errorf(storage.ErrIOError, "failed to write content: %v", err)
		}
		return nil
	})
}

// ============================================================================
// Transaction helpers
// ============================================================================

// update runs fn in a read-write transaction and normalizes the error.
func (b *BadgerBackend) update(fn func(txn *badger.Txn) error) error {
	if err := b.db.Update(fn); err != nil {
		return asStoreError(err)
	}
	return nil
}

// getRecord fetches and decodes the metadata record for a cleaned path.
func (b *BadgerBackend) getRecord(txn *badger.Txn, path string) (*fileRecord, error) {
	item, err := txn.Get(metaKey(path))
	if err == badger.ErrKeyNotFound {
		return nil, &storage.StoreError{Code: storage.ErrNotFound, Message: "entry not found", Path: path}
	}
	if err != nil {
		return nil, storage.Errorf(storage.ErrIOError, "failed to read metadata: %v", err)
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, storage.Errorf(storage.ErrIOError, "failed to copy metadata: %v", err)
	}
	return decodeRecord(raw)
}

// putRecord encodes and stores the metadata record for a cleaned path.
func (b *BadgerBackend) putRecord(txn *badger.Txn, path string, rec *fileRecord) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := txn.Set(metaKey(path), raw); err != nil {
		return storage.Errorf(storage.ErrIOError, "failed to write metadata: %v", err)
	}
	return nil
}

// requireDir fails with ErrNotFound unless a directory record exists at path.
func (b *BadgerBackend) requireDir(txn *badger.Txn, path string) error {
	rec, err := b.getRecord(txn, path)
	if err != nil {
		if storage.CodeOf(err) == storage.ErrNotFound {
			return &storage.StoreError{Code: storage.ErrNotFound, Message: "parent directory not found", Path: path}
		}
		return err
	}
	if !rec.IsDir {
		return &storage.StoreError{Code: storage.ErrIOError, Message: "parent is not a directory", Path: path}
	}
	return nil
}

// descendantPaths lists every path strictly below dir, via a metadata prefix
// scan.
func (b *BadgerBackend) descendantPaths(txn *badger.Txn, dir string) []string {
	prefix := metaPrefix + dir + "/"
	if storage.IsRoot(dir) {
		prefix = metaPrefix + "/"
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)

	it := txn.NewIterator(opts)
	defer it.Close()

	var paths []string
	for it.Rewind(); it.Valid(); it.Next() {
		p := strings.TrimPrefix(string(it.Item().Key()), metaPrefix)
		if p == dir {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

// deleteEntry removes metadata and content for a cleaned path.
func (b *BadgerBackend) deleteEntry(txn *badger.Txn, path string) error {
	if err := txn.Delete(metaKey(path)); err != nil {
		return storage.Errorf(storage.ErrIOError, "failed to delete metadata: %v", err)
	}
	if err := txn.Delete(dataKey(path)); err != nil {
		return storage.Errorf(storage.ErrIOError, "failed to delete content: %v", err)
	}
	return nil
}

// moveEntry rewrites the metadata and content keys of one entry.
func (b *BadgerBackend) moveEntry(txn *badger.Txn, from, to string) error {
	rec, err := b.getRecord(txn, from)
	if err != nil {
		return err
	}

	var content []byte
	hasContent := false
	if !rec.IsDir {
		item, err := txn.Get(dataKey(from))
		if err == nil {
			content, err = item.ValueCopy(nil)
			if err != nil {
				return storage.Errorf(storage.ErrIOError, "failed to copy content: %v", err)
			}
			hasContent = true
		} else if err != badger.ErrKeyNotFound {
			return storage.Errorf(storage.ErrIOError, "failed to read content: %v", err)
		}
	}

	if err := b.deleteEntry(txn, from); err != nil {
		return err
	}
	if err := b.putRecord(txn, to, rec); err != nil {
		return err
	}
	if hasContent {
		if err := txn.Set(dataKey(to), content); err != nil {
			return storage.Errorf(storage.ErrIOError, "failed to write content: %v", err)
		}
	}
	return nil
}

// checkedPath validates the context and cleans the path.
func (b *BadgerBackend) checkedPath(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storage.Errorf(storage.ErrIOError, "operation cancelled: %v", err)
	}
	return storage.CleanPath(p)
}

// recordToStat converts a stored record into the public stat snapshot.
func recordToStat(rec *fileRecord) *storage.FileStat {
	stat := &storage.FileStat{
		Ino:   rec.Ino,
		Size:  rec.Size,
		Perm:  rec.Perm,
		Nlink: 1,
		UID:   rec.UID,
		GID:   rec.GID,
	}
	if rec.IsDir {
		stat.Nlink = 2
	}
	stat.Blocks = storage.BlockCount(stat.Size)
	return stat
}

// asStoreError ensures every surfaced error carries an SDK error code.
func asStoreError(err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*storage.StoreError); ok {
		return se
	}
	return storage.Errorf(storage.ErrIOError, "badger: %v", err)
}
