package badgerfs

import (
	"bytes"

	xdr "github.com/rasky/go-xdr/xdr2"

	"github.com/datenlord/sdk-go/pkg/storage"
)

// Serialization Strategy
// ======================
//
// BadgerDB stores raw bytes, so entry metadata is serialized before storage.
// Records use XDR (RFC 4506) encoding:
//   - Fixed, language-neutral layout: the same records can be decoded by
//     non-Go tooling inspecting a database
//   - Compact and fast compared to JSON
//   - Rigid schema: adding fields requires a key-namespace version bump
//
// File content is stored as raw bytes under a separate key namespace and
// needs no serialization.

// Key namespaces. Metadata and content live under separate prefixes so that
// point lookups never collide and directory scans only touch metadata keys.
const (
	metaPrefix = "meta:"
	dataPrefix = "data:"
	seqKey     = "!seq:ino"
)

// fileRecord is the stored metadata for one file or directory.
type fileRecord struct {
	IsDir bool
	Ino   uint64
	Size  uint64
	Perm  uint32
	UID   uint32
	GID   uint32
}

// metaKey returns the metadata key for a cleaned path.
func metaKey(path string) []byte {
	return []byte(metaPrefix + path)
}

// dataKey returns the content key for a cleaned path.
func dataKey(path string) []byte {
	return []byte(dataPrefix + path)
}

// encodeRecord serializes a fileRecord to XDR bytes.
func encodeRecord(rec *fileRecord) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, rec); err != nil {
		return nil, storage.Errorf(storage.ErrIOError, "failed to encode metadata record: %v", err)
	}
	return buf.Bytes(), nil
}

// decodeRecord deserializes XDR bytes into a fileRecord.
func decodeRecord(data []byte) (*fileRecord, error) {
	var rec fileRecord
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &rec); err != nil {
		return nil, storage.Errorf(storage.ErrIOError, "failed to decode metadata record: %v", err)
	}
	return &rec, nil
}
