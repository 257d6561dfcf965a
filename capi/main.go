// Package main is the C binding of the DatenLord SDK, built with
// -buildmode=c-shared (or c-archive):
//
//	go build -buildmode=c-shared -o libdatenlord.so ./capi
//
// The hand-maintained consumer header lives at include/datenlord.h and must
// stay in sync with the preamble below.
//
// Memory contract:
//   - All error records and their message bytes are allocated on the C heap
//     by this package and released only by datenlord_free_error.
//   - Paths and the configuration string are borrowed NUL-terminated text;
//     content arguments are borrowed {pointer,length} buffers. The SDK never
//     retains either past the call.
//   - datenlord_read_file fills a caller-allocated buffer (sized from a prior
//     datenlord_stat) and never allocates for the caller.
//
// No Go pointer ever crosses the boundary: clients are addressed by uint64
// handles issued by pkg/registry.
package main

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>
#include <stdbool.h>

// A borrowed or owned byte buffer. Ownership is documented per function.
typedef struct datenlord_bytes {
	const uint8_t *data;
	size_t len;
} datenlord_bytes;

// A heap-allocated error record. NULL means success. The message bytes are
// owned by the record and stay valid until datenlord_free_error.
typedef struct datenlord_error {
	uint32_t code;
	datenlord_bytes message;
} datenlord_error;

// File metadata snapshot. All fields are populated on success.
typedef struct datenlord_file_stat {
	uint64_t ino;
	uint64_t size;
	uint64_t blocks;
	uint32_t perm;
	uint32_t nlink;
	uint32_t uid;
	uint32_t gid;
	uint32_t rdev;
} datenlord_file_stat;
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/datenlord/sdk-go/pkg/registry"
	"github.com/datenlord/sdk-go/pkg/sdk"
	"github.com/datenlord/sdk-go/pkg/storage"
)

// ============================================================================
// Marshaling helpers
// ============================================================================

// goBytes copies a borrowed C buffer into a Go slice.
func goBytes(b C.datenlord_bytes) []byte {
	if b.data == nil || b.len == 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(b.data), C.int(b.len))
}

// goPath copies a borrowed NUL-terminated C string. A NULL pointer maps to
// the empty string, which the SDK rejects with the invalid-argument code.
func goPath(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

// makeError marshals a Go error into a C-heap error record.
// Returns nil for a nil error. The record and its message bytes are released
// only by datenlord_free_error.
func makeError(err error) *C.datenlord_error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	record := (*C.datenlord_error)(C.malloc(C.size_t(unsafe.Sizeof(C.datenlord_error{}))))
	record.code = C.uint32_t(storage.CodeOf(err))
	record.message.len = C.size_t(len(msg))
	if len(msg) > 0 {
		record.message.data = (*C.uint8_t)(C.CBytes([]byte(msg)))
	} else {
		record.message.data = nil
	}
	return record
}

// getClient resolves a handle, mapping failures into the error record shape.
func getClient(handle C.uint64_t) (*sdk.Client, *C.datenlord_error) {
	client, err := registry.Default.Get(uint64(handle))
	if err != nil {
		return nil, makeError(err)
	}
	return client, nil
}

// ============================================================================
// Session lifecycle
// ============================================================================

// datenlord_init creates an SDK client from an opaque configuration string
// (inline YAML, "@/path/to/file.yaml", or a bare file path; empty or NULL
// selects defaults).
//
// On success *out_handle receives a non-zero handle and NULL is returned.
// On failure both signals fire: *out_handle is set to 0 AND a populated error
// record is returned.
//
//export datenlord_init
func datenlord_init(config *C.char, outHandle *C.uint64_t) *C.datenlord_error {
	*outHandle = 0

	client, err := sdk.New(context.Background(), goPath(config))
	if err != nil {
		return makeError(err)
	}

	*outHandle = C.uint64_t(registry.Default.Register(client))
	return nil
}

// datenlord_free_sdk closes the client and invalidates the handle. The handle
// is never reused; later calls with it fail with the invalid-handle code.
//
//export datenlord_free_sdk
func datenlord_free_sdk(handle C.uint64_t) *C.datenlord_error {
	return makeError(registry.Default.Release(uint64(handle)))
}

// ============================================================================
// Directory operations
// ============================================================================

// datenlord_exists reports whether path exists. A nonexistent path is not an
// error: the call returns NULL with *out_exists set to false. Errors are
// reserved for invalid handles and malformed paths, and *out_exists is only
// meaningful when NULL is returned.
//
//export datenlord_exists
func datenlord_exists(handle C.uint64_t, path *C.char, outExists *C.bool) *C.datenlord_error {
	client, cerr := getClient(handle)
	if cerr != nil {
		return cerr
	}

	exists, err := client.Exists(context.Background(), goPath(path))
	if err != nil {
		return makeError(err)
	}
	*outExists = C.bool(exists)
	return nil
}

// datenlord_mkdir creates a directory; the parent must exist.
//
//export datenlord_mkdir
func datenlord_mkdir(handle C.uint64_t, path *C.char) *C.datenlord_error {
	client, cerr := getClient(handle)
	if cerr != nil {
		return cerr
	}
	return makeError(client.MkDir(context.Background(), goPath(path)))
}

// datenlord_delete_dir removes a directory. A non-empty directory is only
// removed when recursive is true.
//
//export datenlord_delete_dir
func datenlord_delete_dir(handle C.uint64_t, path *C.char, recursive C.bool) *C.datenlord_error {
	client, cerr := getClient(handle)
	if cerr != nil {
		return cerr
	}
	return makeError(client.DeleteDir(context.Background(), goPath(path), bool(recursive)))
}

// datenlord_rename_path moves src to dst (files and directories).
//
//export datenlord_rename_path
func datenlord_rename_path(handle C.uint64_t, src, dst *C.char) *C.datenlord_error {
	client, cerr := getClient(handle)
	if cerr != nil {
		return cerr
	}
	return makeError(client.RenamePath(context.Background(), goPath(src), goPath(dst)))
}

// ============================================================================
// File operations
// ============================================================================

// datenlord_copy_from_local_file uploads a local file. When overwrite is
// false an occupied remote path fails with the already-exists code.
//
//export datenlord_copy_from_local_file
func datenlord_copy_from_local_file(handle C.uint64_t, overwrite C.bool, localPath, remotePath *C.char) *C.datenlord_error {
	client, cerr := getClient(handle)
	if cerr != nil {
		return cerr
	}
	return makeError(client.CopyFromLocalFile(context.Background(), bool(overwrite), goPath(localPath), goPath(remotePath)))
}

// datenlord_copy_to_local_file downloads a remote file, creating local parent
// directories and replacing any existing local file.
//
//export datenlord_copy_to_local_file
func datenlord_copy_to_local_file(handle C.uint64_t, remotePath, localPath *C.char) *C.datenlord_error {
	client, cerr := getClient(handle)
	if cerr != nil {
		return cerr
	}
	return makeError(client.CopyToLocalFile(context.Background(), goPath(remotePath), goPath(localPath)))
}

// datenlord_create_file creates an empty regular file.
//
//export datenlord_create_file
func datenlord_create_file(handle C.uint64_t, path *C.char) *C.datenlord_error {
	client, cerr := getClient(handle)
	if cerr != nil {
		return cerr
	}
	return makeError(client.CreateFile(context.Background(), goPath(path)))
}

// datenlord_stat fills a caller-allocated stat record. On failure the record
// is untouched.
//
//export datenlord_stat
func datenlord_stat(handle C.uint64_t, path *C.char, out *C.datenlord_file_stat) *C.datenlord_error {
	client, cerr := getClient(handle)
	if cerr != nil {
		return cerr
	}

	stat, err := client.Stat(context.Background(), goPath(path))
	if err != nil {
		return makeError(err)
	}

	out.ino = C.uint64_t(stat.Ino)
	out.size = C.uint64_t(stat.Size)
	out.blocks = C.uint64_t(stat.Blocks)
	out.perm = C.uint32_t(stat.Perm)
	out.nlink = C.uint32_t(stat.Nlink)
	out.uid = C.uint32_t(stat.UID)
	out.gid = C.uint32_t(stat.GID)
	out.rdev = C.uint32_t(stat.Rdev)
	return nil
}

// datenlord_write_file replaces file content. The content buffer is borrowed
// for the duration of the call only.
//
//export datenlord_write_file
func datenlord_write_file(handle C.uint64_t, path *C.char, content C.datenlord_bytes) *C.datenlord_error {
	client, cerr := getClient(handle)
	if cerr != nil {
		return cerr
	}
	return makeError(client.WriteFile(context.Background(), goPath(path), goBytes(content)))
}

// datenlord_read_file reads file content into a caller-allocated buffer.
//
// On entry buf->data points at the destination and buf->len holds its
// capacity (obtained from a prior datenlord_stat). On success buf->len is
// updated to the number of bytes read. A file larger than the capacity fails
// with the invalid-argument code and leaves the buffer unspecified.
//
//export datenlord_read_file
func datenlord_read_file(handle C.uint64_t, path *C.char, buf *C.datenlord_bytes) *C.datenlord_error {
	client, cerr := getClient(handle)
	if cerr != nil {
		return cerr
	}

	data, err := client.ReadFile(context.Background(), goPath(path))
	if err != nil {
		return makeError(err)
	}

	if uint64(len(data)) > uint64(buf.len) {
		return makeError(storage.Errorf(storage.ErrInvalidArgument,
			"buffer too small: need %d bytes, have %d", len(data), uint64(buf.len)))
	}
	if len(data) > 0 {
		if buf.data == nil {
			return makeError(storage.Errorf(storage.ErrInvalidArgument, "null buffer"))
		}
		C.memcpy(unsafe.Pointer(buf.data), unsafe.Pointer(&data[0]), C.size_t(len(data)))
	}
	buf.len = C.size_t(len(data))
	return nil
}

// ============================================================================
// Error lifecycle
// ============================================================================

// datenlord_free_error releases an error record and its message bytes.
// Passing NULL is a no-op. Records must be freed exactly once.
//
//export datenlord_free_error
func datenlord_free_error(err *C.datenlord_error) {
	if err == nil {
		return
	}
	if err.message.data != nil {
		C.free(unsafe.Pointer(err.message.data))
	}
	C.free(unsafe.Pointer(err))
}

func main() {}
