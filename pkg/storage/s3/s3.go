package s3

import (
	"bytes"
	"context"
	"errors"
	"hash/fnv"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/datenlord/sdk-go/pkg/storage"
)

// S3Backend implements storage.Backend on Amazon S3 or S3-compatible storage.
//
// Path-Based Key Design:
//   - Files map to object keys: "/docs/report.pdf" -> "<prefix>docs/report.pdf"
//   - Directories are zero-byte marker objects with a trailing "/"
//   - The bucket mirrors the SDK namespace and stays human-inspectable
//
// S3 Characteristics:
//   - Rename is copy+delete (no native move); directory renames copy every
//     descendant object
//   - Recursive deletes use the batch DeleteObjects API (up to 1000 keys per
//     request)
//   - Last-write-wins under concurrent writes to the same key
//
// Synthetic Stat Fields:
// Object storage has no inodes, link counts, or owners. Stat derives a stable
// inode from an FNV-1a hash of the key, reports Nlink=1, permission 0644
// (0755 for directories), and the configured UID/GID.
//
// Thread Safety:
// The S3 client is safe for concurrent use. Multi-step operations (rename,
// recursive delete) are not atomic; concurrent mutations of the same subtree
// follow S3's eventual consistency model.
type S3Backend struct {
	client    *s3.Client
	bucket    string
	keyPrefix string

	uid uint32
	gid uint32
}

// Config contains configuration for the S3 backend.
type Config struct {
	// Client is the configured S3 client (required)
	Client *s3.Client

	// Bucket is the S3 bucket name (required, must already exist)
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "datenlord/" results in keys like "datenlord/docs/report.pdf"
	KeyPrefix string

	// UID/GID reported as the owner of every entry (default 0/0)
	UID uint32
	GID uint32
}

// New creates an S3 backend. The bucket is not touched until Init.
func New(cfg Config) (*S3Backend, error) {
	if cfg.Client == nil {
		return nil, storage.Errorf(storage.ErrConfigError, "s3 backend: client is required")
	}
	if cfg.Bucket == "" {
		return nil, storage.Errorf(storage.ErrConfigError, "s3 backend: bucket is required")
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &S3Backend{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
		uid:       cfg.UID,
		gid:       cfg.GID,
	}, nil
}

// Init verifies bucket access. The bucket must already exist.
func (b *S3Backend) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storage.Errorf(storage.ErrConnectionError, "init cancelled: %v", err)
	}
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	if err != nil {
		return storage.Errorf(storage.ErrConnectionError, "failed to access bucket %s: %v", b.bucket, err)
	}
	return nil
}

// Close releases the backend. The S3 client holds no per-backend state.
func (b *S3Backend) Close() error {
	return nil
}

// Exists reports whether a file or directory exists at path.
func (b *S3Backend) Exists(ctx context.Context, p string) bool {
	if ctx.Err() != nil {
		return false
	}
	clean, err := storage.CleanPath(p)
	if err != nil {
		return false
	}
	if storage.IsRoot(clean) {
		return true
	}
	if b.objectExists(ctx, b.fileKey(clean)) {
		return true
	}
	return b.dirExists(ctx, clean)
}

// MkDir creates a directory marker at path. The parent must exist.
func (b *S3Backend) MkDir(ctx context.Context, p string) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}
	if storage.IsRoot(clean) {
		return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "entry already exists", Path: clean}
	}
	if b.objectExists(ctx, b.fileKey(clean)) || b.dirExists(ctx, clean) {
		return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "entry already exists", Path: clean}
	}
	if err := b.requireDir(ctx, storage.ParentPath(clean)); err != nil {
		return err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.dirKey(clean)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return mapS3Error(err, clean)
	}
	return nil
}

// RemoveDir removes the directory at path. Non-empty directories require
// recursive=true. A failure partway through a recursive removal is still
// reported as an error even though some objects are already gone.
func (b *S3Backend) RemoveDir(ctx context.Context, p string, recursive bool) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}
	if !storage.IsRoot(clean) && !b.dirExists(ctx, clean) {
		return &storage.StoreError{Code: storage.ErrNotFound, Message: "directory not found", Path: clean}
	}

	keys, err := b.listDescendants(ctx, clean)
	if err != nil {
		return err
	}

	marker := b.dirKey(clean)
	var children []string
	for _, key := range keys {
		if key != marker {
			children = append(children, key)
		}
	}

	if !recursive && len(children) > 0 {
		return &storage.StoreError{Code: storage.ErrNotEmpty, Message: "directory not empty", Path: clean}
	}
	if err := b.deleteBatch(ctx, children); err != nil {
		return err
	}
	if storage.IsRoot(clean) {
		return nil
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(marker),
	})
	if err != nil {
		return mapS3Error(err, clean)
	}
	return nil
}

// Rename moves src to dst via copy+delete. Directory renames copy every
// descendant object and are not atomic.
func (b *S3Backend) Rename(ctx context.Context, src, dst string) error {
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
	if b.objectExists(ctx, b.fileKey(cleanDst)) || b.dirExists(ctx, cleanDst) {
		return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "destination already exists", Path: cleanDst}
	}
	if err := b.requireDir(ctx, storage.ParentPath(cleanDst)); err != nil {
		return err
	}

	// Plain file rename.
	if b.objectExists(ctx, b.fileKey(cleanSrc)) {
		return b.moveObject(ctx, b.fileKey(cleanSrc), b.fileKey(cleanDst), cleanSrc)
	}

	// Directory rename: move the marker and every descendant.
	if !b.dirExists(ctx, cleanSrc) {
		return &storage.StoreError{Code: storage.ErrNotFound, Message: "source not found", Path: cleanSrc}
	}
	keys, err := b.listDescendants(ctx, cleanSrc)
	if err != nil {
		return err
	}
	srcPrefix := b.dirKey(cleanSrc)
	dstPrefix := b.dirKey(cleanDst)
	for _, key := range keys {
		if err := b.moveObject(ctx, key, dstPrefix+strings.TrimPrefix(key, srcPrefix), cleanSrc); err != nil {
			return err
		}
	}
	return nil
}

// CreateFile creates an empty object at path.
func (b *S3Backend) CreateFile(ctx context.Context, p string) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}
	if b.objectExists(ctx, b.fileKey(clean)) || b.dirExists(ctx, clean) {
		return &storage.StoreError{Code: storage.ErrAlreadyExists, Message: "entry already exists", Path: clean}
	}
	if err := b.requireDir(ctx, storage.ParentPath(clean)); err != nil {
		return err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fileKey(clean)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return mapS3Error(err, clean)
	}
	return nil
}

// Stat returns the metadata snapshot for path. Inodes, link counts, and
// owners are synthesized (see type comment).
func (b *S3Backend) Stat(ctx context.Context, p string) (*storage.FileStat, error) {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return nil, err
	}

	if !storage.IsRoot(clean) {
		head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.fileKey(clean)),
		})
		if err == nil {
			size := uint64(aws.ToInt64(head.ContentLength))
			return &storage.FileStat{
				Ino:    pathIno(clean),
				Size:   size,
				Blocks: storage.BlockCount(size),
				Perm:   0644,
				Nlink:  1,
				UID:    b.uid,
				GID:    b.gid,
			}, nil
		}
		if !isNotFound(err) {
			return nil, mapS3Error(err, clean)
		}
	}

	if storage.IsRoot(clean) || b.dirExists(ctx, clean) {
		return &storage.FileStat{
			Ino:    pathIno(clean),
			Size:   4096,
			Blocks: storage.BlockCount(4096),
			Perm:   0755,
			Nlink:  2,
			UID:    b.uid,
			GID:    b.gid,
		}, nil
	}
	return nil, &storage.StoreError{Code: storage.ErrNotFound, Message: "entry not found", Path: clean}
}

// ReadFile returns the full content of the object at path.
func (b *S3Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return nil, err
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fileKey(clean)),
	})
	if err != nil {
		return nil, mapS3Error(err, clean)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, storage.Errorf(storage.ErrIOError, "failed to read object body: %v", err)
	}
	return data, nil
}

// WriteFile replaces the object at path. The parent directory must exist.
func (b *S3Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	clean, err := b.checkedPath(ctx, p)
	if err != nil {
		return err
	}
	if b.dirExists(ctx, clean) {
		return &storage.StoreError{Code: storage.ErrIOError, Message: "is a directory", Path: clean}
	}
	if err := b.requireDir(ctx, storage.ParentPath(clean)); err != nil {
		return err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fileKey(clean)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return mapS3Error(err, clean)
	}
	return nil
}

// ============================================================================
// Key mapping and helpers
// ============================================================================

// fileKey maps a cleaned path to its object key.
func (b *S3Backend) fileKey(clean string) string {
	return b.keyPrefix + strings.TrimPrefix(clean, "/")
}

// dirKey maps a cleaned path to its directory marker key.
func (b *S3Backend) dirKey(clean string) string {
	if storage.IsRoot(clean) {
		return b.keyPrefix
	}
	return b.fileKey(clean) + "/"
}

// objectExists reports whether an object with the exact key exists.
func (b *S3Backend) objectExists(ctx context.Context, key string) bool {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

// dirExists reports whether a directory exists at the cleaned path, either
// as an explicit marker or implicitly as a prefix of existing objects.
func (b *S3Backend) dirExists(ctx context.Context, clean string) bool {
	if storage.IsRoot(clean) {
		return true
	}
	if b.objectExists(ctx, b.dirKey(clean)) {
		return true
	}
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(b.dirKey(clean)),
		MaxKeys: aws.Int32(1),
	})
	return err == nil && len(out.Contents) > 0
}

// requireDir fails with ErrNotFound unless a directory exists at path.
func (b *S3Backend) requireDir(ctx context.Context, clean string) error {
	if !b.dirExists(ctx, clean) {
		return &storage.StoreError{Code: storage.ErrNotFound, Message: "parent directory not found", Path: clean}
	}
	return nil
}

// listDescendants returns every object key under the directory, including
// its own marker when present.
func (b *S3Backend) listDescendants(ctx context.Context, clean string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.dirKey(clean)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapS3Error(err, clean)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// deleteBatch removes keys using DeleteObjects, up to 1000 per request.
func (b *S3Backend) deleteBatch(ctx context.Context, keys []string) error {
	const batchSize = 1000
	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return mapS3Error(err, "")
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return storage.Errorf(storage.ErrIOError, "batch delete failed for %s: %s",
				aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

// moveObject copies key src to dst and deletes the original.
func (b *S3Backend) moveObject(ctx context.Context, src, dst, path string) error {
	_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(dst),
		CopySource: aws.String(b.bucket + "/" + src),
	})
	if err != nil {
		return mapS3Error(err, path)
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(src),
	})
	if err != nil {
		return mapS3Error(err, path)
	}
	return nil
}

// checkedPath validates the context and cleans the path.
func (b *S3Backend) checkedPath(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storage.Errorf(storage.ErrIOError, "operation cancelled: %v", err)
	}
	return storage.CleanPath(p)
}

// pathIno derives a stable synthetic inode number from a cleaned path.
func pathIno(clean string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(clean))
	return h.Sum64()
}

// isNotFound reports whether an S3 error means the object doesn't exist.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}

// mapS3Error translates S3 errors into the SDK error taxonomy.
func mapS3Error(err error, path string) *storage.StoreError {
	if isNotFound(err) {
		return &storage.StoreError{Code: storage.ErrNotFound, Message: "no such file or directory", Path: path}
	}
	return &storage.StoreError{Code: storage.ErrIOError, Message: err.Error(), Path: path}
}
