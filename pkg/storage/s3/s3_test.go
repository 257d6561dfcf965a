package s3

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/datenlord/sdk-go/pkg/storage"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Bucket: "bucket"})
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))

	_, err = New(Config{Client: &awsS3.Client{}})
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

func TestKeyMapping(t *testing.T) {
	backend, err := New(Config{Client: &awsS3.Client{}, Bucket: "bucket", KeyPrefix: "datenlord"})
	require.NoError(t, err)

	// The prefix is normalized with a trailing slash.
	assert.Equal(t, "datenlord/docs/report.pdf", backend.fileKey("/docs/report.pdf"))
	assert.Equal(t, "datenlord/docs/", backend.dirKey("/docs"))
	assert.Equal(t, "datenlord/", backend.dirKey("/"))
}

func TestKeyMapping_NoPrefix(t *testing.T) {
	backend, err := New(Config{Client: &awsS3.Client{}, Bucket: "bucket"})
	require.NoError(t, err)

	assert.Equal(t, "docs/report.pdf", backend.fileKey("/docs/report.pdf"))
	assert.Equal(t, "docs/", backend.dirKey("/docs"))
}

func TestPathIno_Stable(t *testing.T) {
	assert.Equal(t, pathIno("/a/b"), pathIno("/a/b"))
	assert.NotEqual(t, pathIno("/a/b"), pathIno("/a/c"))
}

func TestMapS3Error(t *testing.T) {
	notFound := mapS3Error(&types.NotFound{}, "/missing")
	assert.Equal(t, storage.ErrNotFound, notFound.Code)
	assert.Equal(t, "/missing", notFound.Path)

	noSuchKey := mapS3Error(&types.NoSuchKey{}, "/missing")
	assert.Equal(t, storage.ErrNotFound, noSuchKey.Code)

	generic := mapS3Error(errors.New("connection reset"), "/file")
	assert.Equal(t, storage.ErrIOError, generic.Code)
	assert.NotEmpty(t, generic.Message)
}
