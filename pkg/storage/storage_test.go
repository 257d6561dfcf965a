package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"absolute", "/a/b", "/a/b"},
		{"relative becomes absolute", "a/b", "/a/b"},
		{"trailing slash stripped", "/a/b/", "/a/b"},
		{"dot segments resolved", "/a/./b/../c", "/a/c"},
		{"parent escape clamped to root", "/../../x", "/x"},
		{"root", "/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanPath(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanPath_Empty(t *testing.T) {
	_, err := CleanPath("")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidArgument, CodeOf(err))
}

func TestIsDescendant(t *testing.T) {
	assert.True(t, IsDescendant("/a", "/a/b"))
	assert.True(t, IsDescendant("/a", "/a/b/c"))
	assert.True(t, IsDescendant("/", "/a"))
	assert.False(t, IsDescendant("/a", "/a"))
	assert.False(t, IsDescendant("/a", "/ab"))
	assert.False(t, IsDescendant("/a/b", "/a"))
	assert.False(t, IsDescendant("/", "/"))
}

func TestParentAndBase(t *testing.T) {
	assert.Equal(t, "/a", ParentPath("/a/b"))
	assert.Equal(t, "/", ParentPath("/a"))
	assert.Equal(t, "/", ParentPath("/"))
	assert.Equal(t, "b", BaseName("/a/b"))
	assert.True(t, IsRoot("/"))
	assert.False(t, IsRoot("/a"))
}

func TestStoreError_Message(t *testing.T) {
	withPath := &StoreError{Code: ErrNotFound, Message: "entry not found", Path: "/a"}
	assert.Equal(t, "entry not found: /a", withPath.Error())

	withoutPath := &StoreError{Code: ErrIOError, Message: "disk on fire"}
	assert.Equal(t, "disk on fire", withoutPath.Error())
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "NotFound", ErrNotFound.String())
	assert.Equal(t, "ConnectionError", ErrConnectionError.String())
	assert.Equal(t, "ErrorCode(99)", ErrorCode(99).String())
}

// TestErrorCode_WireValues pins the numeric values that cross the C ABI.
// A failure here means a breaking change to every foreign consumer.
func TestErrorCode_WireValues(t *testing.T) {
	assert.Equal(t, uint32(1), uint32(ErrInvalidArgument))
	assert.Equal(t, uint32(2), uint32(ErrNotFound))
	assert.Equal(t, uint32(3), uint32(ErrAlreadyExists))
	assert.Equal(t, uint32(4), uint32(ErrNotEmpty))
	assert.Equal(t, uint32(5), uint32(ErrPermissionDenied))
	assert.Equal(t, uint32(6), uint32(ErrIOError))
	assert.Equal(t, uint32(7), uint32(ErrConfigError))
	assert.Equal(t, uint32(8), uint32(ErrConnectionError))
	assert.Equal(t, uint32(9), uint32(ErrInvalidHandle))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotEmpty, CodeOf(&StoreError{Code: ErrNotEmpty, Message: "directory not empty"}))
	assert.Equal(t, ErrNotFound, CodeOf(fmt.Errorf("wrapped: %w", &StoreError{Code: ErrNotFound, Message: "gone"})))
	assert.Equal(t, ErrIOError, CodeOf(errors.New("some driver error")))
}

func TestBlockCount(t *testing.T) {
	assert.Equal(t, uint64(0), BlockCount(0))
	assert.Equal(t, uint64(1), BlockCount(1))
	assert.Equal(t, uint64(1), BlockCount(512))
	assert.Equal(t, uint64(2), BlockCount(513))
	assert.Equal(t, uint64(8), BlockCount(4096))
}
