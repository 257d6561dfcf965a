package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/datenlord/sdk-go/pkg/storage"
)

// BackendTestSuite is a conformance test suite for storage.Backend
// implementations. It tests the interface contract, not implementation
// details, making it reusable across backends (memory, localfs, badgerfs,
// s3, etc.).
//
// Usage:
//
//	func TestMemoryBackend(t *testing.T) {
//	    suite := &testing.BackendTestSuite{
//	        NewBackend: func(t *testing.T) storage.Backend {
//	            return memory.New(memory.Config{})
//	        },
//	    }
//	    suite.Run(t)
//	}
type BackendTestSuite struct {
	// NewBackend is a factory returning a fresh, un-initialized backend for
	// each test. The suite calls Init and Close itself. Returning a fresh
	// instance per test ensures isolation.
	NewBackend func(t *testing.T) storage.Backend
}

// Run executes all tests in the suite.
func (suite *BackendTestSuite) Run(t *testing.T) {
	t.Run("Directories", suite.RunDirectoryTests)
	t.Run("Files", suite.RunFileTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

// openBackend initializes a fresh backend and registers its cleanup.
func (suite *BackendTestSuite) openBackend(t *testing.T) storage.Backend {
	t.Helper()

	backend := suite.NewBackend(t)
	require.NoError(t, backend.Init(testContext()))
	t.Cleanup(func() {
		require.NoError(t, backend.Close())
	})
	return backend
}

// requireCode asserts that err is a StoreError with the given code and a
// non-empty message.
func requireCode(t *testing.T, code storage.ErrorCode, err error) {
	t.Helper()

	require.Error(t, err)
	se, ok := err.(*storage.StoreError)
	require.True(t, ok, "expected *storage.StoreError, got %T: %v", err, err)
	require.Equal(t, code, se.Code, "unexpected error code (message: %s)", se.Message)
	require.NotEmpty(t, se.Message)
}
