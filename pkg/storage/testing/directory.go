package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datenlord/sdk-go/pkg/storage"
)

// RunDirectoryTests executes all directory operation tests.
func (suite *BackendTestSuite) RunDirectoryTests(t *testing.T) {
	t.Run("Exists_NeverCreated", suite.testExistsNeverCreated)
	t.Run("Exists_AfterMkDir", suite.testExistsAfterMkDir)
	t.Run("MkDir_AlreadyExists", suite.testMkDirAlreadyExists)
	t.Run("MkDir_ParentMissing", suite.testMkDirParentMissing)
	t.Run("RemoveDir_NotFound", suite.testRemoveDirNotFound)
	t.Run("RemoveDir_NotEmpty", suite.testRemoveDirNotEmpty)
	t.Run("RemoveDir_Recursive", suite.testRemoveDirRecursive)
	t.Run("Rename_Directory", suite.testRenameDirectory)
	t.Run("Rename_SourceMissing", suite.testRenameSourceMissing)
	t.Run("Rename_DestinationExists", suite.testRenameDestinationExists)
	t.Run("Rename_IntoOwnSubtree", suite.testRenameIntoOwnSubtree)
}

func (suite *BackendTestSuite) testExistsNeverCreated(t *testing.T) {
	backend := suite.openBackend(t)

	assert.False(t, backend.Exists(testContext(), "/never/created"))
	assert.False(t, backend.Exists(testContext(), "/ghost"))
}

func (suite *BackendTestSuite) testExistsAfterMkDir(t *testing.T) {
	backend := suite.openBackend(t)

	require.False(t, backend.Exists(testContext(), "/data"))
	require.NoError(t, backend.MkDir(testContext(), "/data"))
	assert.True(t, backend.Exists(testContext(), "/data"))
}

func (suite *BackendTestSuite) testMkDirAlreadyExists(t *testing.T) {
	backend := suite.openBackend(t)

	require.NoError(t, backend.MkDir(testContext(), "/data"))
	requireCode(t, storage.ErrAlreadyExists, backend.MkDir(testContext(), "/data"))
}

func (suite *BackendTestSuite) testMkDirParentMissing(t *testing.T) {
	backend := suite.openBackend(t)

	requireCode(t, storage.ErrNotFound, backend.MkDir(testContext(), "/missing/child"))
}

func (suite *BackendTestSuite) testRemoveDirNotFound(t *testing.T) {
	backend := suite.openBackend(t)

	requireCode(t, storage.ErrNotFound, backend.RemoveDir(testContext(), "/missing", false))
	requireCode(t, storage.ErrNotFound, backend.RemoveDir(testContext(), "/missing", true))
}

func (suite *BackendTestSuite) testRemoveDirNotEmpty(t *testing.T) {
	backend := suite.openBackend(t)

	require.NoError(t, backend.MkDir(testContext(), "/data"))
	require.NoError(t, backend.WriteFile(testContext(), "/data/file.txt", []byte("content")))

	requireCode(t, storage.ErrNotEmpty, backend.RemoveDir(testContext(), "/data", false))

	// The failed removal must leave the directory intact.
	assert.True(t, backend.Exists(testContext(), "/data"))
	assert.True(t, backend.Exists(testContext(), "/data/file.txt"))
}

func (suite *BackendTestSuite) testRemoveDirRecursive(t *testing.T) {
	backend := suite.openBackend(t)

	require.NoError(t, backend.MkDir(testContext(), "/data"))
	require.NoError(t, backend.MkDir(testContext(), "/data/nested"))
	require.NoError(t, backend.WriteFile(testContext(), "/data/file.txt", []byte("a")))
	require.NoError(t, backend.WriteFile(testContext(), "/data/nested/file.txt", []byte("b")))

	require.NoError(t, backend.RemoveDir(testContext(), "/data", true))

	assert.False(t, backend.Exists(testContext(), "/data"))
	assert.False(t, backend.Exists(testContext(), "/data/nested"))
	assert.False(t, backend.Exists(testContext(), "/data/file.txt"))
	assert.False(t, backend.Exists(testContext(), "/data/nested/file.txt"))
}

func (suite *BackendTestSuite) testRenameDirectory(t *testing.T) {
	backend := suite.openBackend(t)

	require.NoError(t, backend.MkDir(testContext(), "/old"))
	require.NoError(t, backend.WriteFile(testContext(), "/old/file.txt", []byte("payload")))

	require.NoError(t, backend.Rename(testContext(), "/old", "/new"))

	assert.False(t, backend.Exists(testContext(), "/old"))
	assert.True(t, backend.Exists(testContext(), "/new"))

	data, err := backend.ReadFile(testContext(), "/new/file.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func (suite *BackendTestSuite) testRenameSourceMissing(t *testing.T) {
	backend := suite.openBackend(t)

	requireCode(t, storage.ErrNotFound, backend.Rename(testContext(), "/missing", "/new"))
}

func (suite *BackendTestSuite) testRenameDestinationExists(t *testing.T) {
	backend := suite.openBackend(t)

	require.NoError(t, backend.MkDir(testContext(), "/old"))
	require.NoError(t, backend.MkDir(testContext(), "/new"))

	requireCode(t, storage.ErrAlreadyExists, backend.Rename(testContext(), "/old", "/new"))
}

// Moving a directory into its own subtree would detach the source from the
// namespace; it must be rejected, as rename(2) does with EINVAL.
func (suite *BackendTestSuite) testRenameIntoOwnSubtree(t *testing.T) {
	backend := suite.openBackend(t)

	require.NoError(t, backend.MkDir(testContext(), "/a"))
	require.NoError(t, backend.MkDir(testContext(), "/a/b"))
	require.NoError(t, backend.WriteFile(testContext(), "/a/f.txt", []byte("payload")))

	requireCode(t, storage.ErrInvalidArgument, backend.Rename(testContext(), "/a", "/a/b/c"))

	// The rejected rename must leave the tree intact.
	assert.True(t, backend.Exists(testContext(), "/a"))
	assert.True(t, backend.Exists(testContext(), "/a/b"))
	assert.True(t, backend.Exists(testContext(), "/a/f.txt"))
	assert.False(t, backend.Exists(testContext(), "/a/b/c"))
}
