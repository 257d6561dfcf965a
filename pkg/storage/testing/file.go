package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datenlord/sdk-go/pkg/storage"
)

// RunFileTests executes all file operation tests.
func (suite *BackendTestSuite) RunFileTests(t *testing.T) {
	t.Run("CreateFile_Empty", suite.testCreateFileEmpty)
	t.Run("CreateFile_AlreadyExists", suite.testCreateFileAlreadyExists)
	t.Run("WriteRead_RoundTrip", suite.testWriteReadRoundTrip)
	t.Run("WriteRead_BinaryContent", suite.testWriteReadBinaryContent)
	t.Run("Write_Overwrite", suite.testWriteOverwrite)
	t.Run("Write_ParentMissing", suite.testWriteParentMissing)
	t.Run("Write_BorrowedBuffer", suite.testWriteBorrowedBuffer)
	t.Run("Read_NotFound", suite.testReadNotFound)
	t.Run("Stat_NotFound", suite.testStatNotFound)
	t.Run("Stat_SizeTracksWrites", suite.testStatSizeTracksWrites)
}

func (suite *BackendTestSuite) testCreateFileEmpty(t *testing.T) {
	backend := suite.openBackend(t)

	require.NoError(t, backend.CreateFile(testContext(), "/empty.txt"))
	assert.True(t, backend.Exists(testContext(), "/empty.txt"))

	stat, err := backend.Stat(testContext(), "/empty.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stat.Size)

	data, err := backend.ReadFile(testContext(), "/empty.txt")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func (suite *BackendTestSuite) testCreateFileAlreadyExists(t *testing.T) {
	backend := suite.openBackend(t)

	require.NoError(t, backend.CreateFile(testContext(), "/file.txt"))
	requireCode(t, storage.ErrAlreadyExists, backend.CreateFile(testContext(), "/file.txt"))
}

func (suite *BackendTestSuite) testWriteReadRoundTrip(t *testing.T) {
	backend := suite.openBackend(t)

	content := []byte("Hello, DatenLord!")
	require.NoError(t, backend.WriteFile(testContext(), "/greeting.txt", content))
	assert.True(t, backend.Exists(testContext(), "/greeting.txt"))

	data, err := backend.ReadFile(testContext(), "/greeting.txt")
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func (suite *BackendTestSuite) testWriteReadBinaryContent(t *testing.T) {
	backend := suite.openBackend(t)

	// Embedded NUL bytes must survive the round trip byte for byte.
	content := []byte{0x00, 0xFF, 0x00, 0x42, 0x00, 0x00, 0x7F}
	require.NoError(t, backend.WriteFile(testContext(), "/blob.bin", content))

	data, err := backend.ReadFile(testContext(), "/blob.bin")
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func (suite *BackendTestSuite) testWriteOverwrite(t *testing.T) {
	backend := suite.openBackend(t)

	require.NoError(t, backend.WriteFile(testContext(), "/file.txt", []byte("first version")))
	require.NoError(t, backend.WriteFile(testContext(), "/file.txt", []byte("second")))

	data, err := backend.ReadFile(testContext(), "/file.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	stat, err := backend.Stat(testContext(), "/file.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(len("second")), stat.Size)
}

func (suite *BackendTestSuite) testWriteParentMissing(t *testing.T) {
	backend := suite.openBackend(t)

	requireCode(t, storage.ErrNotFound, backend.WriteFile(testContext(), "/missing/file.txt", []byte("x")))
}

func (suite *BackendTestSuite) testWriteBorrowedBuffer(t *testing.T) {
	backend := suite.openBackend(t)

	// The write buffer is borrowed: mutating it after the call must not
	// affect stored content.
	content := []byte("immutable once written")
	require.NoError(t, backend.WriteFile(testContext(), "/file.txt", content))

	for i := range content {
		content[i] = 'X'
	}

	data, err := backend.ReadFile(testContext(), "/file.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable once written"), data)
}

func (suite *BackendTestSuite) testReadNotFound(t *testing.T) {
	backend := suite.openBackend(t)

	_, err := backend.ReadFile(testContext(), "/missing.txt")
	requireCode(t, storage.ErrNotFound, err)
}

func (suite *BackendTestSuite) testStatNotFound(t *testing.T) {
	backend := suite.openBackend(t)

	_, err := backend.Stat(testContext(), "/missing.txt")
	requireCode(t, storage.ErrNotFound, err)
}

func (suite *BackendTestSuite) testStatSizeTracksWrites(t *testing.T) {
	backend := suite.openBackend(t)

	require.NoError(t, backend.CreateFile(testContext(), "/grow.txt"))

	empty, err := backend.Stat(testContext(), "/grow.txt")
	require.NoError(t, err)
	require.Equal(t, uint64(0), empty.Size)

	payload := make([]byte, 4000)
	require.NoError(t, backend.WriteFile(testContext(), "/grow.txt", payload))

	grown, err := backend.Stat(testContext(), "/grow.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(len(payload)), grown.Size)

	// Block counts are backend-defined; assert only monotonic non-decrease.
	assert.GreaterOrEqual(t, grown.Blocks, empty.Blocks)
	assert.NotZero(t, grown.Nlink)
}
