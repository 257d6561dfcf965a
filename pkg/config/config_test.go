package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datenlord/sdk-go/pkg/storage"
)

func TestLoad_EmptyStringUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "localfs", cfg.Storage.Type)
	assert.Equal(t, "/tmp/datenlord-sdk", cfg.Storage.Localfs["root"])
	assert.Equal(t, time.Duration(0), cfg.Client.OperationTimeout)
}

func TestLoad_InlineYAML(t *testing.T) {
	cfg, err := Load(`
logging:
  level: debug
client:
  operation_timeout: 5s
storage:
  type: memory
  memory:
    uid: 1000
    gid: 1000
`)
	require.NoError(t, err)

	// Level is normalized to uppercase
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, 5*time.Second, cfg.Client.OperationTimeout)
	assert.Equal(t, "memory", cfg.Storage.Type)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("storage:\n  type: memory\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Run("at prefix", func(t *testing.T) {
		cfg, err := Load("@" + path)
		require.NoError(t, err)
		assert.Equal(t, "memory", cfg.Storage.Type)
	})

	t.Run("bare path", func(t *testing.T) {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "memory", cfg.Storage.Type)
	})
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load("@/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load("storage: [unclosed")
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	_, err := Load("logging:\n  level: verbose\n")
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

func TestLoad_InvalidBackendType(t *testing.T) {
	_, err := Load("storage:\n  type: carrier-pigeon\n")
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

func TestLoad_MismatchedBackendSection(t *testing.T) {
	// A populated section for an unselected backend is almost always a typo
	// in storage.type, so it is rejected rather than silently ignored.
	_, err := Load(`
storage:
  type: memory
  s3:
    bucket: data
`)
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

func TestLoad_NegativeTimeout(t *testing.T) {
	_, err := Load("client:\n  operation_timeout: -3s\n")
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("DATENLORD_LOGGING_LEVEL", "ERROR")

	cfg, err := Load("logging:\n  level: INFO\n")
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

// The override must also apply when the YAML source never mentions the key.
func TestLoad_EnvironmentOverrideAbsentKey(t *testing.T) {
	t.Setenv("DATENLORD_LOGGING_LEVEL", "DEBUG")

	cfg, err := Load("storage:\n  type: memory\n")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestDump_RedactsCredentials(t *testing.T) {
	cfg, err := Load(`
storage:
  type: s3
  s3:
    region: us-east-1
    bucket: data
    access_key_id: AKIAEXAMPLE
    secret_access_key: hunter2
`)
	require.NoError(t, err)

	out, err := Dump(cfg)
	require.NoError(t, err)

	assert.Contains(t, out, "bucket: data")
	assert.Contains(t, out, "<redacted>")
	assert.NotContains(t, out, "AKIAEXAMPLE")
	assert.NotContains(t, out, "hunter2")
}

func TestCreateBackend_Memory(t *testing.T) {
	cfg, err := Load("storage:\n  type: memory\n")
	require.NoError(t, err)

	backend, err := CreateBackend(context.Background(), &cfg.Storage)
	require.NoError(t, err)
	require.NotNil(t, backend)

	ctx := context.Background()
	require.NoError(t, backend.Init(ctx))
	defer backend.Close()

	assert.True(t, backend.Exists(ctx, "/"))
}

func TestCreateBackend_Localfs(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load("storage:\n  type: localfs\n  localfs:\n    root: " + root + "\n")
	require.NoError(t, err)

	backend, err := CreateBackend(context.Background(), &cfg.Storage)
	require.NoError(t, err)
	require.NotNil(t, backend)
	require.NoError(t, backend.Close())
}

func TestCreateBackend_BadgerfsRequiresPath(t *testing.T) {
	storageCfg := &StorageConfig{Type: "badgerfs", Badgerfs: map[string]any{}}

	_, err := CreateBackend(context.Background(), storageCfg)
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

func TestCreateBackend_S3RequiresBucket(t *testing.T) {
	storageCfg := &StorageConfig{Type: "s3", S3: map[string]any{"region": "us-east-1"}}

	_, err := CreateBackend(context.Background(), storageCfg)
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}

func TestCreateBackend_UnknownType(t *testing.T) {
	storageCfg := &StorageConfig{Type: "punch-cards"}

	_, err := CreateBackend(context.Background(), storageCfg)
	require.Error(t, err)
	assert.Equal(t, storage.ErrConfigError, storage.CodeOf(err))
}
