package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/datenlord/sdk-go/pkg/storage"
)

// Config represents the complete SDK configuration.
//
// The SDK is initialized from a single opaque configuration string (the
// `config` argument of init at the foreign boundary). The string is YAML,
// either inline or a path to a YAML file (see Load). It captures:
//   - Logging configuration
//   - Client-wide settings (operation timeout extension)
//   - Backend selection and backend-specific configuration
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DATENLORD_*, scalar settings only)
//  2. The configuration string/file
//  3. Default values
//
// Backend Configuration Pattern:
// Each backend defines its own configuration type and factory function. The
// Config struct contains type-specific sections (e.g. storage.localfs,
// storage.s3) and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Client contains client-wide settings
	Client ClientConfig `mapstructure:"client"`

	// Storage specifies the backend type and type-specific configuration
	Storage StorageConfig `mapstructure:"storage"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized
	// to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// ClientConfig contains client-wide settings.
type ClientConfig struct {
	// OperationTimeout bounds each SDK operation. Zero disables the bound
	// and preserves the original blocking contract: a hung backend hangs
	// the caller. Non-zero values are an SDK extension, not part of the
	// foreign binding contract.
	OperationTimeout time.Duration `mapstructure:"operation_timeout" validate:"gte=0"`
}

// StorageConfig specifies backend configuration.
//
// The Type field determines which backend implementation is used.
// Only the corresponding type-specific configuration section is used.
type StorageConfig struct {
	// Type specifies which backend implementation to use
	// Valid values: localfs, memory, badgerfs, s3
	Type string `mapstructure:"type" validate:"required,oneof=localfs memory badgerfs s3"`

	// Localfs contains local-filesystem-specific configuration
	// Only used when Type = "localfs"
	Localfs map[string]any `mapstructure:"localfs"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badgerfs contains BadgerDB-specific configuration
	// Only used when Type = "badgerfs"
	Badgerfs map[string]any `mapstructure:"badgerfs"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// Load parses the opaque configuration string into a validated Config.
//
// The string is interpreted as follows:
//   - "@/path/to/config.yaml": the named file is read as YAML
//   - a bare string naming an existing file: the file is read as YAML
//   - anything else: the string itself is parsed as inline YAML (the empty
//     string yields an all-defaults configuration)
//
// Environment variables with the DATENLORD_ prefix override the scalar
// settings (logging.level, client.operation_timeout, storage.type), e.g.
// DATENLORD_LOGGING_LEVEL=DEBUG. Backend option maps come from the YAML
// source only.
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: *storage.StoreError with ErrConfigError on parse or validation
//     failure
func Load(configStr string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DATENLORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper has already seen, so the scalar
	// schema keys are bound explicitly; otherwise an override for a key
	// absent from the YAML source would be ignored.
	for _, key := range []string{"logging.level", "client.operation_timeout", "storage.type"} {
		_ = v.BindEnv(key)
	}

	source, err := resolveSource(configStr)
	if err != nil {
		return nil, err
	}

	if err := v.ReadConfig(strings.NewReader(source)); err != nil {
		return nil, storage.Errorf(storage.ErrConfigError, "failed to parse configuration: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, storage.Errorf(storage.ErrConfigError, "failed to unmarshal configuration: %v", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, storage.Errorf(storage.ErrConfigError, "configuration validation failed: %v", err)
	}

	return &cfg, nil
}

// resolveSource returns the YAML text for a configuration string, reading a
// file when the string names one.
func resolveSource(configStr string) (string, error) {
	trimmed := strings.TrimSpace(configStr)

	if path, ok := strings.CutPrefix(trimmed, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", storage.Errorf(storage.ErrConfigError, "failed to read config file %s: %v", path, err)
		}
		return string(data), nil
	}

	// Inline YAML always contains ':' or a newline; a plain token is only
	// plausible as a file path.
	if !strings.ContainsAny(trimmed, ":\n") && trimmed != "" {
		if data, err := os.ReadFile(trimmed); err == nil {
			return string(data), nil
		}
	}

	return configStr, nil
}

// Dump renders the effective configuration as YAML, primarily for debug
// logging after defaults are applied. Credential-like keys are redacted.
func Dump(cfg *Config) (string, error) {
	out, err := yaml.Marshal(dumpView(cfg))
	if err != nil {
		return "", fmt.Errorf("failed to render configuration: %w", err)
	}
	return string(out), nil
}

// dumpView strips backend option maps for unselected backends so the dump
// only shows what is actually in effect.
func dumpView(cfg *Config) map[string]any {
	view := map[string]any{
		"logging": map[string]any{"level": cfg.Logging.Level},
		"client":  map[string]any{"operation_timeout": cfg.Client.OperationTimeout.String()},
	}

	st := map[string]any{"type": cfg.Storage.Type}
	switch cfg.Storage.Type {
	case "localfs":
		st["localfs"] = cfg.Storage.Localfs
	case "memory":
		st["memory"] = cfg.Storage.Memory
	case "badgerfs":
		st["badgerfs"] = cfg.Storage.Badgerfs
	case "s3":
		st["s3"] = redactMap(cfg.Storage.S3)
	}
	view["storage"] = st
	return view
}

// redactMap hides credential-like keys from dumped configuration.
func redactMap(options map[string]any) map[string]any {
	if options == nil {
		return nil
	}
	out := make(map[string]any, len(options))
	for k, v := range options {
		if strings.Contains(k, "secret") || strings.Contains(k, "access_key") {
			out[k] = "<redacted>"
			continue
		}
		out[k] = v
	}
	return out
}
