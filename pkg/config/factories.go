package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/datenlord/sdk-go/internal/logger"
	"github.com/datenlord/sdk-go/pkg/storage"
	"github.com/datenlord/sdk-go/pkg/storage/badgerfs"
	"github.com/datenlord/sdk-go/pkg/storage/localfs"
	"github.com/datenlord/sdk-go/pkg/storage/memory"
	storageS3 "github.com/datenlord/sdk-go/pkg/storage/s3"
)

// CreateBackend creates a storage backend based on configuration.
//
// This factory function uses the Type field to determine which backend
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the backend's constructor.
//
// Supported types:
//   - "localfs": local filesystem subtree (pkg/storage/localfs)
//   - "memory": in-memory namespace, ephemeral (pkg/storage/memory)
//   - "badgerfs": embedded persistent BadgerDB store (pkg/storage/badgerfs)
//   - "s3": Amazon S3 or compatible object storage (pkg/storage/s3)
//
// The returned backend is not yet initialized; the SDK client calls Init as
// part of session establishment.
//
// Parameters:
//   - ctx: Context for factory-time operations (AWS config resolution)
//   - cfg: Backend configuration
//
// Returns:
//   - storage.Backend: Constructed backend
//   - error: Configuration or construction error
func CreateBackend(ctx context.Context, cfg *StorageConfig) (storage.Backend, error) {
	switch cfg.Type {
	case "localfs":
		return createLocalfsBackend(cfg.Localfs)
	case "memory":
		return createMemoryBackend(cfg.Memory)
	case "badgerfs":
		return createBadgerfsBackend(cfg.Badgerfs)
	case "s3":
		return createS3Backend(ctx, cfg.S3)
	default:
		return nil, storage.Errorf(storage.ErrConfigError,
			"unknown storage backend type: %q (supported: localfs, memory, badgerfs, s3)", cfg.Type)
	}
}

// createLocalfsBackend creates a local filesystem backend.
func createLocalfsBackend(options map[string]any) (storage.Backend, error) {
	type LocalfsOptions struct {
		Root string `mapstructure:"root"`
	}

	var opts LocalfsOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, storage.Errorf(storage.ErrConfigError, "failed to decode localfs options: %v", err)
	}
	if opts.Root == "" {
		return nil, storage.Errorf(storage.ErrConfigError, "localfs backend: root is required")
	}

	return localfs.New(localfs.Config{Root: opts.Root})
}

// createMemoryBackend creates an in-memory backend.
func createMemoryBackend(options map[string]any) (storage.Backend, error) {
	type MemoryOptions struct {
		UID uint32 `mapstructure:"uid"`
		GID uint32 `mapstructure:"gid"`
	}

	var opts MemoryOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, storage.Errorf(storage.ErrConfigError, "failed to decode memory options: %v", err)
	}

	return memory.New(memory.Config{UID: opts.UID, GID: opts.GID}), nil
}

// createBadgerfsBackend creates an embedded BadgerDB backend.
func createBadgerfsBackend(options map[string]any) (storage.Backend, error) {
	type BadgerfsOptions struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
		UID      uint32 `mapstructure:"uid"`
		GID      uint32 `mapstructure:"gid"`
	}

	var opts BadgerfsOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, storage.Errorf(storage.ErrConfigError, "failed to decode badgerfs options: %v", err)
	}
	if opts.Path == "" && !opts.InMemory {
		return nil, storage.Errorf(storage.ErrConfigError, "badgerfs backend: path is required")
	}

	return badgerfs.New(badgerfs.Config{
		Path:     opts.Path,
		InMemory: opts.InMemory,
		UID:      opts.UID,
		GID:      opts.GID,
	})
}

// createS3Backend creates an S3-based backend.
func createS3Backend(ctx context.Context, options map[string]any) (storage.Backend, error) {
	type S3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
		UID             uint32 `mapstructure:"uid"`
		GID             uint32 `mapstructure:"gid"`
	}

	var opts S3Options
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, storage.Errorf(storage.ErrConfigError, "failed to decode s3 options: %v", err)
	}
	if opts.Bucket == "" {
		return nil, storage.Errorf(storage.ErrConfigError, "s3 backend: bucket is required")
	}
	if opts.Region == "" {
		return nil, storage.Errorf(storage.ErrConfigError, "s3 backend: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	// Custom endpoint for MinIO, Localstack, etc.
	if opts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain.
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries // Retry transient errors (502, 503, timeouts, etc.)
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, storage.Errorf(storage.ErrConfigError, "failed to load AWS config: %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for compatibility with MinIO/Localstack
		if opts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	backend, err := storageS3.New(storageS3.Config{
		Client:    client,
		Bucket:    opts.Bucket,
		KeyPrefix: opts.KeyPrefix,
		UID:       opts.UID,
		GID:       opts.GID,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("S3 backend configured: bucket=%s, region=%s, prefix=%s",
		opts.Bucket, opts.Region, opts.KeyPrefix)

	return backend, nil
}

// String returns a short description of the selected backend for logging.
func (c *StorageConfig) String() string {
	return fmt.Sprintf("storage{type=%s}", c.Type)
}
