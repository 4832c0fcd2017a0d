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
	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace/badger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace/memory"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/nodeset"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/snapshot"
)

// CreateStore creates an address space store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/addrspace/memory (in-memory storage, rebuilt on every start)
//   - "badger": Uses pkg/addrspace/badger (BadgerDB storage, persistent)
func CreateStore(ctx context.Context, cfg *AddressSpaceConfig) (addrspace.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryStore(ctx, cfg.Memory)
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown address space store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createMemoryStore creates an in-memory store.
func createMemoryStore(ctx context.Context, options map[string]any) (addrspace.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var storeCfg memory.Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory store options: %w", err)
	}
	if err := validate.Struct(storeCfg); err != nil {
		return nil, fmt.Errorf("memory store: %w", formatValidationError(err))
	}

	return memory.NewMemoryStore(storeCfg), nil
}

// createBadgerStore creates a BadgerDB-based persistent store.
func createBadgerStore(ctx context.Context, options map[string]any) (addrspace.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var storeCfg badger.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger store options: %w", err)
	}

	if err := validate.Struct(storeCfg); err != nil {
		return nil, fmt.Errorf("badger store: %w", formatValidationError(err))
	}

	store, err := badger.NewBadgerStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}

	logger.Info("Badger address space store opened: %s", storeCfg.DBPath)
	return store, nil
}

// CreateAddressSpace creates the configured store, wraps it in an address
// space and loads the configured model sets into it.
//
// The store is closed again if loading fails.
func CreateAddressSpace(ctx context.Context, cfg *Config) (*addrspace.AddressSpace, error) {
	store, err := CreateStore(ctx, &cfg.AddressSpace)
	if err != nil {
		return nil, err
	}

	as := addrspace.New(store)
	err = nodeset.Load(ctx, as, nodeset.LoadOptions{
		Sets:           cfg.AddressSpace.ModelSets,
		ApplicationURI: cfg.Engine.ApplicationURI,
	})
	if err != nil {
		_ = as.Close()
		return nil, fmt.Errorf("failed to load model sets: %w", err)
	}

	logger.Info("Address space ready: store=%s, model sets=%v", cfg.AddressSpace.Type, cfg.AddressSpace.ModelSets)
	return as, nil
}

// CreateSnapshotSink creates the sink the post-bootstrap snapshot is written to.
//
// Supported types:
//   - "filesystem": writes into a local directory
//   - "s3": uploads to Amazon S3 or compatible storage
func CreateSnapshotSink(ctx context.Context, cfg *SnapshotConfig) (snapshot.Sink, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemSink(ctx, cfg.Filesystem)
	case "s3":
		return createS3Sink(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown snapshot sink type: %q", cfg.Type)
	}
}

// createFilesystemSink creates a filesystem snapshot sink.
func createFilesystemSink(ctx context.Context, options map[string]any) (snapshot.Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type FilesystemSinkConfig struct {
		Path string `mapstructure:"path"`
	}

	var sinkCfg FilesystemSinkConfig
	if err := mapstructure.Decode(options, &sinkCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem snapshot config: %w", err)
	}

	if sinkCfg.Path == "" {
		return nil, fmt.Errorf("filesystem snapshot: path is required")
	}

	return snapshot.NewFilesystemSink(sinkCfg.Path)
}

// createS3Sink creates an S3 snapshot sink.
func createS3Sink(ctx context.Context, options map[string]any) (snapshot.Sink, error) {
	type S3SinkConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		ForcePathStyle  bool   `mapstructure:"force_path_style"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var sinkCfg S3SinkConfig
	if err := mapstructure.Decode(options, &sinkCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 snapshot config: %w", err)
	}

	if sinkCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 snapshot: bucket is required")
	}
	if sinkCfg.Region == "" {
		return nil, fmt.Errorf("S3 snapshot: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(sinkCfg.Region),
	}

	// Static credentials if provided, otherwise the default credential chain
	if sinkCfg.AccessKeyID != "" && sinkCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			sinkCfg.AccessKeyID,
			sinkCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := sinkCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if sinkCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(sinkCfg.Endpoint)
			o.UsePathStyle = true
		}
		if sinkCfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Sink
	// ========================================================================

	sink, err := snapshot.NewS3Sink(ctx, snapshot.S3SinkConfig{
		Client:    client,
		Bucket:    sinkCfg.Bucket,
		KeyPrefix: sinkCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 snapshot sink: %w", err)
	}

	logger.Info("S3 snapshot sink initialized: bucket=%s, region=%s, prefix=%s",
		sinkCfg.Bucket, sinkCfg.Region, sinkCfg.KeyPrefix)

	return sink, nil
}
