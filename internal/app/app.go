// Package app builds the uploader's components from command line configuration. Both
// binaries share it so the server and the client sign and submit identically.
package app

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/permaweb-uploader-go/internal/aws"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/clients/gateway"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/config"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/keystore"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/persistence"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/persistence/badger"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/persistence/memory"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/persistence/redis"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transaction"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transactionSigner"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploader"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// ConfigFromCLI starts from the defaults, or from --config when given, and applies every
// flag or environment variable that was explicitly set.
func ConfigFromCLI(c *cli.Context) (*config.UploaderServerConfig, error) {
	cfg := config.NewDefaultConfig()
	if path := c.String("config"); path != "" {
		fileCfg, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setInt := func(name string, dst *int) {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}

	setInt("port", &cfg.Port)

	setString("gateway-host", &cfg.Gateway.Host)
	setInt("gateway-port", &cfg.Gateway.Port)
	setString("gateway-protocol", &cfg.Gateway.Protocol)
	if c.IsSet("gateway-timeout") {
		cfg.Gateway.Timeout = c.Duration("gateway-timeout")
	}

	setString("wallet-path", &cfg.Wallet.Path)
	setString("wallet-jwk", &cfg.Wallet.JWK)
	setString("wallet-kms-file", &cfg.Wallet.KMSFile)
	setString("wallet-kms-key-id", &cfg.Wallet.KMSKeyID)
	setString("aws-region", &cfg.Wallet.AWSRegion)

	if c.IsSet("persistence-type") {
		cfg.Persistence.Type = config.PersistenceType(c.String("persistence-type"))
	}
	setString("badger-path", &cfg.Persistence.BadgerPath)
	setString("redis-address", &cfg.Persistence.RedisAddress)
	setString("redis-password", &cfg.Persistence.RedisPassword)
	setInt("redis-db", &cfg.Persistence.RedisDB)

	if c.IsSet("max-upload-bytes") {
		cfg.MaxUploadBytes = c.Int64("max-upload-bytes")
	}
	if c.IsSet("rate-limit") {
		cfg.RateLimit = c.Float64("rate-limit")
	}
	setInt("rate-burst", &cfg.RateBurst)
	if c.IsSet("verify-uploads") {
		cfg.VerifyUploads = c.Bool("verify-uploads")
	}
	setString("app-name", &cfg.AppName)
	setString("app-version", &cfg.AppVersion)

	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
		cfg.Debug = cfg.Verbose
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultTags are the tags the builder appends to every transaction
func DefaultTags(cfg *config.UploaderServerConfig) types.Tags {
	var tags types.Tags
	if cfg.AppName != "" {
		tags = append(tags, types.Tag{Name: "App-Name", Value: cfg.AppName})
	}
	if cfg.AppVersion != "" {
		tags = append(tags, types.Tag{Name: "App-Version", Value: cfg.AppVersion})
	}
	return tags
}

// NewKeyStore returns a caching key store for the configured wallet. A KMS-encrypted
// wallet gets an AWS KMS decrypter; nothing is read until the first Load.
func NewKeyStore(ctx context.Context, wc *config.WalletConfig, logger *zap.Logger) (*keystore.KeyStore, error) {
	var decrypter keystore.Decrypter
	if wc.Path == "" && wc.JWK == "" && wc.KMSFile != "" {
		awsCfg, err := aws.LoadAWSConfig(ctx, wc.AWSRegion)
		if err != nil {
			return nil, err
		}
		if arn, err := aws.GetCallerIdentity(ctx, awsCfg); err != nil {
			logger.Sugar().Warnw("Could not resolve AWS caller identity", "error", err)
		} else {
			logger.Sugar().Infow("Using AWS identity for wallet decryption", "arn", arn, "region", awsCfg.Region)
		}
		decrypter = aws.NewKMSDecrypter(awsCfg, wc.KMSKeyID, logger)
	}

	source, err := keystore.NewSourceFromConfig(wc, decrypter)
	if err != nil {
		// No source configured; every load reports the configuration error
		logger.Sugar().Warnw("No wallet key configured; uploads will fail until one is provided")
		return keystore.NewKeyStore(&keystore.InlineSource{}, false, logger), nil
	}
	logger.Sugar().Infow("Wallet key source configured", "source", source.Describe())
	return keystore.NewKeyStore(source, true, logger), nil
}

// NewReceiptStore opens the configured receipt backend
func NewReceiptStore(pc *config.PersistenceConfig, logger *zap.Logger) (persistence.IReceiptPersistence, error) {
	switch pc.Type {
	case config.PersistenceTypeMemory, "":
		return memory.NewMemoryPersistence(logger), nil
	case config.PersistenceTypeBadger:
		bp, err := badger.NewBadgerPersistence(pc.BadgerPath, logger)
		if err != nil {
			return nil, err
		}
		return bp, nil
	case config.PersistenceTypeRedis:
		rp, err := redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   pc.RedisAddress,
			Password:  pc.RedisPassword,
			DB:        pc.RedisDB,
			KeyPrefix: pc.RedisKeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return rp, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type %q", pc.Type)
	}
}

// An upload makes up to three sequential gateway round trips: price and anchor in
// parallel, the submission, then the optional read-back.
const uploadTimeoutFactor = 3

// Components is everything an upload needs, built once per process
type Components struct {
	Config   *config.UploaderServerConfig
	Gateway  *gateway.Client
	Keys     *keystore.KeyStore
	Receipts persistence.IReceiptPersistence
	Uploader *uploader.Uploader
}

// Close releases the receipt store
func (c *Components) Close() error {
	if c.Receipts == nil {
		return nil
	}
	return c.Receipts.Close()
}

// NewComponents builds the gateway client, key store, receipt store and pipeline
func NewComponents(ctx context.Context, cfg *config.UploaderServerConfig, logger *zap.Logger) (*Components, error) {
	gw, err := gateway.NewClientFromConfig(&cfg.Gateway, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway client: %w", err)
	}

	keys, err := NewKeyStore(ctx, &cfg.Wallet, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure wallet: %w", err)
	}

	receipts, err := NewReceiptStore(&cfg.Persistence, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt store: %w", err)
	}

	builder := transaction.NewBuilder(gw, &transaction.BuilderConfig{DefaultTags: DefaultTags(cfg)}, logger)
	up := uploader.NewUploader(
		builder,
		transactionSigner.NewKeyStoreSigner(keys, logger),
		gw,
		receipts,
		&uploader.Config{Timeout: uploadTimeoutFactor * cfg.Gateway.Timeout, VerifyUploads: cfg.VerifyUploads},
		logger,
	)

	return &Components{
		Config:   cfg,
		Gateway:  gw,
		Keys:     keys,
		Receipts: receipts,
		Uploader: up,
	}, nil
}
