package app

import (
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/config"
	"github.com/urfave/cli/v2"
)

// GatewayFlags select the gateway node
func GatewayFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "gateway-host",
			Usage:   "Gateway host name",
			Value:   config.DefaultGatewayHost,
			EnvVars: []string{config.EnvUploaderGatewayHost},
		},
		&cli.IntFlag{
			Name:    "gateway-port",
			Usage:   "Gateway port",
			Value:   config.DefaultGatewayPort,
			EnvVars: []string{config.EnvUploaderGatewayPort},
		},
		&cli.StringFlag{
			Name:    "gateway-protocol",
			Usage:   "Gateway protocol (http or https)",
			Value:   config.DefaultGatewayProtocol,
			EnvVars: []string{config.EnvUploaderGatewayProtocol},
		},
		&cli.DurationFlag{
			Name:    "gateway-timeout",
			Usage:   "Timeout for each gateway request",
			Value:   config.DefaultGatewayTimeout,
			EnvVars: []string{config.EnvUploaderGatewayTimeout},
		},
	}
}

// WalletFlags select where the RSA JWK comes from
func WalletFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "wallet-path",
			Aliases: []string{"wallet"},
			Usage:   "Path to the wallet JWK file",
			EnvVars: []string{config.EnvUploaderWalletPath},
		},
		&cli.StringFlag{
			Name:    "wallet-jwk",
			Usage:   "Wallet JWK document",
			EnvVars: []string{config.EnvUploaderWalletJWK},
		},
		&cli.StringFlag{
			Name:    "wallet-kms-file",
			Usage:   "Path to a wallet JWK encrypted with AWS KMS",
			EnvVars: []string{config.EnvUploaderWalletKMSFile},
		},
		&cli.StringFlag{
			Name:    "wallet-kms-key-id",
			Usage:   "KMS key id or ARN for the encrypted wallet (optional for symmetric keys)",
			EnvVars: []string{config.EnvUploaderWalletKMSKeyID},
		},
		&cli.StringFlag{
			Name:    "aws-region",
			Usage:   "AWS region of the KMS key",
			EnvVars: []string{config.EnvUploaderAWSRegion},
		},
	}
}

// PersistenceFlags select the receipt store
func PersistenceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "persistence-type",
			Usage:   "Receipt store: memory, badger or redis",
			Value:   string(config.PersistenceTypeMemory),
			EnvVars: []string{config.EnvUploaderPersistenceType},
		},
		&cli.StringFlag{
			Name:    "badger-path",
			Usage:   "Data directory for the badger receipt store",
			EnvVars: []string{config.EnvUploaderBadgerPath},
		},
		&cli.StringFlag{
			Name:    "redis-address",
			Usage:   "Redis address (host:port) for the redis receipt store",
			EnvVars: []string{config.EnvUploaderRedisAddress},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			EnvVars: []string{config.EnvUploaderRedisPassword},
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number",
			EnvVars: []string{config.EnvUploaderRedisDB},
		},
	}
}

// UploadFlags shape every upload
func UploadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:    "max-upload-bytes",
			Usage:   "Largest accepted payload",
			Value:   config.DefaultMaxUploadBytes,
			EnvVars: []string{config.EnvUploaderMaxUploadBytes},
		},
		&cli.BoolFlag{
			Name:    "verify-uploads",
			Usage:   "Read data back from the gateway after it accepts a transaction",
			EnvVars: []string{config.EnvUploaderVerifyUploads},
		},
		&cli.StringFlag{
			Name:    "app-name",
			Usage:   "Value of the App-Name tag added to every transaction",
			Value:   config.DefaultAppName,
			EnvVars: []string{config.EnvUploaderAppName},
		},
		&cli.StringFlag{
			Name:    "app-version",
			Usage:   "Value of the App-Version tag added to every transaction",
			EnvVars: []string{config.EnvUploaderAppVersion},
		},
	}
}

// CommonFlags are shared by every binary
func CommonFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "YAML config file; flags and environment variables override it",
			EnvVars: []string{config.EnvUploaderConfigFile},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Enable verbose logging",
			EnvVars: []string{config.EnvUploaderVerbose},
		},
	}
	flags = append(flags, GatewayFlags()...)
	flags = append(flags, WalletFlags()...)
	flags = append(flags, PersistenceFlags()...)
	return append(flags, UploadFlags()...)
}
