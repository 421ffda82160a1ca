package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/config"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/testutil"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// runWithFlags parses args with the common flags and returns the resulting config
func runWithFlags(t *testing.T, args ...string) (*config.UploaderServerConfig, error) {
	t.Helper()
	var (
		cfg    *config.UploaderServerConfig
		cfgErr error
	)
	cliApp := &cli.App{
		Name: "test",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "port", Value: config.DefaultPort},
			&cli.Float64Flag{Name: "rate-limit"},
			&cli.IntFlag{Name: "rate-burst", Value: config.DefaultRateBurst},
		}, CommonFlags()...),
		Action: func(c *cli.Context) error {
			cfg, cfgErr = ConfigFromCLI(c)
			return nil
		},
	}
	require.NoError(t, cliApp.Run(append([]string{"test"}, args...)))
	return cfg, cfgErr
}

func TestConfigFromCLI_Defaults(t *testing.T) {
	cfg, err := runWithFlags(t)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultPort, cfg.Port)
	assert.Equal(t, "https://arweave.net", cfg.Gateway.BaseURL())
	assert.Equal(t, config.DefaultGatewayTimeout, cfg.Gateway.Timeout)
	assert.Equal(t, config.PersistenceTypeMemory, cfg.Persistence.Type)
	assert.Equal(t, int64(config.DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Equal(t, config.DefaultAppName, cfg.AppName)
	assert.False(t, cfg.Wallet.HasSource())
}

func TestConfigFromCLI_Flags(t *testing.T) {
	cfg, err := runWithFlags(t,
		"--port", "9090",
		"--gateway-host", "localhost",
		"--gateway-port", "1984",
		"--gateway-protocol", "http",
		"--gateway-timeout", "5s",
		"--wallet-path", "/keys/wallet.json",
		"--rate-limit", "2.5",
		"--verify-uploads",
		"--app-version", "1.2.3",
		"--verbose",
	)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "http://localhost:1984", cfg.Gateway.BaseURL())
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "/keys/wallet.json", cfg.Wallet.Path)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.True(t, cfg.VerifyUploads)
	assert.Equal(t, "1.2.3", cfg.AppVersion)
	assert.True(t, cfg.Debug)
}

func TestConfigFromCLI_EnvVars(t *testing.T) {
	t.Setenv(config.EnvUploaderGatewayHost, "gateway.example")
	t.Setenv(config.EnvUploaderPersistenceType, "badger")
	t.Setenv(config.EnvUploaderBadgerPath, "/data/receipts")

	cfg, err := runWithFlags(t)
	require.NoError(t, err)
	assert.Equal(t, "gateway.example", cfg.Gateway.Host)
	assert.Equal(t, config.PersistenceTypeBadger, cfg.Persistence.Type)
	assert.Equal(t, "/data/receipts", cfg.Persistence.BadgerPath)
}

func TestConfigFromCLI_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uploader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 7000
gateway:
  host: file.example
  protocol: http
  port: 8000
appName: from-file
`), 0o600))

	cfg, err := runWithFlags(t, "--config", path, "--gateway-host", "flag.example")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "flag.example", cfg.Gateway.Host)
	assert.Equal(t, 8000, cfg.Gateway.Port)
	assert.Equal(t, config.DefaultGatewayTimeout, cfg.Gateway.Timeout)
	assert.Equal(t, "from-file", cfg.AppName)
}

func TestConfigFromCLI_Invalid(t *testing.T) {
	_, err := runWithFlags(t, "--gateway-protocol", "ftp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.protocol")

	_, err = runWithFlags(t, "--persistence-type", "badger")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "badgerPath")

	_, err = runWithFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefaultTags(t *testing.T) {
	cfg := config.NewDefaultConfig()
	assert.Equal(t, types.Tags{{Name: "App-Name", Value: config.DefaultAppName}}, DefaultTags(cfg))

	cfg.AppVersion = "2.0.0"
	assert.Equal(t, types.Tags{
		{Name: "App-Name", Value: config.DefaultAppName},
		{Name: "App-Version", Value: "2.0.0"},
	}, DefaultTags(cfg))

	cfg.AppName = ""
	cfg.AppVersion = ""
	assert.Empty(t, DefaultTags(cfg))
}

func TestNewKeyStore(t *testing.T) {
	jwk, key := testutil.NewTestJWK(t)

	ks, err := NewKeyStore(context.Background(), &config.WalletConfig{JWK: string(jwk)}, zap.NewNop())
	require.NoError(t, err)
	loaded, err := ks.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.RSA().N.Cmp(key.N))
}

func TestNewKeyStore_NoSource(t *testing.T) {
	ks, err := NewKeyStore(context.Background(), &config.WalletConfig{}, zap.NewNop())
	require.NoError(t, err)

	_, err = ks.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, uploadErrors.KindConfiguration, uploadErrors.KindOf(err))
}

func TestNewReceiptStore(t *testing.T) {
	mem, err := NewReceiptStore(&config.PersistenceConfig{Type: config.PersistenceTypeMemory}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, mem.HealthCheck())
	require.NoError(t, mem.Close())

	bp, err := NewReceiptStore(&config.PersistenceConfig{Type: config.PersistenceTypeBadger, BadgerPath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, bp.HealthCheck())
	require.NoError(t, bp.Close())

	_, err = NewReceiptStore(&config.PersistenceConfig{Type: "sqlite"}, zap.NewNop())
	require.Error(t, err)
}

func TestNewComponents_UploadAgainstFakeGateway(t *testing.T) {
	fg := testutil.NewFakeGateway(t)
	jwk, _ := testutil.NewTestJWK(t)

	cfg := config.NewDefaultConfig()
	cfg.Gateway = gatewayConfigFor(t, fg.URL)
	cfg.Wallet.JWK = string(jwk)
	cfg.AppVersion = "test"
	cfg.VerifyUploads = true
	require.NoError(t, cfg.Validate())

	components, err := NewComponents(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = components.Close() }()

	result, err := components.Uploader.Upload(context.Background(), uploaderRequest("Hello Arweave!"))
	require.NoError(t, err)
	assert.True(t, result.Receipt.Verified)

	tags := result.Transaction.Tags()
	v, ok := tags.Get("App-Version")
	assert.True(t, ok)
	assert.Equal(t, "test", v)

	receipts, err := components.Uploader.Receipts(0)
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
}
