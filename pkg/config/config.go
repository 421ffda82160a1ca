package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for uploader configuration
const (
	EnvUploaderPort            = "UPLOADER_PORT"
	EnvUploaderGatewayHost     = "UPLOADER_GATEWAY_HOST"
	EnvUploaderGatewayPort     = "UPLOADER_GATEWAY_PORT"
	EnvUploaderGatewayProtocol = "UPLOADER_GATEWAY_PROTOCOL"
	EnvUploaderGatewayTimeout  = "UPLOADER_GATEWAY_TIMEOUT"
	EnvUploaderWalletPath      = "UPLOADER_WALLET_PATH"
	EnvUploaderWalletJWK       = "UPLOADER_WALLET_JWK"
	EnvUploaderWalletKMSFile   = "UPLOADER_WALLET_KMS_FILE"
	EnvUploaderWalletKMSKeyID  = "UPLOADER_WALLET_KMS_KEY_ID"
	EnvUploaderAWSRegion       = "UPLOADER_AWS_REGION"
	EnvUploaderPersistenceType = "UPLOADER_PERSISTENCE_TYPE"
	EnvUploaderBadgerPath      = "UPLOADER_BADGER_PATH"
	EnvUploaderRedisAddress    = "UPLOADER_REDIS_ADDRESS"
	EnvUploaderRedisPassword   = "UPLOADER_REDIS_PASSWORD"
	EnvUploaderRedisDB         = "UPLOADER_REDIS_DB"
	EnvUploaderMaxUploadBytes  = "UPLOADER_MAX_UPLOAD_BYTES"
	EnvUploaderRateLimit       = "UPLOADER_RATE_LIMIT"
	EnvUploaderRateBurst       = "UPLOADER_RATE_BURST"
	EnvUploaderVerifyUploads   = "UPLOADER_VERIFY_UPLOADS"
	EnvUploaderAppName         = "UPLOADER_APP_NAME"
	EnvUploaderAppVersion      = "UPLOADER_APP_VERSION"
	EnvUploaderConfigFile      = "UPLOADER_CONFIG"
	EnvUploaderVerbose         = "UPLOADER_VERBOSE"
)

// Defaults
const (
	DefaultPort            = 8080
	DefaultGatewayHost     = "arweave.net"
	DefaultGatewayPort     = 443
	DefaultGatewayProtocol = "https"
	DefaultGatewayTimeout  = 20 * time.Second
	DefaultMaxUploadBytes  = 10 * 1024 * 1024
	DefaultAppName         = "permaweb-uploader"
	DefaultRateBurst       = 10
)

type PersistenceType string

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

// GatewayConfig identifies the single gateway node all network calls go to
type GatewayConfig struct {
	Host     string        `json:"host" yaml:"host" mapstructure:"host"`
	Port     int           `json:"port" yaml:"port" mapstructure:"port"`
	Protocol string        `json:"protocol" yaml:"protocol" mapstructure:"protocol"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// BaseURL renders protocol://host[:port], omitting the port when it is the protocol default.
func (gc *GatewayConfig) BaseURL() string {
	u := url.URL{Scheme: gc.Protocol, Host: gc.Host}
	if gc.Port != 0 && !isDefaultPort(gc.Protocol, gc.Port) {
		u.Host = fmt.Sprintf("%s:%d", gc.Host, gc.Port)
	}
	return u.String()
}

func isDefaultPort(protocol string, port int) bool {
	return (protocol == "https" && port == 443) || (protocol == "http" && port == 80)
}

func (gc *GatewayConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if gc.Host == "" {
		allErrors = append(allErrors, field.Required(path.Child("host"), "gateway host is required"))
	}
	if strings.Contains(gc.Host, "/") {
		allErrors = append(allErrors, field.Invalid(path.Child("host"), gc.Host, "host must not contain a scheme or path"))
	}
	if gc.Port < 1 || gc.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(path.Child("port"), gc.Port, "port must be between 1-65535"))
	}
	if gc.Protocol != "http" && gc.Protocol != "https" {
		allErrors = append(allErrors, field.NotSupported(path.Child("protocol"), gc.Protocol, []string{"http", "https"}))
	}
	if gc.Timeout <= 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("timeout"), gc.Timeout.String(), "timeout must be positive"))
	}
	return allErrors
}

// WalletConfig says where the RSA JWK comes from. Exactly one source is expected;
// Path wins over JWK, which wins over KMSFile.
type WalletConfig struct {
	Path      string `json:"path" yaml:"path" mapstructure:"path"`
	JWK       string `json:"-" yaml:"jwk" mapstructure:"jwk"`
	KMSFile   string `json:"kmsFile" yaml:"kmsFile" mapstructure:"kmsFile"`
	KMSKeyID  string `json:"kmsKeyId" yaml:"kmsKeyId" mapstructure:"kmsKeyId"`
	AWSRegion string `json:"awsRegion" yaml:"awsRegion" mapstructure:"awsRegion"`
}

// HasSource reports whether any key source is configured
func (wc *WalletConfig) HasSource() bool {
	return wc.Path != "" || wc.JWK != "" || wc.KMSFile != ""
}

type PersistenceConfig struct {
	Type           PersistenceType `json:"type" yaml:"type" mapstructure:"type"`
	BadgerPath     string          `json:"badgerPath" yaml:"badgerPath" mapstructure:"badgerPath"`
	RedisAddress   string          `json:"redisAddress" yaml:"redisAddress" mapstructure:"redisAddress"`
	RedisPassword  string          `json:"-" yaml:"redisPassword" mapstructure:"redisPassword"`
	RedisDB        int             `json:"redisDb" yaml:"redisDb" mapstructure:"redisDb"`
	RedisKeyPrefix string          `json:"redisKeyPrefix" yaml:"redisKeyPrefix" mapstructure:"redisKeyPrefix"`
}

func (pc *PersistenceConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch pc.Type {
	case PersistenceTypeMemory, "":
	case PersistenceTypeBadger:
		if pc.BadgerPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("badgerPath"), "badger persistence requires a data path"))
		}
	case PersistenceTypeRedis:
		if pc.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(path.Child("redisAddress"), "redis persistence requires an address"))
		}
		if pc.RedisDB < 0 || pc.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(path.Child("redisDb"), pc.RedisDB, "redis db must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), string(pc.Type),
			[]string{string(PersistenceTypeMemory), string(PersistenceTypeBadger), string(PersistenceTypeRedis)}))
	}
	return allErrors
}

// UploaderServerConfig represents the complete configuration for the upload server
type UploaderServerConfig struct {
	Port int `json:"port" yaml:"port" mapstructure:"port"`

	Gateway     GatewayConfig     `json:"gateway" yaml:"gateway" mapstructure:"gateway"`
	Wallet      WalletConfig      `json:"wallet" yaml:"wallet" mapstructure:"wallet"`
	Persistence PersistenceConfig `json:"persistence" yaml:"persistence" mapstructure:"persistence"`

	MaxUploadBytes int64   `json:"maxUploadBytes" yaml:"maxUploadBytes" mapstructure:"maxUploadBytes"`
	RateLimit      float64 `json:"rateLimit" yaml:"rateLimit" mapstructure:"rateLimit"` // uploads per second, 0 disables
	RateBurst      int     `json:"rateBurst" yaml:"rateBurst" mapstructure:"rateBurst"`
	VerifyUploads  bool    `json:"verifyUploads" yaml:"verifyUploads" mapstructure:"verifyUploads"`

	// Default tags attached to every transaction
	AppName    string `json:"appName" yaml:"appName" mapstructure:"appName"`
	AppVersion string `json:"appVersion" yaml:"appVersion" mapstructure:"appVersion"`

	Debug   bool `json:"debug" yaml:"debug" mapstructure:"debug"`
	Verbose bool `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
}

// NewDefaultConfig returns a config populated with defaults only
func NewDefaultConfig() *UploaderServerConfig {
	return &UploaderServerConfig{
		Port: DefaultPort,
		Gateway: GatewayConfig{
			Host:     DefaultGatewayHost,
			Port:     DefaultGatewayPort,
			Protocol: DefaultGatewayProtocol,
			Timeout:  DefaultGatewayTimeout,
		},
		Persistence:    PersistenceConfig{Type: PersistenceTypeMemory},
		MaxUploadBytes: DefaultMaxUploadBytes,
		RateBurst:      DefaultRateBurst,
		AppName:        DefaultAppName,
	}
}

// Validate validates the uploader server configuration. A missing wallet source is
// not a validation failure: the key store reports it per request as a configuration error.
func (c *UploaderServerConfig) Validate() error {
	var allErrors field.ErrorList
	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "port must be between 1-65535"))
	}
	allErrors = append(allErrors, c.Gateway.validate(field.NewPath("gateway"))...)
	allErrors = append(allErrors, c.Persistence.validate(field.NewPath("persistence"))...)

	if c.MaxUploadBytes <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("maxUploadBytes"), c.MaxUploadBytes, "must be positive"))
	}
	if c.RateLimit < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit"), strconv.FormatFloat(c.RateLimit, 'f', -1, 64), "must not be negative"))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateBurst"), c.RateBurst, "burst must be at least 1 when rate limiting is enabled"))
	}
	if c.Wallet.KMSFile != "" && c.Wallet.AWSRegion == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("wallet", "awsRegion"), "a KMS-encrypted wallet requires an AWS region"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// LoadConfigFile reads a YAML (or any viper-supported) config file on top of the defaults.
func LoadConfigFile(path string) (*UploaderServerConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := NewDefaultConfig()
	v.SetDefault("port", defaults.Port)
	v.SetDefault("gateway.host", defaults.Gateway.Host)
	v.SetDefault("gateway.port", defaults.Gateway.Port)
	v.SetDefault("gateway.protocol", defaults.Gateway.Protocol)
	v.SetDefault("gateway.timeout", defaults.Gateway.Timeout)
	v.SetDefault("persistence.type", string(defaults.Persistence.Type))
	v.SetDefault("maxUploadBytes", defaults.MaxUploadBytes)
	v.SetDefault("rateBurst", defaults.RateBurst)
	v.SetDefault("appName", defaults.AppName)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &UploaderServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
