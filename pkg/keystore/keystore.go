// Package keystore loads the RSA wallet key used to sign transactions. The key is
// supplied as a JWK document and validated field by field before it is parsed.
package keystore

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/util"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"go.uber.org/zap"
)

// RequiredFields are the JWK members every wallet key must carry as non-empty strings
var RequiredFields = []string{"kty", "n", "e", "d", "p", "q", "dp", "dq", "qi"}

// PublicExponent is the only exponent gateways accept; owners carry the modulus alone.
const PublicExponent = 65537

// PrivateKey is a loaded wallet key. It is never serialized and String redacts it.
type PrivateKey struct {
	key     *rsa.PrivateKey
	owner   string
	address string
}

// RSA returns the parsed key for signing
func (k *PrivateKey) RSA() *rsa.PrivateKey {
	return k.key
}

// Owner is the base64url public modulus
func (k *PrivateKey) Owner() string {
	return k.owner
}

// Address is base64url(SHA-256(modulus)), safe to log
func (k *PrivateKey) Address() string {
	return k.address
}

func (k *PrivateKey) String() string {
	return fmt.Sprintf("PrivateKey{address: %s, bits: %d, material: [REDACTED]}", k.address, k.key.N.BitLen())
}

func (k *PrivateKey) GoString() string {
	return k.String()
}

// KeyStore loads a key from its Source. With caching enabled the first successful load
// is kept until Invalidate.
type KeyStore struct {
	mu sync.RWMutex

	source Source
	cache  bool
	key    *PrivateKey
	logger *zap.Logger
}

func NewKeyStore(source Source, cache bool, logger *zap.Logger) *KeyStore {
	return &KeyStore{
		source: source,
		cache:  cache,
		logger: logger,
	}
}

// Load returns the wallet key, reading the source unless a cached key is available
func (ks *KeyStore) Load(ctx context.Context) (*PrivateKey, error) {
	if ks.cache {
		ks.mu.RLock()
		key := ks.key
		ks.mu.RUnlock()
		if key != nil {
			return key, nil
		}
	}

	if ks.source == nil {
		return nil, uploadErrors.Configuration("no wallet key source is configured")
	}
	raw, err := ks.source.Read(ctx)
	if err != nil {
		return nil, err
	}
	key, err := ParseJWK(raw)
	if err != nil {
		ks.logger.Sugar().Warnw("Failed to load wallet key", "source", ks.source.Describe(), "kind", uploadErrors.KindOf(err).String())
		return nil, err
	}

	if ks.cache {
		ks.mu.Lock()
		if ks.key == nil {
			ks.key = key
		}
		key = ks.key
		ks.mu.Unlock()
	}
	ks.logger.Sugar().Infow("Loaded wallet key", "source", ks.source.Describe(), "address", key.Address())
	return key, nil
}

// Invalidate drops the cached key so the next Load reads the source again
func (ks *KeyStore) Invalidate() {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.key = nil
}

// ParseJWK validates a JWK document and converts it to a PrivateKey.
func ParseJWK(raw []byte) (*PrivateKey, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, uploadErrors.MalformedKey(err, "wallet key is not a valid JSON object")
	}
	if doc == nil {
		return nil, uploadErrors.MalformedKey(nil, "wallet key is not a valid JSON object")
	}

	for _, name := range RequiredFields {
		value, ok := doc[name]
		if !ok {
			return nil, uploadErrors.InvalidKeyField(name, "wallet key is missing %q", name)
		}
		str, ok := value.(string)
		if !ok {
			return nil, uploadErrors.InvalidKeyField(name, "wallet key field %q must be a string", name)
		}
		if str == "" {
			return nil, uploadErrors.InvalidKeyField(name, "wallet key field %q must not be empty", name)
		}
	}
	if doc["kty"] != "RSA" {
		return nil, uploadErrors.InvalidKeyField("kty", "wallet key type must be RSA")
	}

	parsed, err := jwk.ParseKey(raw)
	if err != nil {
		return nil, uploadErrors.InvalidKey(err, "wallet key could not be parsed")
	}
	var exported interface{}
	if err := jwk.Export(parsed, &exported); err != nil {
		return nil, uploadErrors.InvalidKey(err, "wallet key could not be exported")
	}

	var priv *rsa.PrivateKey
	switch k := exported.(type) {
	case *rsa.PrivateKey:
		priv = k
	case rsa.PrivateKey:
		priv = &k
	default:
		return nil, uploadErrors.InvalidKey(nil, "wallet key is not an RSA private key")
	}

	if priv.E != PublicExponent {
		return nil, uploadErrors.InvalidKeyField("e", "wallet key public exponent must be %d", PublicExponent)
	}
	if err := priv.Validate(); err != nil {
		return nil, uploadErrors.InvalidKey(nil, "wallet key parameters are inconsistent")
	}
	priv.Precompute()

	owner := util.B64UrlEncode(priv.N.Bytes())
	address, err := util.OwnerToAddress(owner)
	if err != nil {
		return nil, uploadErrors.InvalidKey(err, "failed to derive wallet address")
	}
	return &PrivateKey{key: priv, owner: owner, address: address}, nil
}
