package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"math/big"
	"sync"
	"testing"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/util"
)

// TestKeyBits keeps key generation fast; gateways accept any modulus size the owner
// field can carry.
const TestKeyBits = 2048

var (
	sharedKeyOnce sync.Once
	sharedKey     *rsa.PrivateKey
	sharedKeyErr  error
)

// SharedRSAKey returns one RSA key per test binary
func SharedRSAKey(t testing.TB) *rsa.PrivateKey {
	sharedKeyOnce.Do(func() {
		sharedKey, sharedKeyErr = rsa.GenerateKey(rand.Reader, TestKeyBits)
	})
	if sharedKeyErr != nil {
		t.Fatalf("Failed to generate RSA key: %v", sharedKeyErr)
	}
	return sharedKey
}

// GenerateRSAKey returns a fresh RSA key
func GenerateRSAKey(t testing.TB) *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, TestKeyBits)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return key
}

// JWKFields returns the nine JWK members of key as base64url strings
func JWKFields(key *rsa.PrivateKey) map[string]interface{} {
	if key.Precomputed.Dp == nil {
		key.Precompute()
	}
	return map[string]interface{}{
		"kty": "RSA",
		"n":   encodeInt(key.N),
		"e":   encodeInt(big.NewInt(int64(key.E))),
		"d":   encodeInt(key.D),
		"p":   encodeInt(key.Primes[0]),
		"q":   encodeInt(key.Primes[1]),
		"dp":  encodeInt(key.Precomputed.Dp),
		"dq":  encodeInt(key.Precomputed.Dq),
		"qi":  encodeInt(key.Precomputed.Qinv),
	}
}

// MarshalJWK encodes a JWK field map
func MarshalJWK(t testing.TB, fields map[string]interface{}) []byte {
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("Failed to marshal JWK: %v", err)
	}
	return raw
}

// NewTestJWK returns the shared key and its JWK document
func NewTestJWK(t testing.TB) ([]byte, *rsa.PrivateKey) {
	key := SharedRSAKey(t)
	return MarshalJWK(t, JWKFields(key)), key
}

func encodeInt(i *big.Int) string {
	return util.B64UrlEncode(i.Bytes())
}
