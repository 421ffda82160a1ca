package util

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// B64UrlEncode encodes bytes as unpadded base64url, the encoding used for every binary
// field on the wire (owner, signature, id, anchors, tags).
func B64UrlEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// B64UrlDecode decodes unpadded base64url. Trailing padding is tolerated since some
// gateways and wallet exporters emit it.
func B64UrlDecode(str string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(str, "="))
	if err != nil {
		return nil, fmt.Errorf("invalid base64url: %w", err)
	}
	return decoded, nil
}

// EncodeString base64url-encodes the UTF-8 bytes of a string
func EncodeString(str string) string {
	return B64UrlEncode([]byte(str))
}

// DecodeString is the inverse of EncodeString
func DecodeString(str string) (string, error) {
	decoded, err := B64UrlDecode(str)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// HashB64Url returns base64url(SHA-256(data))
func HashB64Url(data []byte) string {
	sum := sha256.Sum256(data)
	return B64UrlEncode(sum[:])
}

// OwnerToAddress derives the wallet address from a base64url owner modulus.
func OwnerToAddress(owner string) (string, error) {
	ownerBytes, err := B64UrlDecode(owner)
	if err != nil {
		return "", fmt.Errorf("failed to decode owner: %w", err)
	}
	return HashB64Url(ownerBytes), nil
}
