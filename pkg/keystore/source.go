package keystore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/config"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
)

// Source yields the raw JWK document
type Source interface {
	Read(ctx context.Context) ([]byte, error)

	// Describe names the source for logs without revealing its contents
	Describe() string
}

// Decrypter decrypts an encrypted wallet file
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// FileSource reads a plaintext JWK file
type FileSource struct {
	Path string
}

func (s *FileSource) Read(_ context.Context) ([]byte, error) {
	return readFile(s.Path)
}

func (s *FileSource) Describe() string {
	return fmt.Sprintf("file:%s", s.Path)
}

// InlineSource holds the JWK in memory, e.g. from an environment variable
type InlineSource struct {
	JWK []byte
}

func (s *InlineSource) Read(_ context.Context) ([]byte, error) {
	if len(s.JWK) == 0 {
		return nil, uploadErrors.Configuration("wallet key is empty")
	}
	return s.JWK, nil
}

func (s *InlineSource) Describe() string {
	return "inline"
}

// KMSFileSource reads a JWK file encrypted with a KMS key
type KMSFileSource struct {
	Path      string
	Decrypter Decrypter
}

func (s *KMSFileSource) Read(ctx context.Context) ([]byte, error) {
	if s.Decrypter == nil {
		return nil, uploadErrors.Configuration("no decrypter configured for encrypted wallet")
	}
	ciphertext, err := readFile(s.Path)
	if err != nil {
		return nil, err
	}
	plaintext, err := s.Decrypter.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, &uploadErrors.Error{Kind: uploadErrors.KindConfiguration, Message: "failed to decrypt wallet file", Err: err}
	}
	return plaintext, nil
}

func (s *KMSFileSource) Describe() string {
	return fmt.Sprintf("kms-file:%s", s.Path)
}

func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, uploadErrors.Configuration("wallet path is not configured")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, uploadErrors.Configuration("wallet file %s does not exist", path)
		}
		return nil, &uploadErrors.Error{Kind: uploadErrors.KindConfiguration, Message: fmt.Sprintf("failed to read wallet file %s", path), Err: err}
	}
	return raw, nil
}

// NewSourceFromConfig picks the configured source: a file path first, then an inline
// JWK, then a KMS-encrypted file. It returns a configuration error when none is set.
func NewSourceFromConfig(wc *config.WalletConfig, decrypter Decrypter) (Source, error) {
	switch {
	case wc == nil || !wc.HasSource():
		return nil, uploadErrors.Configuration("no wallet key source is configured")
	case wc.Path != "":
		return &FileSource{Path: wc.Path}, nil
	case wc.JWK != "":
		return &InlineSource{JWK: []byte(wc.JWK)}, nil
	default:
		return &KMSFileSource{Path: wc.KMSFile, Decrypter: decrypter}, nil
	}
}
