package transactionSigner

import (
	"context"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/keystore"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transaction"
	"go.uber.org/zap"
)

// ITransactionSigner signs unsigned transactions with the wallet key
type ITransactionSigner interface {
	// SignTransaction seals and signs tx
	SignTransaction(ctx context.Context, tx *transaction.UnsignedTransaction) (*transaction.SignedTransaction, error)

	// GetAddress returns the wallet address that signs transactions
	GetAddress(ctx context.Context) (string, error)
}

// IKeyLoader provides the wallet key, typically a *keystore.KeyStore
type IKeyLoader interface {
	Load(ctx context.Context) (*keystore.PrivateKey, error)
}

// KeyStoreSigner signs with the key currently held by a key store
type KeyStoreSigner struct {
	keys   IKeyLoader
	logger *zap.Logger
}

func NewKeyStoreSigner(keys IKeyLoader, logger *zap.Logger) *KeyStoreSigner {
	return &KeyStoreSigner{
		keys:   keys,
		logger: logger,
	}
}

func (s *KeyStoreSigner) SignTransaction(ctx context.Context, tx *transaction.UnsignedTransaction) (*transaction.SignedTransaction, error) {
	key, err := s.keys.Load(ctx)
	if err != nil {
		return nil, err
	}

	signed, err := Sign(key.RSA(), tx)
	if err != nil {
		return nil, err
	}
	s.logger.Sugar().Debugw("Signed transaction", "id", signed.ID(), "address", key.Address(), "data_size", signed.DataSize(), "tag_count", len(signed.Tags()))
	return signed, nil
}

func (s *KeyStoreSigner) GetAddress(ctx context.Context) (string, error) {
	key, err := s.keys.Load(ctx)
	if err != nil {
		return "", err
	}
	return key.Address(), nil
}
