package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type kmsAPI interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
}

// KMSDecrypter decrypts wallet files that were encrypted with an AWS KMS key
type KMSDecrypter struct {
	client kmsAPI
	keyID  string
	region string
	logger *zap.Logger
}

// NewKMSDecrypter returns a decrypter. keyID may be empty for symmetric keys, in which
// case KMS resolves it from the ciphertext.
func NewKMSDecrypter(cfg aws.Config, keyID string, logger *zap.Logger) *KMSDecrypter {
	return newKMSDecrypter(kms.NewFromConfig(cfg), keyID, cfg.Region, logger)
}

func newKMSDecrypter(client kmsAPI, keyID, region string, logger *zap.Logger) *KMSDecrypter {
	return &KMSDecrypter{
		client: client,
		keyID:  keyID,
		region: region,
		logger: logger,
	}
}

func (d *KMSDecrypter) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, errors.New("ciphertext is empty")
	}

	input := &kms.DecryptInput{CiphertextBlob: ciphertext}
	if d.keyID != "" {
		input.KeyId = aws.String(d.keyID)
	}

	out, err := d.client.Decrypt(ctx, input)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decrypt wallet in region %s", d.region)
	}
	d.logger.Sugar().Debugw("Decrypted wallet with KMS", "key_id", aws.ToString(out.KeyId), "region", d.region)
	return out.Plaintext, nil
}

// Encrypt encrypts a wallet file for use with Decrypt. It needs a key id.
func (d *KMSDecrypter) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if d.keyID == "" {
		return nil, errors.New("a KMS key id is required to encrypt")
	}
	if len(plaintext) == 0 {
		return nil, errors.New("plaintext is empty")
	}

	out, err := d.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(d.keyID),
		Plaintext: plaintext,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encrypt wallet with key %s", d.keyID)
	}
	return out.CiphertextBlob, nil
}
