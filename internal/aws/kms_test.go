package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKMS struct {
	lastInput *kms.DecryptInput
	plaintext []byte
	err       error

	lastEncrypt *kms.EncryptInput
}

func (f *fakeKMS) Encrypt(_ context.Context, params *kms.EncryptInput, _ ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	f.lastEncrypt = params
	if f.err != nil {
		return nil, f.err
	}
	return &kms.EncryptOutput{CiphertextBlob: append([]byte("enc:"), params.Plaintext...)}, nil
}

func (f *fakeKMS) Decrypt(_ context.Context, params *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &kms.DecryptOutput{Plaintext: f.plaintext, KeyId: aws.String("arn:aws:kms:us-east-1:000000000000:key/test")}, nil
}

func TestKMSDecrypter_Decrypt(t *testing.T) {
	client := &fakeKMS{plaintext: []byte(`{"kty":"RSA"}`)}
	d := newKMSDecrypter(client, "alias/wallet", "us-east-1", zap.NewNop())

	out, err := d.Decrypt(context.Background(), []byte("ciphertext"))
	require.NoError(t, err)
	assert.Equal(t, `{"kty":"RSA"}`, string(out))
	assert.Equal(t, []byte("ciphertext"), client.lastInput.CiphertextBlob)
	assert.Equal(t, "alias/wallet", aws.ToString(client.lastInput.KeyId))
}

func TestKMSDecrypter_NoKeyID(t *testing.T) {
	client := &fakeKMS{plaintext: []byte("x")}
	d := newKMSDecrypter(client, "", "us-east-1", zap.NewNop())

	_, err := d.Decrypt(context.Background(), []byte("ciphertext"))
	require.NoError(t, err)
	assert.Nil(t, client.lastInput.KeyId)
}

func TestKMSDecrypter_Errors(t *testing.T) {
	d := newKMSDecrypter(&fakeKMS{err: errors.New("AccessDeniedException")}, "", "eu-west-1", zap.NewNop())

	_, err := d.Decrypt(context.Background(), nil)
	require.Error(t, err)

	_, err = d.Decrypt(context.Background(), []byte("ciphertext"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eu-west-1")
	assert.Contains(t, err.Error(), "AccessDeniedException")
}

func TestKMSDecrypter_Encrypt(t *testing.T) {
	client := &fakeKMS{}
	d := newKMSDecrypter(client, "alias/wallet", "us-east-1", zap.NewNop())

	out, err := d.Encrypt(context.Background(), []byte("jwk"))
	require.NoError(t, err)
	assert.Equal(t, "enc:jwk", string(out))
	assert.Equal(t, "alias/wallet", aws.ToString(client.lastEncrypt.KeyId))

	_, err = d.Encrypt(context.Background(), nil)
	require.Error(t, err)

	_, err = newKMSDecrypter(client, "", "us-east-1", zap.NewNop()).Encrypt(context.Background(), []byte("jwk"))
	require.Error(t, err)
}
