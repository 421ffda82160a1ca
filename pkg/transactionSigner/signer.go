package transactionSigner

import (
	gocrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"io"
	"math/big"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transaction"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/util"
)

// PublicExponent is assumed for every owner; the wire format carries only the modulus.
const PublicExponent = 65537

var signOptions = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: gocrypto.SHA256}

// Sign seals tx, signs its signature data with RSA-PSS (SHA-256, MGF1-SHA-256, salt
// length 32) and returns the signed transaction with its id derived from the signature.
// Either a complete SignedTransaction or an error is returned.
func Sign(key *rsa.PrivateKey, tx *transaction.UnsignedTransaction) (*transaction.SignedTransaction, error) {
	return sign(rand.Reader, key, tx)
}

func sign(random io.Reader, key *rsa.PrivateKey, tx *transaction.UnsignedTransaction) (*transaction.SignedTransaction, error) {
	if key == nil {
		return nil, uploadErrors.Signing(nil, "signing key is nil")
	}
	if tx == nil {
		return nil, uploadErrors.Validation(nil, "transaction is nil")
	}
	if err := key.Validate(); err != nil {
		return nil, uploadErrors.Signing(nil, "signing key failed validation")
	}
	if key.E != PublicExponent {
		return nil, uploadErrors.Signing(nil, "signing key public exponent must be %d", PublicExponent)
	}

	owner := util.B64UrlEncode(key.N.Bytes())
	if err := tx.Seal(owner); err != nil {
		return nil, uploadErrors.Signing(err, "failed to seal transaction")
	}

	dataRoot := DataRoot(tx.Data())
	fields := tx.SigningFields(dataRoot)
	if fields.Tags.ByteSize() > MaxTagBytes {
		return nil, uploadErrors.ValidationField("tags", "tags total %d bytes, limit is %d", fields.Tags.ByteSize(), MaxTagBytes)
	}
	sigData, err := SignatureData(fields)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(sigData)
	signature, err := rsa.SignPSS(random, key, gocrypto.SHA256, digest[:], signOptions)
	if err != nil {
		return nil, uploadErrors.Signing(err, "RSA-PSS signing failed")
	}
	if err := rsa.VerifyPSS(&key.PublicKey, gocrypto.SHA256, digest[:], signature, signOptions); err != nil {
		return nil, uploadErrors.Signing(err, "signature failed self-verification")
	}

	signed, err := transaction.NewSignedTransaction(tx, dataRoot, signature)
	if err != nil {
		return nil, uploadErrors.Signing(err, "failed to assemble signed transaction")
	}
	return signed, nil
}

// Verify recomputes the signature data of tx and checks the signature against its owner,
// that the id is derived from the signature, and that any inline data matches the data root.
func Verify(tx *transaction.SignedTransaction) error {
	if tx == nil {
		return uploadErrors.Validation(nil, "transaction is nil")
	}
	signature, err := util.B64UrlDecode(tx.Signature())
	if err != nil || len(signature) == 0 {
		return uploadErrors.ValidationField("signature", "signature is missing or not base64url")
	}
	if transaction.DeriveID(signature) != tx.ID() {
		return uploadErrors.ValidationField("id", "id is not derived from signature")
	}
	if tx.HasData() && DataRoot(tx.Data()) != tx.DataRoot() {
		return uploadErrors.ValidationField("data_root", "data does not match data root")
	}

	sigData, err := SignatureData(tx.SigningFields())
	if err != nil {
		return err
	}
	modulus, err := util.B64UrlDecode(tx.Owner())
	if err != nil {
		return uploadErrors.ValidationField("owner", "owner is not base64url")
	}
	pub := &rsa.PublicKey{N: new(big.Int).SetBytes(modulus), E: PublicExponent}

	digest := sha256.Sum256(sigData)
	verifyOpts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: gocrypto.SHA256}
	if err := rsa.VerifyPSS(pub, gocrypto.SHA256, digest[:], signature, verifyOpts); err != nil {
		return uploadErrors.ValidationField("signature", "signature does not verify against owner")
	}
	return nil
}
