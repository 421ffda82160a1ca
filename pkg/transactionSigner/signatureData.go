package transactionSigner

import (
	"strconv"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/crypto"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/merkle"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transaction"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/util"
)

// MaxTagBytes bounds the combined size of tag names and values
const MaxTagBytes = 2048

// DataRoot returns the base64url data root of data, or "" for an empty payload
func DataRoot(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	root := merkle.ComputeRoot(data)
	return util.B64UrlEncode(root[:])
}

// GetSignatureData returns the bytes an unsigned transaction's signature covers. The
// owner must already be set.
func GetSignatureData(tx *transaction.UnsignedTransaction) ([]byte, error) {
	if tx == nil {
		return nil, uploadErrors.Validation(nil, "transaction is nil")
	}
	return SignatureData(tx.SigningFields(DataRoot(tx.Data())))
}

// SignatureData computes the format-2 deep hash:
//
//	["2", owner, target, quantity, reward, last_tx, [[name, value]...], data_size, data_root]
//
// Binary fields are base64url-decoded, numeric fields are their decimal strings and tag
// names and values are raw UTF-8.
func SignatureData(fields transaction.SigningFields) ([]byte, error) {
	if fields.Format != transaction.Format {
		return nil, uploadErrors.ValidationField("format", "unsupported transaction format %d", fields.Format)
	}
	if fields.Owner == "" {
		return nil, uploadErrors.ValidationField("owner", "owner must be set before computing signature data")
	}

	owner, err := util.B64UrlDecode(fields.Owner)
	if err != nil {
		return nil, uploadErrors.Validation(err, "owner is not base64url")
	}
	target, err := util.B64UrlDecode(fields.Target)
	if err != nil {
		return nil, uploadErrors.Validation(err, "target is not base64url")
	}
	lastTx, err := util.B64UrlDecode(fields.LastTx)
	if err != nil {
		return nil, uploadErrors.Validation(err, "last_tx is not base64url")
	}
	dataRoot, err := util.B64UrlDecode(fields.DataRoot)
	if err != nil {
		return nil, uploadErrors.Validation(err, "data_root is not base64url")
	}

	tagItems := make([]crypto.DeepHashItem, 0, len(fields.Tags))
	for _, tag := range fields.Tags {
		tagItems = append(tagItems, crypto.List(crypto.BlobString(tag.Name), crypto.BlobString(tag.Value)))
	}

	hash := crypto.DeepHash(crypto.List(
		crypto.BlobString(strconv.Itoa(fields.Format)),
		crypto.Blob(owner),
		crypto.Blob(target),
		crypto.BlobString(fields.Quantity),
		crypto.BlobString(fields.Reward),
		crypto.Blob(lastTx),
		crypto.List(tagItems...),
		crypto.BlobString(strconv.FormatInt(fields.DataSize, 10)),
		crypto.Blob(dataRoot),
	))
	return hash[:], nil
}
