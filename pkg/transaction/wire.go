package transaction

import (
	"fmt"
	"strconv"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/util"
	"github.com/samber/lo"
)

// WireTag is a tag with base64url-encoded name and value
type WireTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Wire is the JSON body accepted by a gateway's POST /tx
type Wire struct {
	Format    int       `json:"format"`
	ID        string    `json:"id"`
	LastTx    string    `json:"last_tx"`
	Owner     string    `json:"owner"`
	Tags      []WireTag `json:"tags"`
	Target    string    `json:"target"`
	Quantity  string    `json:"quantity"`
	Data      string    `json:"data"`
	DataSize  string    `json:"data_size"`
	DataRoot  string    `json:"data_root"`
	Reward    string    `json:"reward"`
	Signature string    `json:"signature"`
}

// ToWire encodes the transaction with its payload inline
func (s *SignedTransaction) ToWire() *Wire {
	return &Wire{
		Format: Format,
		ID:     s.id,
		LastTx: s.lastTx,
		Owner:  s.owner,
		Tags: lo.Map(s.tags, func(t types.Tag, _ int) WireTag {
			return WireTag{Name: util.EncodeString(t.Name), Value: util.EncodeString(t.Value)}
		}),
		Target:    s.target,
		Quantity:  s.quantity,
		Data:      util.B64UrlEncode(s.data),
		DataSize:  strconv.FormatInt(s.dataSize, 10),
		DataRoot:  s.dataRoot,
		Reward:    s.reward,
		Signature: s.signature,
	}
}

// FromWire decodes a wire transaction. It checks structure and that the id matches the
// signature; it does not verify the signature itself.
func FromWire(w *Wire) (*SignedTransaction, error) {
	if w == nil {
		return nil, uploadErrors.Validation(nil, "transaction is empty")
	}
	if w.Format != Format {
		return nil, uploadErrors.ValidationField("format", "unsupported transaction format %d", w.Format)
	}

	signature, err := util.B64UrlDecode(w.Signature)
	if err != nil || len(signature) == 0 {
		return nil, uploadErrors.ValidationField("signature", "signature is missing or not base64url")
	}
	if DeriveID(signature) != w.ID {
		return nil, uploadErrors.ValidationField("id", "id does not match signature")
	}

	for name, value := range map[string]string{"owner": w.Owner, "last_tx": w.LastTx, "target": w.Target, "data_root": w.DataRoot} {
		if _, err := util.B64UrlDecode(value); err != nil {
			return nil, uploadErrors.ValidationField(name, "%s is not base64url", name)
		}
	}
	if w.Owner == "" {
		return nil, uploadErrors.ValidationField("owner", "owner is required")
	}
	if !isDecimal(w.Reward) {
		return nil, uploadErrors.ValidationField("reward", "reward must be a decimal string")
	}
	if !isDecimal(w.Quantity) {
		return nil, uploadErrors.ValidationField("quantity", "quantity must be a decimal string")
	}

	dataSize, err := strconv.ParseInt(w.DataSize, 10, 64)
	if err != nil || dataSize < 0 {
		return nil, uploadErrors.ValidationField("data_size", "data_size must be a non-negative decimal string")
	}
	data, err := util.B64UrlDecode(w.Data)
	if err != nil {
		return nil, uploadErrors.ValidationField("data", "data is not base64url")
	}
	if len(data) > 0 && int64(len(data)) != dataSize {
		return nil, uploadErrors.ValidationField("data_size", "data_size %d does not match %d data bytes", dataSize, len(data))
	}

	tags := make(types.Tags, 0, len(w.Tags))
	for i, t := range w.Tags {
		name, nerr := util.DecodeString(t.Name)
		value, verr := util.DecodeString(t.Value)
		if nerr != nil || verr != nil {
			return nil, uploadErrors.ValidationField(fmt.Sprintf("tags[%d]", i), "tag is not base64url")
		}
		tags = append(tags, types.Tag{Name: name, Value: value})
	}

	return &SignedTransaction{
		owner:     w.Owner,
		target:    w.Target,
		quantity:  w.Quantity,
		data:      data,
		dataSize:  dataSize,
		dataRoot:  w.DataRoot,
		reward:    w.Reward,
		lastTx:    w.LastTx,
		tags:      tags,
		signature: w.Signature,
		id:        w.ID,
	}, nil
}
