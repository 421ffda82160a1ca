package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
)

// MarshalReceipt serializes a Receipt to JSON bytes.
func MarshalReceipt(r *types.Receipt) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil Receipt")
	}
	if r.ID == "" {
		return nil, fmt.Errorf("cannot marshal Receipt without id")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Receipt to JSON: %w", err)
	}
	return data, nil
}

// UnmarshalReceipt deserializes a Receipt from JSON bytes.
func UnmarshalReceipt(data []byte) (*types.Receipt, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var r types.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to Receipt: %w", err)
	}
	if r.ID == "" {
		return nil, fmt.Errorf("stored Receipt has no id")
	}
	return &r, nil
}
