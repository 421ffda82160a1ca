package persistence

import "github.com/Layr-Labs/permaweb-uploader-go/pkg/types"

// IReceiptPersistence stores receipts for transactions this process submitted.
// All implementations must be thread-safe; requests are handled concurrently.
type IReceiptPersistence interface {
	// SaveReceipt persists a receipt keyed by transaction id, overwriting any previous
	// receipt with the same id.
	SaveReceipt(receipt *types.Receipt) error

	// LoadReceipt returns the receipt for id.
	// Returns nil if it doesn't exist, error only on storage failure.
	LoadReceipt(id string) (*types.Receipt, error)

	// ListReceipts returns up to limit receipts, newest first. limit <= 0 means all.
	ListReceipts(limit int) ([]*types.Receipt, error)

	// DeleteReceipt removes a receipt. Idempotent.
	DeleteReceipt(id string) error

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}
