package persistence

import (
	"errors"
	"sort"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
)

var (
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("persistence layer is closed")

	// ErrInvalidReceipt is returned when saving a nil receipt or one without an id
	ErrInvalidReceipt = errors.New("receipt must have an id")
)

// CurrentSchemaVersion is written by durable backends on first open
const CurrentSchemaVersion = "v1"

// SortNewestFirst orders receipts by submission time, newest first, then by id
func SortNewestFirst(receipts []*types.Receipt) {
	sort.Slice(receipts, func(i, j int) bool {
		if receipts[i].SubmittedAt != receipts[j].SubmittedAt {
			return receipts[i].SubmittedAt > receipts[j].SubmittedAt
		}
		return receipts[i].ID < receipts[j].ID
	})
}

// Limit truncates receipts to limit entries when limit is positive
func Limit(receipts []*types.Receipt, limit int) []*types.Receipt {
	if limit > 0 && len(receipts) > limit {
		return receipts[:limit]
	}
	return receipts
}
