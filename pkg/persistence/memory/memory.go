package memory

import (
	"sync"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/persistence"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"go.uber.org/zap"
)

// MemoryPersistence keeps receipts in memory. They are lost when the process exits.
// Copies are stored and returned so callers cannot mutate stored receipts.
type MemoryPersistence struct {
	mu sync.RWMutex

	receipts map[string]*types.Receipt
	closed   bool
}

var _ persistence.IReceiptPersistence = (*MemoryPersistence)(nil)

func NewMemoryPersistence(logger *zap.Logger) *MemoryPersistence {
	logger.Sugar().Warnw("Using in-memory receipt persistence; receipts are lost on restart")
	return &MemoryPersistence{
		receipts: make(map[string]*types.Receipt),
	}
}

func (m *MemoryPersistence) SaveReceipt(receipt *types.Receipt) error {
	if receipt == nil || receipt.ID == "" {
		return persistence.ErrInvalidReceipt
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return persistence.ErrClosed
	}

	stored := *receipt
	m.receipts[receipt.ID] = &stored
	return nil
}

func (m *MemoryPersistence) LoadReceipt(id string) (*types.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, persistence.ErrClosed
	}

	r, ok := m.receipts[id]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

func (m *MemoryPersistence) ListReceipts(limit int) ([]*types.Receipt, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, persistence.ErrClosed
	}
	out := make([]*types.Receipt, 0, len(m.receipts))
	for _, r := range m.receipts {
		c := *r
		out = append(out, &c)
	}
	m.mu.RUnlock()

	persistence.SortNewestFirst(out)
	return persistence.Limit(out, limit), nil
}

func (m *MemoryPersistence) DeleteReceipt(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return persistence.ErrClosed
	}
	delete(m.receipts, id)
	return nil
}

func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.receipts = nil
	return nil
}

func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return persistence.ErrClosed
	}
	return nil
}
