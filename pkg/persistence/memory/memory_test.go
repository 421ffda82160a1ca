package memory

import (
	"testing"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/persistence"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/persistence/persistencetest"
	"go.uber.org/zap"
)

func TestMemoryPersistence(t *testing.T) {
	persistencetest.RunReceiptSuite(t, func(t *testing.T) persistence.IReceiptPersistence {
		return NewMemoryPersistence(zap.NewNop())
	})
}
