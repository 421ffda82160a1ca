// Package persistencetest holds the behaviour every receipt backend must share.
package persistencetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/persistence"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewReceipt returns a populated receipt with a unique id derived from name
func NewReceipt(name string, submittedAt int64) *types.Receipt {
	return &types.Receipt{
		ID:           fmt.Sprintf("%s-%d", name, submittedAt),
		OwnerAddress: "owner-address",
		ContentType:  "text/plain",
		DataSize:     14,
		TagCount:     3,
		Outcome:      "accepted",
		StatusCode:   200,
		URL:          "https://arweave.net/" + name,
		SubmittedAt:  submittedAt,
	}
}

// RunReceiptSuite exercises p. newStore must return an empty store.
func RunReceiptSuite(t *testing.T, newStore func(t *testing.T) persistence.IReceiptPersistence) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		p := newStore(t)
		defer func() { _ = p.Close() }()

		r := NewReceipt("save", 1000)
		require.NoError(t, p.SaveReceipt(r))

		loaded, err := p.LoadReceipt(r.ID)
		require.NoError(t, err)
		assert.Equal(t, r, loaded)

		loaded.Outcome = "mutated"
		again, err := p.LoadReceipt(r.ID)
		require.NoError(t, err)
		assert.Equal(t, "accepted", again.Outcome)
	})

	t.Run("LoadNotFound", func(t *testing.T) {
		p := newStore(t)
		defer func() { _ = p.Close() }()

		loaded, err := p.LoadReceipt("missing")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("SaveInvalid", func(t *testing.T) {
		p := newStore(t)
		defer func() { _ = p.Close() }()

		assert.Error(t, p.SaveReceipt(nil))
		assert.Error(t, p.SaveReceipt(&types.Receipt{}))
	})

	t.Run("Overwrite", func(t *testing.T) {
		p := newStore(t)
		defer func() { _ = p.Close() }()

		r := NewReceipt("overwrite", 1)
		require.NoError(t, p.SaveReceipt(r))
		r.Verified = true
		require.NoError(t, p.SaveReceipt(r))

		loaded, err := p.LoadReceipt(r.ID)
		require.NoError(t, err)
		assert.True(t, loaded.Verified)

		all, err := p.ListReceipts(0)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		p := newStore(t)
		defer func() { _ = p.Close() }()

		for _, ts := range []int64{30, 10, 20} {
			require.NoError(t, p.SaveReceipt(NewReceipt("list", ts)))
		}

		all, err := p.ListReceipts(0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []int64{30, 20, 10}, []int64{all[0].SubmittedAt, all[1].SubmittedAt, all[2].SubmittedAt})

		limited, err := p.ListReceipts(2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
		assert.Equal(t, int64(30), limited[0].SubmittedAt)
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		p := newStore(t)
		defer func() { _ = p.Close() }()

		r := NewReceipt("delete", 5)
		require.NoError(t, p.SaveReceipt(r))
		require.NoError(t, p.DeleteReceipt(r.ID))
		require.NoError(t, p.DeleteReceipt(r.ID))

		loaded, err := p.LoadReceipt(r.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		all, err := p.ListReceipts(0)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("ConcurrentSaves", func(t *testing.T) {
		p := newStore(t)
		defer func() { _ = p.Close() }()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, p.SaveReceipt(NewReceipt("concurrent", int64(i+1))))
			}(i)
		}
		wg.Wait()

		all, err := p.ListReceipts(0)
		require.NoError(t, err)
		assert.Len(t, all, 20)
	})

	t.Run("Closed", func(t *testing.T) {
		p := newStore(t)
		require.NoError(t, p.HealthCheck())
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())

		assert.ErrorIs(t, p.SaveReceipt(NewReceipt("closed", 1)), persistence.ErrClosed)
		_, err := p.LoadReceipt("x")
		assert.ErrorIs(t, err, persistence.ErrClosed)
		_, err = p.ListReceipts(0)
		assert.ErrorIs(t, err, persistence.ErrClosed)
		assert.ErrorIs(t, p.DeleteReceipt("x"), persistence.ErrClosed)
		assert.ErrorIs(t, p.HealthCheck(), persistence.ErrClosed)
	})
}
