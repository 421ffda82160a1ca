package transaction

import (
	"crypto/sha256"
	"errors"
	"sync"
	"testing"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAnchor = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8"

var testOwner = util.B64UrlEncode([]byte("modulus-bytes"))

func newTestTx(t *testing.T, data string, tags ...types.Tag) *UnsignedTransaction {
	t.Helper()
	tx, err := NewUnsignedTransaction(UnsignedTransactionParams{
		Data:   []byte(data),
		Tags:   tags,
		Reward: "1000",
		LastTx: testAnchor,
	})
	require.NoError(t, err)
	return tx
}

func TestNewUnsignedTransaction_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params UnsignedTransactionParams
		field  string
	}{
		{name: "empty reward", params: UnsignedTransactionParams{LastTx: testAnchor}, field: "reward"},
		{name: "negative reward", params: UnsignedTransactionParams{Reward: "-1", LastTx: testAnchor}, field: "reward"},
		{name: "fractional reward", params: UnsignedTransactionParams{Reward: "1.5", LastTx: testAnchor}, field: "reward"},
		{name: "missing anchor", params: UnsignedTransactionParams{Reward: "1"}, field: "last_tx"},
		{name: "empty tag name", params: UnsignedTransactionParams{Reward: "1", LastTx: testAnchor, Tags: types.Tags{{Name: "", Value: "x"}}}, field: "tags[0].name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUnsignedTransaction(tt.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, &uploadErrors.Error{Kind: uploadErrors.KindValidation, Field: tt.field})
		})
	}

	_, err := NewUnsignedTransaction(UnsignedTransactionParams{Reward: "1", LastTx: "not*base64"})
	assert.Equal(t, uploadErrors.KindValidation, uploadErrors.KindOf(err))
}

func TestNewUnsignedTransaction_Defaults(t *testing.T) {
	payload := []byte("Hello Arweave!")
	tx, err := NewUnsignedTransaction(UnsignedTransactionParams{Data: payload, Reward: "42", LastTx: testAnchor})
	require.NoError(t, err)

	assert.Equal(t, 2, tx.Format())
	assert.Equal(t, "", tx.Target())
	assert.Equal(t, "0", tx.Quantity())
	assert.Equal(t, int64(14), tx.DataSize())
	assert.Equal(t, "", tx.Owner())

	payload[0] = 'J'
	assert.Equal(t, "Hello Arweave!", string(tx.Data()), "payload must be copied")
}

func TestUnsignedTransaction_AddTagAfterSeal(t *testing.T) {
	tx := newTestTx(t, "x")
	require.NoError(t, tx.AddTag("Content-Type", "text/plain"))
	require.NoError(t, tx.Seal(testOwner))

	err := tx.AddTag("Late", "tag")
	assert.ErrorIs(t, err, ErrTransactionSealed)
	assert.Equal(t, types.Tags{{Name: "Content-Type", Value: "text/plain"}}, tx.Tags())

	assert.Error(t, tx.AddTag("", "value"))
}

func TestUnsignedTransaction_Seal(t *testing.T) {
	tx := newTestTx(t, "x")
	assert.Error(t, tx.Seal(""))
	assert.False(t, tx.Sealed())

	require.NoError(t, tx.Seal(testOwner))
	assert.True(t, tx.Sealed())
	assert.Equal(t, testOwner, tx.Owner())

	require.NoError(t, tx.Seal(testOwner), "sealing again with the same owner is allowed")
	assert.Error(t, tx.Seal(util.B64UrlEncode([]byte("other"))))
}

func TestUnsignedTransaction_ConcurrentAddTagAndSeal(t *testing.T) {
	tx := newTestTx(t, "x")
	var wg sync.WaitGroup
	accepted := make(chan struct{}, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tx.AddTag("k", "v"); err == nil {
				accepted <- struct{}{}
			}
		}()
	}
	require.NoError(t, tx.Seal(testOwner))
	wg.Wait()
	close(accepted)

	frozen := tx.SigningFields("").Tags
	assert.Len(t, frozen, len(accepted))
}

func TestNewSignedTransaction(t *testing.T) {
	tx := newTestTx(t, "Hello Arweave!", types.Tag{Name: "Content-Type", Value: "text/plain"})

	_, err := NewSignedTransaction(tx, "", []byte("signature"))
	require.Error(t, err, "unsealed transactions cannot be signed")

	require.NoError(t, tx.Seal(testOwner))
	_, err = NewSignedTransaction(tx, "", nil)
	require.Error(t, err)

	signature := []byte("signature-bytes")
	signed, err := NewSignedTransaction(tx, "root", signature)
	require.NoError(t, err)

	sum := sha256.Sum256(signature)
	assert.Equal(t, util.B64UrlEncode(sum[:]), signed.ID())
	assert.Len(t, signed.ID(), 43)
	assert.NotEqual(t, signed.Signature(), signed.ID())
	assert.Equal(t, util.B64UrlEncode(signature), signed.Signature())
	assert.Equal(t, testOwner, signed.Owner())
	assert.Equal(t, "root", signed.DataRoot())
	assert.Equal(t, int64(14), signed.DataSize())

	tags := signed.Tags()
	tags[0].Value = "mutated"
	assert.Equal(t, "text/plain", signed.Tags()[0].Value)

	data := signed.Data()
	data[0] = 'X'
	assert.Equal(t, "Hello Arweave!", string(signed.Data()))

	addr, err := util.OwnerToAddress(testOwner)
	require.NoError(t, err)
	assert.Equal(t, addr, signed.OwnerAddress())
}

func TestFromWire(t *testing.T) {
	tx := newTestTx(t, "payload", types.Tag{Name: "Ünicode", Value: "välue"})
	require.NoError(t, tx.Seal(testOwner))
	signed, err := NewSignedTransaction(tx, util.B64UrlEncode([]byte("root")), []byte("sig"))
	require.NoError(t, err)

	w := signed.ToWire()
	assert.Equal(t, "7", w.DataSize)
	assert.Equal(t, util.EncodeString("Ünicode"), w.Tags[0].Name)

	decoded, err := FromWire(w)
	require.NoError(t, err)
	assert.Equal(t, signed.SigningFields(), decoded.SigningFields())
	assert.Equal(t, "payload", string(decoded.Data()))

	tests := []struct {
		name   string
		mutate func(w *Wire)
		field  string
	}{
		{name: "format", mutate: func(w *Wire) { w.Format = 1 }, field: "format"},
		{name: "id", mutate: func(w *Wire) { w.ID = util.B64UrlEncode(make([]byte, 32)) }, field: "id"},
		{name: "signature", mutate: func(w *Wire) { w.Signature = "" }, field: "signature"},
		{name: "owner", mutate: func(w *Wire) { w.Owner = "" }, field: "owner"},
		{name: "reward", mutate: func(w *Wire) { w.Reward = "abc" }, field: "reward"},
		{name: "data size", mutate: func(w *Wire) { w.DataSize = "8" }, field: "data_size"},
		{name: "tag", mutate: func(w *Wire) { w.Tags[0].Name = "%%%" }, field: "tags[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := signed.ToWire()
			tt.mutate(w)
			_, err := FromWire(w)
			require.Error(t, err)
			var uerr *uploadErrors.Error
			require.True(t, errors.As(err, &uerr))
			assert.Equal(t, tt.field, uerr.Field)
		})
	}
}
