package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/config"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/testutil"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transaction"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transactionSigner"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAnchor = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&ClientConfig{BaseURL: server.URL, Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func signedTx(t *testing.T, data string) *transaction.SignedTransaction {
	t.Helper()
	tx, err := transaction.NewUnsignedTransaction(transaction.UnsignedTransactionParams{
		Data:   []byte(data),
		Tags:   types.Tags{{Name: "Content-Type", Value: "text/plain"}},
		Reward: "1000",
		LastTx: testAnchor,
	})
	require.NoError(t, err)
	signed, err := transactionSigner.Sign(testutil.SharedRSAKey(t), tx)
	require.NoError(t, err)
	return signed
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, zap.NewNop())
	assert.Error(t, err)
	_, err = NewClient(&ClientConfig{BaseURL: "arweave.net"}, zap.NewNop())
	assert.Error(t, err)

	c, err := NewClientFromConfig(&config.GatewayConfig{Host: "arweave.net", Port: 443, Protocol: "https", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "https://arweave.net/abc", c.TransactionURL("abc"))
}

func TestClient_PriceAndAnchor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/price/14":
			_, _ = io.WriteString(w, "65595508")
		case "/tx_anchor":
			_, _ = io.WriteString(w, testAnchor+"\n")
		default:
			http.NotFound(w, r)
		}
	})

	price, err := client.Price(context.Background(), 14)
	require.NoError(t, err)
	assert.Equal(t, "65595508", price)

	anchor, err := client.Anchor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAnchor, anchor)

	_, err = client.Price(context.Background(), 15)
	assert.Equal(t, uploadErrors.KindNetwork, uploadErrors.KindOf(err))
}

func TestClient_InvalidReadOnlyResponses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tx_anchor":
			_, _ = io.WriteString(w, "<html>")
		case "/wallet/abc/balance":
			_, _ = io.WriteString(w, "lots")
		default:
			_, _ = io.WriteString(w, "free")
		}
	})

	_, err := client.Price(context.Background(), 1)
	assert.Equal(t, uploadErrors.KindNetwork, uploadErrors.KindOf(err))
	_, err = client.Anchor(context.Background())
	assert.Equal(t, uploadErrors.KindNetwork, uploadErrors.KindOf(err))
	_, err = client.Balance(context.Background(), "abc")
	assert.Equal(t, uploadErrors.KindNetwork, uploadErrors.KindOf(err))
	_, err = client.Price(context.Background(), -1)
	assert.Equal(t, uploadErrors.KindValidation, uploadErrors.KindOf(err))
}

func TestClient_SubmitAccepted(t *testing.T) {
	tx := signedTx(t, "Hello Arweave!")

	var received transaction.Wire
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tx", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "OK")
	})

	result, err := client.Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Equal(t, tx.ID(), result.ID)
	assert.Equal(t, client.TransactionURL(tx.ID()), result.URL)

	assert.Equal(t, 2, received.Format)
	assert.Equal(t, tx.ID(), received.ID)
	assert.Equal(t, "14", received.DataSize)
	assert.Equal(t, "SGVsbG8gQXJ3ZWF2ZSE", received.Data)
	assert.Equal(t, "Q29udGVudC1UeXBl", received.Tags[0].Name)
	assert.Equal(t, "0", received.Quantity)
	assert.Equal(t, "", received.Target)
}

func TestClient_SubmitOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		outcome Outcome
		kind    uploadErrors.Kind
		message string
	}{
		{name: "already processed", status: 208, body: "Transaction already processed.", outcome: OutcomeAccepted},
		{name: "accepted 202", status: 202, outcome: OutcomeAccepted},
		{name: "verification failed", status: 400, body: "Transaction verification failed.", outcome: OutcomeRejected, kind: uploadErrors.KindRejected, message: "Transaction verification failed."},
		{name: "rejected without body", status: 410, outcome: OutcomeRejected, kind: uploadErrors.KindRejected, message: "Gone"},
		{name: "server error", status: 503, body: "overloaded", outcome: OutcomeTransient, kind: uploadErrors.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			result, err := client.Submit(context.Background(), signedTx(t, "payload"))
			require.NotNil(t, result)
			assert.Equal(t, tt.outcome, result.Outcome)
			assert.Equal(t, tt.status, result.StatusCode)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, uploadErrors.KindOf(err))
			assert.Empty(t, result.URL)
			if tt.message != "" {
				assert.Equal(t, tt.message, uploadErrors.PublicMessage(err))
			}
		})
	}
}

func TestClient_SubmitTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(&ClientConfig{BaseURL: url, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	result, err := client.Submit(context.Background(), signedTx(t, "payload"))
	require.Error(t, err)
	assert.Equal(t, OutcomeTransient, result.Outcome)
	assert.Equal(t, uploadErrors.KindTransient, uploadErrors.KindOf(err))
	assert.True(t, uploadErrors.IsRetryable(err))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Anchor(ctx)
	assert.Equal(t, uploadErrors.KindTransient, uploadErrors.KindOf(err))

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	result, err := client.Submit(ctx2, signedTx(t, "slow"))
	assert.Equal(t, OutcomeTransient, result.Outcome)
	assert.Equal(t, uploadErrors.KindTransient, uploadErrors.KindOf(err))
}

func TestClient_GetData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/known":
			_, _ = io.WriteString(w, "Hello Arweave!")
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	})

	data, err := client.GetData(context.Background(), "known")
	require.NoError(t, err)
	assert.Equal(t, "Hello Arweave!", string(data))

	_, err = client.GetData(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.GetData(context.Background(), "broken")
	assert.Equal(t, uploadErrors.KindTransient, uploadErrors.KindOf(err))

	_, err = client.GetData(context.Background(), "")
	assert.Equal(t, uploadErrors.KindValidation, uploadErrors.KindOf(err))
}

func TestClient_GetDataSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "0123456789")
	}))
	defer server.Close()

	client, err := NewClient(&ClientConfig{BaseURL: server.URL, MaxResponseBytes: 5}, zap.NewNop())
	require.NoError(t, err)
	_, err = client.GetData(context.Background(), "id")
	assert.Equal(t, uploadErrors.KindNetwork, uploadErrors.KindOf(err))
}

func TestClient_Status(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tx/mined/status":
			_, _ = io.WriteString(w, `{"block_height":1200000,"block_indep_hash":"abc","number_of_confirmations":12}`)
		case "/tx/pending/status":
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, "Pending")
		default:
			http.NotFound(w, r)
		}
	})

	status, err := client.Status(context.Background(), "mined")
	require.NoError(t, err)
	assert.Equal(t, &TxStatus{Status: TxStatusConfirmed, BlockHeight: 1200000, BlockHash: "abc", Confirmations: 12}, status)

	status, err = client.Status(context.Background(), "pending")
	require.NoError(t, err)
	assert.Equal(t, TxStatusPending, status.Status)

	status, err = client.Status(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, TxStatusNotFound, status.Status)
}

func TestClient_Balance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wallet/addr/balance", r.URL.Path)
		_, _ = io.WriteString(w, "1000000000000")
	})

	balance, err := client.Balance(context.Background(), "addr")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000", balance)

	_, err = client.Balance(context.Background(), "")
	assert.Error(t, err)
}
