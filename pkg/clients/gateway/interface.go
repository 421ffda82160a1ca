package gateway

import (
	"context"
	"net/http"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transaction"
)

// IGatewayClient is the subset of a gateway node's HTTP API the uploader uses.
type IGatewayClient interface {
	// SetHttpClient replaces the underlying HTTP client, mostly for tests.
	SetHttpClient(client *http.Client)

	// Price returns the winston fee for storing dataSize bytes (GET /price/{size}).
	Price(ctx context.Context, dataSize int64) (string, error)

	// Anchor returns a recent anchor for last_tx (GET /tx_anchor).
	Anchor(ctx context.Context) (string, error)

	// Submit posts a signed transaction with its data inline (POST /tx).
	// The result is returned for every HTTP response, including rejected and transient
	// ones; the error is non-nil unless the outcome is OutcomeAccepted.
	Submit(ctx context.Context, tx *transaction.SignedTransaction) (*SubmitResult, error)

	// GetData reads back the payload of a transaction (GET /{id}).
	GetData(ctx context.Context, id string) ([]byte, error)

	// Status returns the confirmation status of a transaction (GET /tx/{id}/status).
	Status(ctx context.Context, id string) (*TxStatus, error)

	// Balance returns the winston balance of a wallet address.
	Balance(ctx context.Context, address string) (string, error)

	// TransactionURL is where an accepted transaction's data can be fetched.
	TransactionURL(id string) string
}

// Compile-time check to ensure Client implements IGatewayClient
var _ IGatewayClient = (*Client)(nil)
