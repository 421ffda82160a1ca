// Package uploader runs one upload end to end: key, build, sign, submit, optional
// read-back and receipt. The HTTP server and the CLI client both drive uploads
// through it.
package uploader

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/clients/gateway"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/payload"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/persistence"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transaction"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transactionSigner"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"go.uber.org/zap"
)

type Config struct {
	// Timeout bounds every gateway call made for one upload. Zero means the caller's
	// context is the only bound.
	Timeout time.Duration

	// VerifyUploads reads the data back from the gateway after it accepts a transaction
	VerifyUploads bool
}

// Request is one payload to store
type Request struct {
	Data        []byte
	ContentType string
	Tags        types.Tags
}

// Result is returned for every upload that reached the gateway
type Result struct {
	Transaction *transaction.SignedTransaction
	Submission  *gateway.SubmitResult
	Receipt     *types.Receipt
}

type Uploader struct {
	builder  *transaction.Builder
	signer   transactionSigner.ITransactionSigner
	gateway  gateway.IGatewayClient
	receipts persistence.IReceiptPersistence
	config   *Config
	logger   *zap.Logger

	now func() time.Time
}

// NewUploader wires the pipeline. receipts may be nil, in which case nothing is recorded.
func NewUploader(
	builder *transaction.Builder,
	signer transactionSigner.ITransactionSigner,
	gw gateway.IGatewayClient,
	receipts persistence.IReceiptPersistence,
	cfg *Config,
	logger *zap.Logger,
) *Uploader {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Uploader{
		builder:  builder,
		signer:   signer,
		gateway:  gw,
		receipts: receipts,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Upload stores req.Data on the network. On a gateway rejection or transient failure
// both the result and a classified error are returned.
func (u *Uploader) Upload(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, uploadErrors.Validation(nil, "upload request is nil")
	}
	if u.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.config.Timeout)
		defer cancel()
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = payload.DefaultFileContentType
	}

	// Load the key before touching the network so a bad wallet fails fast
	address, err := u.signer.GetAddress(ctx)
	if err != nil {
		return nil, err
	}

	unsigned, err := u.builder.Build(ctx, req.Data, payload.TagsWithContentType(contentType, req.Tags))
	if err != nil {
		return nil, err
	}

	signed, err := u.signer.SignTransaction(ctx, unsigned)
	if err != nil {
		return nil, err
	}

	submission, submitErr := u.gateway.Submit(ctx, signed)
	if submission == nil {
		return nil, submitErr
	}

	result := &Result{
		Transaction: signed,
		Submission:  submission,
	}

	verified := false
	if submitErr == nil && u.config.VerifyUploads {
		verified, err = u.verify(ctx, signed)
		if err != nil {
			result.Receipt = u.record(signed, address, contentType, submission, false)
			return result, err
		}
	}

	result.Receipt = u.record(signed, address, contentType, submission, verified)
	if submitErr != nil {
		u.logger.Sugar().Warnw("Upload not accepted",
			"id", signed.ID(),
			"outcome", string(submission.Outcome),
			"status", submission.StatusCode,
			"kind", uploadErrors.KindOf(submitErr),
		)
		return result, submitErr
	}

	u.logger.Sugar().Infow("Upload accepted",
		"id", signed.ID(),
		"address", address,
		"data_size", signed.DataSize(),
		"tag_count", len(signed.Tags()),
		"verified", verified,
	)
	return result, nil
}

// verify reads the data back. Data the gateway does not serve yet is not an error; data
// that differs from what was signed is.
func (u *Uploader) verify(ctx context.Context, tx *transaction.SignedTransaction) (bool, error) {
	data, err := u.gateway.GetData(ctx, tx.ID())
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			u.logger.Sugar().Infow("Uploaded data not served yet", "id", tx.ID())
		} else {
			u.logger.Sugar().Warnw("Failed to read back uploaded data", "id", tx.ID(), "error", err)
		}
		return false, nil
	}
	if !bytes.Equal(data, tx.Data()) {
		u.logger.Sugar().Errorw("Gateway served data that differs from the upload",
			"id", tx.ID(),
			"expected_size", tx.DataSize(),
			"served_size", len(data),
		)
		return false, uploadErrors.Rejected("gateway served %d bytes that do not match the %d byte upload", len(data), tx.DataSize())
	}
	return true, nil
}

func (u *Uploader) record(tx *transaction.SignedTransaction, address, contentType string, submission *gateway.SubmitResult, verified bool) *types.Receipt {
	receipt := &types.Receipt{
		ID:           tx.ID(),
		OwnerAddress: address,
		ContentType:  contentType,
		DataSize:     tx.DataSize(),
		TagCount:     len(tx.Tags()),
		Outcome:      string(submission.Outcome),
		StatusCode:   submission.StatusCode,
		StatusText:   submission.StatusText,
		URL:          submission.URL,
		SubmittedAt:  u.now().UnixMilli(),
		Verified:     verified,
	}
	if u.receipts == nil {
		return receipt
	}
	if err := u.receipts.SaveReceipt(receipt); err != nil {
		u.logger.Sugar().Warnw("Failed to save receipt", "id", receipt.ID, "error", err)
	}
	return receipt
}

// Receipt returns a receipt recorded by this process, or nil when unknown
func (u *Uploader) Receipt(id string) (*types.Receipt, error) {
	if u.receipts == nil {
		return nil, nil
	}
	return u.receipts.LoadReceipt(id)
}

// Receipts lists recorded receipts, newest first
func (u *Uploader) Receipts(limit int) ([]*types.Receipt, error) {
	if u.receipts == nil {
		return []*types.Receipt{}, nil
	}
	return u.receipts.ListReceipts(limit)
}

// Address returns the wallet address uploads are signed with
func (u *Uploader) Address(ctx context.Context) (string, error) {
	return u.signer.GetAddress(ctx)
}

// HealthCheck reports whether the receipt store is usable
func (u *Uploader) HealthCheck() error {
	if u.receipts == nil {
		return nil
	}
	return u.receipts.HealthCheck()
}
