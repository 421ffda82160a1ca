package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/config"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transaction"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/util"
	"go.uber.org/zap"
)

const (
	// DefaultMaxResponseBytes caps data read back from the gateway
	DefaultMaxResponseBytes = 64 * 1024 * 1024

	// maxErrorBodyBytes caps the error text kept from a non-2xx response
	maxErrorBodyBytes = 4096
)

// ErrNotFound is returned when the gateway does not know a transaction or its data yet
var ErrNotFound = errors.New("not found")

type ClientConfig struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// SubmitResult describes the gateway's answer to POST /tx
type SubmitResult struct {
	ID         string
	URL        string
	Outcome    Outcome
	StatusCode int
	StatusText string
	Body       string
}

// TxStatus is the confirmation state of a transaction
type TxStatus struct {
	Status        string `json:"status"`
	BlockHeight   int64  `json:"block_height,omitempty"`
	BlockHash     string `json:"block_indep_hash,omitempty"`
	Confirmations int64  `json:"number_of_confirmations,omitempty"`
}

const (
	TxStatusConfirmed = "confirmed"
	TxStatusPending   = "pending"
	TxStatusNotFound  = "not_found"
)

// Client talks to a single gateway node
type Client struct {
	baseURL          string
	maxResponseBytes int64
	httpClient       *http.Client
	logger           *zap.Logger
}

func NewClient(cfg *ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gateway config is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway url %q", cfg.BaseURL)
	}
	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}
	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		maxResponseBytes: maxBytes,
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		logger:           logger,
	}, nil
}

// NewClientFromConfig builds a client for the configured gateway
func NewClientFromConfig(gc *config.GatewayConfig, logger *zap.Logger) (*Client, error) {
	return NewClient(&ClientConfig{BaseURL: gc.BaseURL(), Timeout: gc.Timeout}, logger)
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) TransactionURL(id string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, id)
}

func (c *Client) Price(ctx context.Context, dataSize int64) (string, error) {
	if dataSize < 0 {
		return "", uploadErrors.ValidationField("dataSize", "data size must not be negative")
	}
	body, err := c.getText(ctx, fmt.Sprintf("/price/%d", dataSize))
	if err != nil {
		return "", err
	}
	if !isDigits(body) {
		return "", uploadErrors.Network(nil, "gateway returned an invalid price %q", truncate(body, 64))
	}
	return body, nil
}

func (c *Client) Anchor(ctx context.Context) (string, error) {
	body, err := c.getText(ctx, "/tx_anchor")
	if err != nil {
		return "", err
	}
	if decoded, err := util.B64UrlDecode(body); err != nil || len(decoded) == 0 {
		return "", uploadErrors.Network(nil, "gateway returned an invalid anchor")
	}
	return body, nil
}

func (c *Client) Submit(ctx context.Context, tx *transaction.SignedTransaction) (*SubmitResult, error) {
	if tx == nil {
		return nil, uploadErrors.Validation(nil, "transaction is nil")
	}
	payload, err := json.Marshal(tx.ToWire())
	if err != nil {
		return nil, uploadErrors.Validation(err, "failed to encode transaction")
	}

	resp, err := c.do(ctx, http.MethodPost, "/tx", bytes.NewReader(payload), "application/json")
	if err != nil {
		c.logger.Sugar().Warnw("Transaction submission failed", "id", tx.ID(), "error", err)
		return &SubmitResult{ID: tx.ID(), Outcome: OutcomeTransient}, uploadErrors.Transient(err, "failed to reach gateway")
	}
	defer func() { _ = resp.Body.Close() }()

	bodyText := readErrorBody(resp.Body)
	result := &SubmitResult{
		ID:         tx.ID(),
		Outcome:    Classify(resp.StatusCode, nil),
		StatusCode: resp.StatusCode,
		StatusText: reasonPhrase(resp),
		Body:       bodyText,
	}

	c.logger.Sugar().Infow("Submitted transaction",
		"id", tx.ID(),
		"status", resp.StatusCode,
		"outcome", string(result.Outcome),
		"data_size", tx.DataSize(),
	)

	switch result.Outcome {
	case OutcomeAccepted:
		result.URL = c.TransactionURL(tx.ID())
		return result, nil
	case OutcomeTransient:
		return result, uploadErrors.Transient(nil, "gateway error %d: %s", resp.StatusCode, detail(result))
	default:
		return result, uploadErrors.Rejected("%s", detail(result))
	}
}

func (c *Client) GetData(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, uploadErrors.ValidationField("id", "transaction id is required")
	}
	resp, err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, c.transportError(ctx, err, "failed to read transaction data")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "read transaction data")
	}
	return c.readBody(resp.Body)
}

func (c *Client) Status(ctx context.Context, id string) (*TxStatus, error) {
	if id == "" {
		return nil, uploadErrors.ValidationField("id", "transaction id is required")
	}
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tx/%s/status", url.PathEscape(id)), nil, "")
	if err != nil {
		return nil, c.transportError(ctx, err, "failed to fetch transaction status")
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		status := &TxStatus{}
		body, err := c.readBody(resp.Body)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, status); err != nil {
			return nil, uploadErrors.Network(err, "gateway returned an invalid status document")
		}
		status.Status = TxStatusConfirmed
		return status, nil
	case http.StatusAccepted:
		return &TxStatus{Status: TxStatusPending}, nil
	case http.StatusNotFound:
		return &TxStatus{Status: TxStatusNotFound}, nil
	default:
		return nil, statusError(resp, "fetch transaction status")
	}
}

func (c *Client) Balance(ctx context.Context, address string) (string, error) {
	if address == "" {
		return "", uploadErrors.ValidationField("address", "wallet address is required")
	}
	body, err := c.getText(ctx, fmt.Sprintf("/wallet/%s/balance", url.PathEscape(address)))
	if err != nil {
		return "", err
	}
	if !isDigits(body) {
		return "", uploadErrors.Network(nil, "gateway returned an invalid balance")
	}
	return body, nil
}

func (c *Client) getText(ctx context.Context, path string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return "", c.transportError(ctx, err, fmt.Sprintf("GET %s failed", path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp, "GET "+path)
	}
	body, err := c.readBody(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.maxResponseBytes+1))
	if err != nil {
		return nil, uploadErrors.Network(err, "failed to read gateway response")
	}
	if int64(len(body)) > c.maxResponseBytes {
		return nil, uploadErrors.Network(nil, "gateway response exceeds %d bytes", c.maxResponseBytes)
	}
	return body, nil
}

// transportError classifies a failed round trip: an expired deadline is transient,
// anything else is a network error.
func (c *Client) transportError(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil || isTimeout(err) {
		return uploadErrors.Transient(err, "%s: request timed out", msg)
	}
	return uploadErrors.Network(err, "%s", msg)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func statusError(resp *http.Response, op string) error {
	text := readErrorBody(resp.Body)
	if resp.StatusCode >= 500 {
		return uploadErrors.Transient(nil, "%s: gateway returned %d %s", op, resp.StatusCode, truncate(text, 256))
	}
	return uploadErrors.Network(nil, "%s: gateway returned %d %s", op, resp.StatusCode, truncate(text, 256))
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	return string(body)
}

// reasonPhrase extracts "Bad Request" from "400 Bad Request"
func reasonPhrase(resp *http.Response) string {
	if _, phrase, ok := strings.Cut(resp.Status, " "); ok {
		return phrase
	}
	return http.StatusText(resp.StatusCode)
}

// detail is the gateway's own explanation, kept verbatim
func detail(r *SubmitResult) string {
	if strings.TrimSpace(r.Body) != "" {
		return r.Body
	}
	if r.StatusText != "" {
		return r.StatusText
	}
	return strconv.Itoa(r.StatusCode)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
