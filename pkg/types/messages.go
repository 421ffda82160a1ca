package types

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Arweave   string `json:"arweave"`
}

// UploadResponse is returned by a successful upload. File fields are only set for
// multipart uploads.
type UploadResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	URL           string `json:"url"`
	Filename      string `json:"filename,omitempty"`
	Size          *int64 `json:"size,omitempty"`
	Type          string `json:"type,omitempty"`
}

// ErrorResponse is the envelope for every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

// ReceiptResponse is returned by GET /tx/{id}
type ReceiptResponse struct {
	Success bool     `json:"success"`
	Receipt *Receipt `json:"receipt"`
}

// Receipt records one submission made by this process. It never carries key material
// or payload bytes.
type Receipt struct {
	ID           string `json:"id"`
	OwnerAddress string `json:"ownerAddress"`
	ContentType  string `json:"contentType"`
	DataSize     int64  `json:"dataSize"`
	TagCount     int    `json:"tagCount"`
	Outcome      string `json:"outcome"`
	StatusCode   int    `json:"statusCode"`
	StatusText   string `json:"statusText,omitempty"`
	URL          string `json:"url,omitempty"`
	SubmittedAt  int64  `json:"submittedAt"`
	Verified     bool   `json:"verified"`
}
