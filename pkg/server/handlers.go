package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploader"
)

const (
	kindNotFound    = "not_found"
	kindRateLimited = "rate_limited"

	// Room for JSON escaping and multipart framing around the payload itself
	requestOverheadBytes = 1 << 20

	// multipartMemoryBytes is kept in memory by ParseMultipartForm; larger parts spill to disk
	multipartMemoryBytes = 32 << 20

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(timestampLayout),
		Arweave:   "connected",
	})
}

// handleUploadText handles POST /upload-text
func (s *Server) handleUploadText(w http.ResponseWriter, r *http.Request) {
	// JSON string escaping can inflate a payload up to six times
	r.Body = http.MaxBytesReader(w, r.Body, 6*s.validator.MaxBytes()+requestOverheadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.fail(w, r, uploadErrors.Validation(err, "request body too large"), 0)
		return
	}

	upload, err := s.validator.ValidateTextUpload(body)
	if err != nil {
		s.fail(w, r, err, len(body))
		return
	}

	result, err := s.pipeline.Upload(r.Context(), &uploader.Request{
		Data:        upload.Data,
		ContentType: upload.ContentType,
		Tags:        upload.Tags,
	})
	if err != nil {
		s.fail(w, r, err, len(upload.Data))
		return
	}

	s.logUpload(r, result, len(upload.Data))
	writeJSON(w, http.StatusOK, types.UploadResponse{
		Success:       true,
		TransactionID: result.Transaction.ID(),
		URL:           result.Submission.URL,
	})
}

// handleUploadFile handles POST /upload-file
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.validator.MaxBytes()+requestOverheadBytes)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.fail(w, r, uploadErrors.ValidationField("file", "payload exceeds the %d byte limit", s.validator.MaxBytes()), 0)
			return
		}
		s.fail(w, r, uploadErrors.Validation(err, "invalid multipart form"), 0)
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	upload, err := s.validator.ValidateFileUpload(r.MultipartForm)
	if err != nil {
		s.fail(w, r, err, 0)
		return
	}

	result, err := s.pipeline.Upload(r.Context(), &uploader.Request{
		Data:        upload.Data,
		ContentType: upload.ContentType,
	})
	if err != nil {
		s.fail(w, r, err, len(upload.Data))
		return
	}

	s.logUpload(r, result, len(upload.Data))
	size := upload.Size
	writeJSON(w, http.StatusOK, types.UploadResponse{
		Success:       true,
		TransactionID: result.Transaction.ID(),
		URL:           result.Submission.URL,
		Filename:      upload.Filename,
		Size:          &size,
		Type:          upload.ContentType,
	})
}

// handleGetReceipt handles GET /tx/{id}
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	receipt, err := s.pipeline.Receipt(id)
	if err != nil {
		s.fail(w, r, err, 0)
		return
	}
	if receipt == nil {
		writeError(w, http.StatusNotFound, "transaction not found", kindNotFound)
		return
	}
	writeJSON(w, http.StatusOK, types.ReceiptResponse{Success: true, Receipt: receipt})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "endpoint not found", kindNotFound)
}

func (s *Server) logUpload(r *http.Request, result *uploader.Result, size int) {
	s.logger.Sugar().Infow("Upload completed",
		"request_id", RequestID(r.Context()),
		"endpoint", r.URL.Path,
		"id", result.Transaction.ID(),
		"bytes", size,
		"tag_count", len(result.Transaction.Tags()),
	)
}

// fail maps a pipeline error to its HTTP status and writes the envelope
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, size int) {
	kind := uploadErrors.KindOf(err)
	status := statusForKind(kind)

	log := s.logger.Sugar().Errorw
	if status < http.StatusInternalServerError {
		log = s.logger.Sugar().Warnw
	}
	log("Request failed",
		"request_id", RequestID(r.Context()),
		"endpoint", r.URL.Path,
		"kind", kind,
		"bytes", size,
		"error", err,
	)

	writeError(w, status, uploadErrors.PublicMessage(err), kind.String())
}

func statusForKind(kind uploadErrors.Kind) int {
	if kind == uploadErrors.KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, types.ErrorResponse{
		Success: false,
		Error:   message,
		Kind:    kind,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
