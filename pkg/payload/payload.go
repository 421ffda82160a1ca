// Package payload validates inbound upload requests before anything touches the key
// or the network.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/samber/lo"
)

const (
	DefaultTextContentType = "text/plain"
	DefaultFileContentType = "application/octet-stream"

	// DefaultMaxBytes is the largest payload accepted when no limit is configured
	DefaultMaxBytes int64 = 10 * 1024 * 1024

	// FileField is the multipart form field carrying the uploaded file
	FileField = "file"
)

// TextUpload is a validated POST /upload-text body
type TextUpload struct {
	Data        []byte
	ContentType string
	Tags        types.Tags
}

// FileUpload is a validated multipart upload
type FileUpload struct {
	Data        []byte
	Filename    string
	ContentType string
	Size        int64
}

// Validator applies the request shape rules and the payload size limit.
type Validator struct {
	maxBytes int64
}

// NewValidator returns a validator rejecting payloads above maxBytes. A non-positive
// limit falls back to DefaultMaxBytes.
func NewValidator(maxBytes int64) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Validator{maxBytes: maxBytes}
}

func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

var defaultValidator = NewValidator(DefaultMaxBytes)

// ValidateTextUpload validates body with the default size limit
func ValidateTextUpload(body []byte) (*TextUpload, error) {
	return defaultValidator.ValidateTextUpload(body)
}

// ValidateFileUpload validates form with the default size limit
func ValidateFileUpload(form *multipart.Form) (*FileUpload, error) {
	return defaultValidator.ValidateFileUpload(form)
}

type textUploadRequest struct {
	Data        json.RawMessage `json:"data"`
	ContentType json.RawMessage `json:"contentType"`
	Tags        json.RawMessage `json:"tags"`
}

// ValidateTextUpload parses a JSON object {data, contentType?, tags?}. data must be a
// string; an empty string is a valid (empty) payload.
func (v *Validator) ValidateTextUpload(body []byte) (*TextUpload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, uploadErrors.ValidationField("body", "request body must be a JSON object")
	}

	var req textUploadRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, uploadErrors.Validation(err, "request body must be a JSON object")
	}

	if isAbsent(req.Data) {
		return nil, uploadErrors.ValidationField("data", "data is required")
	}
	var data string
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return nil, uploadErrors.ValidationField("data", "data must be a string")
	}
	if int64(len(data)) > v.maxBytes {
		return nil, tooLarge("data", int64(len(data)), v.maxBytes)
	}

	contentType := DefaultTextContentType
	if !isAbsent(req.ContentType) {
		var ct string
		if err := json.Unmarshal(req.ContentType, &ct); err != nil {
			return nil, uploadErrors.ValidationField("contentType", "contentType must be a string")
		}
		if ct = strings.TrimSpace(ct); ct != "" {
			contentType = ct
		}
	}

	tags, err := parseTags(req.Tags)
	if err != nil {
		return nil, err
	}

	return &TextUpload{
		Data:        []byte(data),
		ContentType: contentType,
		Tags:        tags,
	}, nil
}

func parseTags(raw json.RawMessage) (types.Tags, error) {
	if isAbsent(raw) {
		return nil, nil
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, uploadErrors.ValidationField("tags", "tags must be an array of {name, value} objects")
	}

	tags := make(types.Tags, 0, len(items))
	for i, item := range items {
		name, ok := stringField(item, "name")
		if !ok || name == "" {
			return nil, uploadErrors.ValidationField(fmt.Sprintf("tags[%d].name", i), "tags[%d].name must be a non-empty string", i)
		}
		value, ok := stringField(item, "value")
		if !ok {
			return nil, uploadErrors.ValidationField(fmt.Sprintf("tags[%d].value", i), "tags[%d].value must be a string", i)
		}
		tags = append(tags, types.Tag{Name: name, Value: value})
	}
	return tags, nil
}

func stringField(item map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := item[key]
	if !ok || isAbsent(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ValidateFileUpload requires a "file" part. The content type comes from the part
// header; the first file wins when several are sent.
func (v *Validator) ValidateFileUpload(form *multipart.Form) (*FileUpload, error) {
	if form == nil || len(form.File[FileField]) == 0 {
		return nil, uploadErrors.ValidationField(FileField, "file is required")
	}
	header := form.File[FileField][0]
	if header.Size > v.maxBytes {
		return nil, tooLarge(FileField, header.Size, v.maxBytes)
	}

	f, err := header.Open()
	if err != nil {
		return nil, uploadErrors.Validation(err, "failed to read uploaded file")
	}
	defer func() { _ = f.Close() }()

	// Read one extra byte so a part whose header under-reports its size is still caught
	data, err := io.ReadAll(io.LimitReader(f, v.maxBytes+1))
	if err != nil {
		return nil, uploadErrors.Validation(err, "failed to read uploaded file")
	}
	if int64(len(data)) > v.maxBytes {
		return nil, tooLarge(FileField, int64(len(data)), v.maxBytes)
	}

	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = DefaultFileContentType
	}

	return &FileUpload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func tooLarge(field string, size, limit int64) error {
	return uploadErrors.ValidationField(field, "payload of %d bytes exceeds the %d byte limit", size, limit)
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// TagsWithContentType returns tags with a leading Content-Type tag unless the caller
// already supplied one.
func TagsWithContentType(contentType string, tags types.Tags) types.Tags {
	if lo.ContainsBy(tags, func(t types.Tag) bool { return strings.EqualFold(t.Name, "Content-Type") }) {
		return tags.Clone()
	}
	out := make(types.Tags, 0, len(tags)+1)
	out = append(out, types.Tag{Name: "Content-Type", Value: contentType})
	return append(out, tags...)
}
