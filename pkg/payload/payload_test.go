package payload

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTextUpload(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantData  string
		wantType  string
		wantTags  types.Tags
		wantField string
		wantMsg   string
	}{
		{
			name:     "data only defaults content type",
			body:     `{"data":"Hello Arweave!"}`,
			wantData: "Hello Arweave!",
			wantType: "text/plain",
		},
		{
			name:     "explicit content type",
			body:     `{"data":"<p>hi</p>","contentType":"text/html"}`,
			wantData: "<p>hi</p>",
			wantType: "text/html",
		},
		{
			name:     "empty content type falls back",
			body:     `{"data":"x","contentType":""}`,
			wantData: "x",
			wantType: "text/plain",
		},
		{
			name:     "empty string is a valid payload",
			body:     `{"data":""}`,
			wantData: "",
			wantType: "text/plain",
		},
		{
			name:     "tags kept in order",
			body:     `{"data":"x","tags":[{"name":"b","value":"2"},{"name":"a","value":""}]}`,
			wantData: "x",
			wantType: "text/plain",
			wantTags: types.Tags{{Name: "b", Value: "2"}, {Name: "a", Value: ""}},
		},
		{
			name:      "missing data",
			body:      `{"contentType":"text/plain"}`,
			wantField: "data",
			wantMsg:   "data is required",
		},
		{
			name:      "null data",
			body:      `{"data":null}`,
			wantField: "data",
			wantMsg:   "data is required",
		},
		{
			name:      "numeric data",
			body:      `{"data":42}`,
			wantField: "data",
			wantMsg:   "data must be a string",
		},
		{
			name:      "object data",
			body:      `{"data":{"a":1}}`,
			wantField: "data",
			wantMsg:   "data must be a string",
		},
		{
			name:      "non-string content type",
			body:      `{"data":"x","contentType":7}`,
			wantField: "contentType",
		},
		{
			name:      "tags not an array",
			body:      `{"data":"x","tags":"nope"}`,
			wantField: "tags",
		},
		{
			name:      "tag without name",
			body:      `{"data":"x","tags":[{"value":"v"}]}`,
			wantField: "tags[0].name",
		},
		{
			name:      "tag with numeric value",
			body:      `{"data":"x","tags":[{"name":"a","value":"1"},{"name":"b","value":2}]}`,
			wantField: "tags[1].value",
		},
		{
			name:      "array body",
			body:      `["data"]`,
			wantField: "body",
		},
		{
			name:      "empty body",
			body:      ``,
			wantField: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upload, err := ValidateTextUpload([]byte(tt.body))
			if tt.wantField != "" {
				require.Error(t, err)
				assert.Nil(t, upload)
				assert.Equal(t, uploadErrors.KindValidation, uploadErrors.KindOf(err))
				assert.ErrorIs(t, err, &uploadErrors.Error{Kind: uploadErrors.KindValidation, Field: tt.wantField})
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, uploadErrors.PublicMessage(err))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, string(upload.Data))
			assert.Equal(t, tt.wantType, upload.ContentType)
			assert.Equal(t, tt.wantTags, upload.Tags)
		})
	}
}

func TestValidateTextUpload_InvalidJSON(t *testing.T) {
	_, err := ValidateTextUpload([]byte(`{"data":`))
	require.Error(t, err)
	assert.Equal(t, uploadErrors.KindValidation, uploadErrors.KindOf(err))
}

func TestValidateTextUpload_Deterministic(t *testing.T) {
	body := []byte(`{"data":17}`)
	_, first := ValidateTextUpload(body)
	_, second := ValidateTextUpload(body)
	require.Error(t, first)
	assert.Equal(t, first.Error(), second.Error())
}

func TestValidateTextUpload_SizeLimit(t *testing.T) {
	v := NewValidator(8)

	_, err := v.ValidateTextUpload([]byte(`{"data":"12345678"}`))
	require.NoError(t, err)

	_, err = v.ValidateTextUpload([]byte(`{"data":"123456789"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, &uploadErrors.Error{Kind: uploadErrors.KindValidation, Field: "data"})
	assert.Contains(t, err.Error(), "exceeds")
}

func TestNewValidator_Default(t *testing.T) {
	assert.Equal(t, DefaultMaxBytes, NewValidator(0).MaxBytes())
	assert.Equal(t, int64(5), NewValidator(5).MaxBytes())
}

type filePart struct {
	field       string
	filename    string
	contentType string
	content     string
}

func buildForm(t *testing.T, parts ...filePart) *multipart.Form {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.WriteField("note", "ignored"))
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form
}

func TestValidateFileUpload(t *testing.T) {
	form := buildForm(t, filePart{field: "file", filename: "hello.txt", contentType: "text/plain", content: "Hello Arweave!"})

	upload, err := ValidateFileUpload(form)
	require.NoError(t, err)
	assert.Equal(t, "Hello Arweave!", string(upload.Data))
	assert.Equal(t, "hello.txt", upload.Filename)
	assert.Equal(t, "text/plain", upload.ContentType)
	assert.Equal(t, int64(14), upload.Size)
}

func TestValidateFileUpload_DefaultContentType(t *testing.T) {
	form := buildForm(t, filePart{field: "file", filename: "blob.bin", content: "\x00\x01\x02"})

	upload, err := ValidateFileUpload(form)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", upload.ContentType)
	assert.Equal(t, []byte{0, 1, 2}, upload.Data)
}

func TestValidateFileUpload_MissingFile(t *testing.T) {
	for name, form := range map[string]*multipart.Form{
		"nil form":     nil,
		"no parts":     {},
		"wrong field":  buildForm(t, filePart{field: "upload", filename: "a.txt", content: "a"}),
		"only a value": {Value: map[string][]string{"file": {"not a file"}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateFileUpload(form)
			require.Error(t, err)
			assert.Equal(t, "file is required", uploadErrors.PublicMessage(err))
			assert.ErrorIs(t, err, &uploadErrors.Error{Kind: uploadErrors.KindValidation, Field: "file"})
		})
	}
}

func TestValidateFileUpload_SizeLimit(t *testing.T) {
	form := buildForm(t, filePart{field: "file", filename: "big.bin", content: strings.Repeat("a", 16)})

	_, err := NewValidator(15).ValidateFileUpload(form)
	require.Error(t, err)
	assert.Equal(t, uploadErrors.KindValidation, uploadErrors.KindOf(err))

	upload, err := NewValidator(16).ValidateFileUpload(form)
	require.NoError(t, err)
	assert.Equal(t, int64(16), upload.Size)
}

func TestTagsWithContentType(t *testing.T) {
	tags := types.Tags{{Name: "App-Name", Value: "x"}}

	out := TagsWithContentType("text/plain", tags)
	assert.Equal(t, types.Tags{{Name: "Content-Type", Value: "text/plain"}, {Name: "App-Name", Value: "x"}}, out)
	assert.Len(t, tags, 1)

	existing := types.Tags{{Name: "content-type", Value: "image/png"}}
	assert.Equal(t, existing, TagsWithContentType("text/plain", existing))

	assert.Equal(t, types.Tags{{Name: "Content-Type", Value: "text/plain"}}, TagsWithContentType("text/plain", nil))
}
