package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

// defaultMultipartMemory is the smallest memory budget given to the form
// parser.
const defaultMultipartMemory = 32 << 20

// FileUpload holds a parsed file from a multipart form upload.
type FileUpload struct {
	Filename string
	Size     int64
	Header   *multipart.FileHeader
}

// Open returns a reader for the uploaded file contents.
func (f *FileUpload) Open() (io.ReadCloser, error) {
	if f.Header == nil {
		return nil, fmt.Errorf("no file header")
	}
	return f.Header.Open()
}

// Multipart extracts a multipart/form-data body.
type Multipart struct {
	Form *multipart.Form
}

// Extract implements Extractor.
func (m *Multipart) Extract(_ context.Context, r *Request) error {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return UnsupportedMediaType("expected multipart/form-data")
	}

	data, err := takeBytes(r)
	if err != nil {
		return err
	}

	// The body is already in memory; a budget covering all of it keeps file
	// parts out of temporary files.
	form, err := multipart.NewReader(bytes.NewReader(data), params["boundary"]).
		ReadForm(max(defaultMultipartMemory, int64(len(data))))
	if err != nil {
		if errors.Is(err, multipart.ErrMessageTooLarge) {
			return PayloadTooLarge(http.StatusText(http.StatusRequestEntityTooLarge))
		}
		return BadRequest(fmt.Sprintf("%v: %v", ErrBindBody, err))
	}
	m.Form = form
	return nil
}

// Value returns the first value of the named field.
func (m *Multipart) Value(name string) string {
	if m.Form == nil || len(m.Form.Value[name]) == 0 {
		return ""
	}
	return m.Form.Value[name][0]
}

// File returns the first file uploaded under fieldName.
func (m *Multipart) File(fieldName string) (*FileUpload, error) {
	if m.Form == nil || len(m.Form.File[fieldName]) == 0 {
		return nil, fmt.Errorf("form file %q: %w", fieldName, http.ErrMissingFile)
	}
	header := m.Form.File[fieldName][0]
	return &FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Header:   header,
	}, nil
}
