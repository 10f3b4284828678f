// Package pipelinetest provides typed test helpers for pipeline routers and
// handlers.
package pipelinetest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bjaus/pipeline"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server
	Header http.Header
}

// NewClient creates a test client from a router.
func NewClient(t testing.TB, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{Server: srv, Header: make(http.Header)}
}

// Response holds a decoded response. Body is set for successful responses
// with content, Error for error responses.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
	Error   *pipeline.ErrorDetail
	Raw     []byte
}

// Get sends a typed GET request.
func Get[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil)
}

// Post sends a typed POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, body)
}

// Put sends a typed PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, body)
}

// Patch sends a typed PATCH request with a JSON body.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPatch, path, body)
}

// Delete sends a typed DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodDelete, path, nil)
}

func do[Resp any](t testing.TB, c *Client, method, path string, body any) *Response[Resp] {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("pipelinetest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("pipelinetest: create request: %v", err)
	}
	for k, vs := range c.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("pipelinetest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("pipelinetest: close body: %v", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("pipelinetest: read body: %v", err)
	}

	return decode[Resp](resp.StatusCode, resp.Header, raw)
}

// Call runs h in-process against r and decodes the result.
func Call[Resp any](t testing.TB, h pipeline.HandlerFunc, r *pipeline.Request) *Response[Resp] {
	t.Helper()

	resp := h(context.Background(), r)
	if resp == nil {
		t.Fatalf("pipelinetest: handler returned a nil response")
	}
	return decode[Resp](resp.Status, resp.Header, resp.Body)
}

func decode[Resp any](status int, header http.Header, raw []byte) *Response[Resp] {
	result := &Response[Resp]{
		Status:  status,
		Headers: header,
		Raw:     raw,
	}
	if len(raw) == 0 {
		return result
	}

	if status >= http.StatusBadRequest {
		var eb pipeline.ErrorBody
		if err := json.Unmarshal(raw, &eb); err == nil {
			result.Error = &eb.Error
		}
		return result
	}

	var decoded Resp
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&decoded); err != nil && !errors.Is(err, io.EOF) {
		return result
	}
	result.Body = &decoded
	return result
}
