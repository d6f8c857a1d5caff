package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// RoundTripFunc lets a test stand in for an HTTP transport.
type RoundTripFunc func(req *http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// NewTestHTTPClient returns an http.Client whose requests are answered by fn.
func NewTestHTTPClient(fn RoundTripFunc) *http.Client {
	return &http.Client{Transport: fn}
}

// JSONResponse builds an HTTP response with a JSON string body.
func JSONResponse(status int, body string, headers map[string]string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	return resp
}

// APIRequesterFunc adapts a function to the accounting API requester seam.
type APIRequesterFunc func(ctx context.Context, companyID int, method, path string, body any) (json.RawMessage, error)

func (f APIRequesterFunc) Request(ctx context.Context, companyID int, method, path string, body any) (json.RawMessage, error) {
	return f(ctx, companyID, method, path, body)
}
