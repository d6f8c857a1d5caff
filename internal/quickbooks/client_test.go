package quickbooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnserBeg/rent-soft-sub001/internal/config"
	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
	"github.com/AnserBeg/rent-soft-sub001/internal/testutil"
)

func newTestClient(fn testutil.RoundTripFunc, minorVersion int) *Client {
	return NewClientWithHTTP(testutil.NewTestHTTPClient(fn), minorVersion, logger.NewNopLogger())
}

func testRequest(path string) apiRequest {
	return apiRequest{
		Host:        "https://sandbox-quickbooks.api.intuit.com",
		RealmID:     "realm-7",
		AccessToken: "access-1",
		Method:      http.MethodGet,
		Path:        path,
	}
}

func TestClientBuildsResourceURL(t *testing.T) {
	var got *http.Request
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		got = req
		return testutil.JSONResponse(200, `{"Invoice":{"Id":"1"}}`, nil), nil
	}, 65)

	_, err := client.Do(context.Background(), testRequest("invoice/129"))
	require.NoError(t, err)

	assert.Equal(t, "sandbox-quickbooks.api.intuit.com", got.URL.Host)
	assert.Equal(t, "/v3/company/realm-7/invoice/129", got.URL.Path)
	assert.Equal(t, "65", got.URL.Query().Get("minorversion"))
	assert.Equal(t, "Bearer access-1", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
}

func TestClientKeepsExplicitMinorVersion(t *testing.T) {
	var got *http.Request
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		got = req
		return testutil.JSONResponse(200, `{}`, nil), nil
	}, 65)

	_, err := client.Do(context.Background(), testRequest("invoice/129?minorversion=40"))
	require.NoError(t, err)
	assert.Equal(t, "40", got.URL.Query().Get("minorversion"))
}

func TestClientParsesFaultEvenOn200(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return testutil.JSONResponse(200, `{"Fault":{"Error":[{"Message":"Object Not Found","Detail":"Invoice 129 not found","code":"610"}],"type":"ValidationFault"}}`,
			map[string]string{"intuit_tid": "tid-123"}), nil
	}, 0)

	_, err := client.Do(context.Background(), testRequest("invoice/129"))
	require.Error(t, err)
	assert.True(t, ierr.IsHTTPClient(err))

	remote, ok := AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, RemoteErrorFault, remote.Kind)
	assert.Equal(t, "610", remote.Code)
	assert.Equal(t, "Object Not Found", remote.Message)
	assert.Equal(t, "tid-123", remote.IntuitTID)
	assert.Equal(t, "invoice/129", remote.Path)
	assert.Equal(t, "realm-7", remote.RealmID)
	assert.False(t, remote.AuthInvalid())
}

func TestClientClassifiesAuthFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"401 is always auth-invalid", 401, `{}`, true},
		{"403 is always auth-invalid", 403, `{}`, true},
		{"400 invalid_grant", 400, `{"error":"invalid_grant"}`, true},
		{"fault mentioning a revoked token", 400, `{"Fault":{"Error":[{"Message":"Token revoked","code":"3202"}]}}`, true},
		{"plain 400 is the caller's problem", 400, `{"error":"invalid_request"}`, false},
		{"500 is not auth-invalid", 500, `{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(func(req *http.Request) (*http.Response, error) {
				return testutil.JSONResponse(tt.status, tt.body, nil), nil
			}, 0)

			_, err := client.Do(context.Background(), testRequest("invoice/1"))
			require.Error(t, err)
			assert.Equal(t, tt.want, IsAuthInvalid(err))
		})
	}
}

func TestClientSendsCreateExactlyOnceOn5xx(t *testing.T) {
	posts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
		}
		w.Header().Set("intuit_tid", "tid-502")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream unavailable"}`))
	}))
	defer srv.Close()

	client := NewClient(config.QuickBooksConfig{MinorVersion: 65}, logger.NewNopLogger())
	_, err := client.Do(context.Background(), apiRequest{
		Host:        srv.URL,
		RealmID:     "realm-7",
		AccessToken: "access-1",
		Method:      http.MethodPost,
		Path:        "invoice",
		Body:        map[string]string{"DocNumber": "RO-1042-2024-03"},
	})
	require.Error(t, err)

	// A create that fails must not be re-sent: QuickBooks would draft the
	// document twice and the local doc-number check runs before the call.
	assert.Equal(t, 1, posts)

	remote, ok := AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, RemoteErrorHTTP, remote.Kind)
	assert.Equal(t, http.StatusBadGateway, remote.Status)
	assert.Contains(t, remote.Body, "upstream unavailable")
	assert.Equal(t, "tid-502", remote.IntuitTID)
}

func TestClientWrapsNetworkFailures(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, assert.AnError
	}, 0)

	_, err := client.Do(context.Background(), testRequest("invoice/1"))
	require.Error(t, err)

	remote, ok := AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, RemoteErrorNetwork, remote.Kind)
	assert.Zero(t, remote.Status)
}
