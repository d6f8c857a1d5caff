package quickbooks

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AnserBeg/rent-soft-sub001/internal/config"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
	"github.com/AnserBeg/rent-soft-sub001/internal/testutil"
)

const discoveryDoc = `{
	"authorization_endpoint": "https://discovered.test/authorize",
	"token_endpoint": "https://discovered.test/token",
	"revocation_endpoint": "https://discovered.test/revoke"
}`

func TestEndpointResolverUsesDiscoveredEndpoints(t *testing.T) {
	fetches := 0
	httpClient := testutil.NewTestHTTPClient(func(req *http.Request) (*http.Response, error) {
		fetches++
		assert.Equal(t, "developer.api.intuit.com", req.URL.Host)
		return testutil.JSONResponse(200, discoveryDoc, nil), nil
	})
	resolver := NewEndpointResolver(config.QuickBooksConfig{}, httpClient, logger.NewNopLogger())

	eps := resolver.Resolve(context.Background())
	assert.Equal(t, "https://discovered.test/authorize", eps.AuthorizeURL)
	assert.Equal(t, "https://discovered.test/token", eps.TokenURL)
	assert.Equal(t, "https://discovered.test/revoke", eps.RevokeURL)

	// The document is fetched once per process, not per call.
	resolver.Resolve(context.Background())
	assert.Equal(t, 1, fetches)
}

func TestEndpointResolverFallsBackToDefaults(t *testing.T) {
	httpClient := testutil.NewTestHTTPClient(func(req *http.Request) (*http.Response, error) {
		return testutil.JSONResponse(503, `{}`, nil), nil
	})
	resolver := NewEndpointResolver(config.QuickBooksConfig{}, httpClient, logger.NewNopLogger())

	eps := resolver.Resolve(context.Background())
	assert.Equal(t, "https://appcenter.intuit.com/connect/oauth2", eps.AuthorizeURL)
	assert.Equal(t, "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer", eps.TokenURL)
	assert.Equal(t, "https://developer.api.intuit.com/v2/oauth2/tokens/revoke", eps.RevokeURL)
}

func TestEndpointResolverConfigOverridesWin(t *testing.T) {
	cfg := config.QuickBooksConfig{
		TokenURLOverride: "https://override.test/token",
	}
	httpClient := testutil.NewTestHTTPClient(func(req *http.Request) (*http.Response, error) {
		return testutil.JSONResponse(200, discoveryDoc, nil), nil
	})
	resolver := NewEndpointResolver(cfg, httpClient, logger.NewNopLogger())

	eps := resolver.Resolve(context.Background())
	// The override beats the discovered endpoint; the rest stay discovered.
	assert.Equal(t, "https://override.test/token", eps.TokenURL)
	assert.Equal(t, "https://discovered.test/authorize", eps.AuthorizeURL)
}

func TestEndpointResolverPartialDocumentKeepsDefaults(t *testing.T) {
	httpClient := testutil.NewTestHTTPClient(func(req *http.Request) (*http.Response, error) {
		return testutil.JSONResponse(200, `{"token_endpoint":"https://discovered.test/token"}`, nil), nil
	})
	resolver := NewEndpointResolver(config.QuickBooksConfig{}, httpClient, logger.NewNopLogger())

	eps := resolver.Resolve(context.Background())
	assert.Equal(t, "https://discovered.test/token", eps.TokenURL)
	assert.Equal(t, "https://appcenter.intuit.com/connect/oauth2", eps.AuthorizeURL)
}
