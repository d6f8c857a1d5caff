package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/AnserBeg/rent-soft-sub001/internal/config"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
)

// Endpoints are the three OAuth endpoints the integration talks to.
type Endpoints struct {
	AuthorizeURL string
	TokenURL     string
	RevokeURL    string
}

const (
	openIDDiscoveryURL = "https://developer.api.intuit.com/.well-known/openid_configuration"
	discoveryTimeout   = 5 * time.Second
)

// defaultEndpoints are the published Intuit endpoints, used whenever
// discovery fails or has not completed. They are stable enough that running
// on them is safe.
var defaultEndpoints = Endpoints{
	AuthorizeURL: "https://appcenter.intuit.com/connect/oauth2",
	TokenURL:     "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer",
	RevokeURL:    "https://developer.api.intuit.com/v2/oauth2/tokens/revoke",
}

// openIDConfiguration is the subset of the discovery document we read.
type openIDConfiguration struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	RevocationEndpoint    string `json:"revocation_endpoint"`
}

// EndpointResolver resolves OAuth endpoints from Intuit's OpenID discovery
// document, at most once per process. Discovery failure is non-fatal: the
// hardcoded defaults are used instead. Config overrides always win and are
// applied at read time, so they hold even after discovery succeeds.
type EndpointResolver struct {
	cfg          config.QuickBooksConfig
	httpClient   *http.Client
	logger       *logger.Logger
	discoveryURL string

	once     sync.Once
	resolved Endpoints
}

// NewEndpointResolver builds a resolver. The default client retries the
// fetch on transient failures: the discovery GET is idempotent and only runs
// once per process, so a retry costs nothing and can save a fallback to the
// static defaults.
func NewEndpointResolver(cfg config.QuickBooksConfig, httpClient *http.Client, log *logger.Logger) *EndpointResolver {
	if httpClient == nil {
		rc := retryablehttp.NewClient()
		rc.RetryMax = 2
		rc.HTTPClient.Timeout = discoveryTimeout
		rc.Logger = nil
		httpClient = rc.StandardClient()
	}
	return &EndpointResolver{
		cfg:          cfg,
		httpClient:   httpClient,
		logger:       log,
		discoveryURL: openIDDiscoveryURL,
		resolved:     defaultEndpoints,
	}
}

// Resolve returns the effective endpoints, fetching the discovery document on
// first use.
func (r *EndpointResolver) Resolve(ctx context.Context) Endpoints {
	r.once.Do(func() {
		if eps, err := r.fetch(ctx); err != nil {
			r.logger.Warnw("quickbooks endpoint discovery failed, using defaults", "error", err)
		} else {
			r.resolved = eps
		}
	})

	eps := r.resolved
	if r.cfg.AuthorizeURLOverride != "" {
		eps.AuthorizeURL = r.cfg.AuthorizeURLOverride
	}
	if r.cfg.TokenURLOverride != "" {
		eps.TokenURL = r.cfg.TokenURLOverride
	}
	if r.cfg.RevokeURLOverride != "" {
		eps.RevokeURL = r.cfg.RevokeURLOverride
	}
	return eps
}

func (r *EndpointResolver) fetch(ctx context.Context) (Endpoints, error) {
	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.discoveryURL, nil)
	if err != nil {
		return Endpoints{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Endpoints{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Endpoints{}, fmt.Errorf("discovery document returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Endpoints{}, err
	}

	var doc openIDConfiguration
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Endpoints{}, err
	}

	eps := defaultEndpoints
	if doc.AuthorizationEndpoint != "" {
		eps.AuthorizeURL = doc.AuthorizationEndpoint
	}
	if doc.TokenEndpoint != "" {
		eps.TokenURL = doc.TokenEndpoint
	}
	if doc.RevocationEndpoint != "" {
		eps.RevokeURL = doc.RevocationEndpoint
	}
	return eps, nil
}
