package quickbooks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AnserBeg/rent-soft-sub001/internal/config"
	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
)

// DefaultOAuthScope requests accounting access plus the identity claims used
// when linking a connection to a company.
const DefaultOAuthScope = "com.intuit.quickbooks.accounting openid profile email"

// TokenGrant is a normalized token-endpoint response.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	// ExpiresIn / RefreshTokenExpiresIn are lifetimes in seconds from grant time.
	ExpiresIn             int64
	RefreshTokenExpiresIn int64
}

// AccessTokenExpiry converts the access-token lifetime to an absolute time.
func (g TokenGrant) AccessTokenExpiry(now time.Time) *time.Time {
	if g.ExpiresIn <= 0 {
		return nil
	}
	t := now.Add(time.Duration(g.ExpiresIn) * time.Second)
	return &t
}

// RefreshTokenExpiry converts the refresh-token lifetime to an absolute time.
func (g TokenGrant) RefreshTokenExpiry(now time.Time) *time.Time {
	if g.RefreshTokenExpiresIn <= 0 {
		return nil
	}
	t := now.Add(time.Duration(g.RefreshTokenExpiresIn) * time.Second)
	return &t
}

// OAuthClient performs the token-endpoint grants and revocation. Persistence
// and expiry policy live in Manager; this type only speaks the protocol.
type OAuthClient struct {
	cfg        config.QuickBooksConfig
	resolver   *EndpointResolver
	httpClient *http.Client
	logger     *logger.Logger
}

func NewOAuthClient(cfg config.QuickBooksConfig, resolver *EndpointResolver, httpClient *http.Client, log *logger.Logger) *OAuthClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuthClient{cfg: cfg, resolver: resolver, httpClient: httpClient, logger: log}
}

// AuthorizeURL builds the consent URL the platform redirects a tenant to.
func (o *OAuthClient) AuthorizeURL(ctx context.Context, state string) (string, error) {
	if err := o.requireCredentials(); err != nil {
		return "", err
	}
	eps := o.resolver.Resolve(ctx)
	q := url.Values{}
	q.Set("client_id", o.cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", DefaultOAuthScope)
	q.Set("redirect_uri", o.cfg.RedirectURI)
	q.Set("state", state)
	return eps.AuthorizeURL + "?" + q.Encode(), nil
}

// ExchangeAuthCode trades an authorization code for tokens.
func (o *OAuthClient) ExchangeAuthCode(ctx context.Context, code string) (*TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", o.cfg.RedirectURI)
	return o.tokenGrant(ctx, form)
}

// Refresh trades a refresh token for a new token pair. QuickBooks may rotate
// the refresh token; when the response omits one the caller keeps the old.
func (o *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return o.tokenGrant(ctx, form)
}

// Revoke invalidates a token at Intuit. Callers treat failure as best-effort:
// local connection teardown proceeds regardless.
func (o *OAuthClient) Revoke(ctx context.Context, token string) error {
	if err := o.requireCredentials(); err != nil {
		return err
	}
	eps := o.resolver.Resolve(ctx)

	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eps.RevokeURL, strings.NewReader(string(payload)))
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	req.Header.Set("Authorization", o.basicAuth())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return ierr.WithError(&RemoteError{
			Kind:    RemoteErrorNetwork,
			Message: err.Error(),
			Method:  http.MethodPost,
			Path:    "oauth/revoke",
		}).Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return ierr.WithError(o.tokenError(resp, raw, "oauth/revoke")).
			WithHint("QuickBooks token revocation failed").
			Mark(ierr.ErrHTTPClient)
	}
	return nil
}

// tokenGrant posts a form-encoded grant to the token endpoint with Basic
// client authentication.
func (o *OAuthClient) tokenGrant(ctx context.Context, form url.Values) (*TokenGrant, error) {
	if err := o.requireCredentials(); err != nil {
		return nil, err
	}
	eps := o.resolver.Resolve(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eps.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	req.Header.Set("Authorization", o.basicAuth())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, ierr.WithError(&RemoteError{
			Kind:    RemoteErrorNetwork,
			Message: err.Error(),
			Method:  http.MethodPost,
			Path:    "oauth/token",
		}).
			WithHint("QuickBooks token endpoint is unreachable").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remote := o.tokenError(resp, raw, "oauth/token")
		o.logger.Warnw("quickbooks token grant failed",
			"grant_type", form.Get("grant_type"),
			"status", remote.Status,
			"code", remote.Code,
			"intuit_tid", remote.IntuitTID,
		)
		return nil, ierr.WithError(remote).
			WithHint("QuickBooks token grant failed").
			Mark(ierr.ErrHTTPClient)
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, ierr.WithError(err).
			WithHint("QuickBooks token response was not valid JSON").
			Mark(ierr.ErrHTTPClient)
	}
	if tok.AccessToken == "" {
		return nil, ierr.NewError("token response missing access_token").
			WithHint("QuickBooks token response was incomplete").
			Mark(ierr.ErrHTTPClient)
	}
	return &TokenGrant{
		AccessToken:           tok.AccessToken,
		RefreshToken:          tok.RefreshToken,
		TokenType:             tok.TokenType,
		Scope:                 tok.Scope,
		ExpiresIn:             tok.ExpiresIn,
		RefreshTokenExpiresIn: tok.RefreshTokenExpiresIn,
	}, nil
}

func (o *OAuthClient) tokenError(resp *http.Response, raw []byte, path string) *RemoteError {
	remote := &RemoteError{
		Kind:      RemoteErrorHTTP,
		Status:    resp.StatusCode,
		Body:      string(raw),
		IntuitTID: resp.Header.Get("intuit_tid"),
		Method:    http.MethodPost,
		Path:      path,
	}
	var body oauthErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		remote.Code = body.Error
		remote.Message = body.ErrorDescription
	}
	return remote
}

func (o *OAuthClient) basicAuth() string {
	creds := o.cfg.ClientID + ":" + o.cfg.ClientSecret
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

func (o *OAuthClient) requireCredentials() error {
	if o.cfg.ClientID == "" || o.cfg.ClientSecret == "" {
		return ierr.NewError("quickbooks client credentials are not configured").
			WithHint("Set quickbooks.client_id and quickbooks.client_secret").
			Mark(ierr.ErrConfiguration)
	}
	return nil
}
