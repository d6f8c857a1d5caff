package quickbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AnserBeg/rent-soft-sub001/internal/config"
	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
)

// RemoteErrorKind classifies how a QuickBooks call failed.
type RemoteErrorKind string

const (
	// RemoteErrorFault means QuickBooks returned a structured Fault body.
	RemoteErrorFault RemoteErrorKind = "fault"
	// RemoteErrorHTTP means a non-2xx status without a parseable Fault body.
	RemoteErrorHTTP RemoteErrorKind = "http"
	// RemoteErrorNetwork means the request never produced an HTTP response.
	RemoteErrorNetwork RemoteErrorKind = "network"
)

// RemoteError carries everything a caller needs to reason about a failed
// QuickBooks call: the fault code and detail when present, the HTTP status,
// the Intuit transaction id for support escalation, and the request identity.
type RemoteError struct {
	Kind      RemoteErrorKind
	Status    int
	Code      string
	Message   string
	Detail    string
	Body      string
	IntuitTID string
	Method    string
	Path      string
	RealmID   string
	Host      string
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "quickbooks %s %s failed", e.Method, e.Path)
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	switch {
	case e.Message != "" && e.Detail != "":
		fmt.Fprintf(&b, ": %s: %s", e.Message, e.Detail)
	case e.Message != "":
		fmt.Fprintf(&b, ": %s", e.Message)
	case e.Detail != "":
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.IntuitTID != "" {
		fmt.Fprintf(&b, " [intuit_tid=%s]", e.IntuitTID)
	}
	return b.String()
}

// AuthInvalid reports whether the failure indicates a dead or revoked token
// rather than a transient or caller problem. 401/403 always qualify; token
// endpoints signal the same condition as 400 invalid_grant, and some resource
// faults only say so in the message text.
func (e *RemoteError) AuthInvalid() bool {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return true
	}
	text := strings.ToLower(e.Code + " " + e.Message + " " + e.Detail)
	if e.Status == http.StatusBadRequest &&
		(strings.Contains(text, "invalid_grant") || strings.Contains(text, "invalid_token")) {
		return true
	}
	return strings.Contains(text, "token expired") ||
		strings.Contains(text, "token revoked") ||
		strings.Contains(text, "authentication") && strings.Contains(text, "invalid")
}

// IsAuthInvalid reports whether err wraps a RemoteError whose failure means
// the current tokens are no longer usable.
func IsAuthInvalid(err error) bool {
	var re *RemoteError
	if ierr.As(err, &re) {
		return re.AuthInvalid()
	}
	return false
}

// AsRemoteError unwraps err to a *RemoteError when one is in the chain.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if ierr.As(err, &re) {
		return re, true
	}
	return re, false
}

// faultBody is QuickBooks's structured error envelope. Some endpoints return
// it with a 200 status, so it is checked on every response.
type faultBody struct {
	Fault struct {
		Type  string `json:"type"`
		Error []struct {
			Message string `json:"Message"`
			Detail  string `json:"Detail"`
			Code    string `json:"code"`
			Element string `json:"element"`
		} `json:"Error"`
	} `json:"Fault"`
}

// oauthErrorBody is the token endpoint's error shape.
type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// apiRequest identifies one QuickBooks resource call. MinorVersion zero means
// use the client default; it is only appended when the path does not already
// carry one.
type apiRequest struct {
	Host        string
	RealmID     string
	AccessToken string
	Method      string
	Path        string
	Body        any
}

// Client is the low-level QuickBooks HTTP client. It owns URL construction,
// auth headers, the minorversion query parameter, and fault-body parsing.
// Token lifecycle lives above it in Manager.
type Client struct {
	httpClient   *http.Client
	minorVersion int
	logger       *logger.Logger
}

// NewClient creates a QuickBooks API client. The transport never retries:
// document creates are not idempotent at QuickBooks, and a re-sent POST after
// a lost response or transient 5xx would draft the same invoice twice. Failed
// calls surface to the caller, who decides whether refreshing a token or
// re-running the operation through the doc-number check is the right reaction.
func NewClient(cfg config.QuickBooksConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		minorVersion: cfg.APIMinorVersion(),
		logger:       log,
	}
}

// NewClientWithHTTP creates a client over a caller-supplied http.Client.
func NewClientWithHTTP(httpClient *http.Client, minorVersion int, log *logger.Logger) *Client {
	if minorVersion <= 0 {
		minorVersion = config.DefaultMinorVersion
	}
	return &Client{httpClient: httpClient, minorVersion: minorVersion, logger: log}
}

// Do executes one resource call against {host}/v3/company/{realmID}/{path}
// and returns the raw response body. A Fault body maps to *RemoteError even
// when the HTTP status is 2xx.
func (c *Client) Do(ctx context.Context, req apiRequest) (json.RawMessage, error) {
	fullURL, err := c.buildURL(req.Host, req.RealmID, req.Path)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid QuickBooks API path").
			WithReportableDetails(map[string]any{"path": req.Path}).
			Mark(ierr.ErrValidation)
	}

	var bodyReader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to encode QuickBooks request body").
				Mark(ierr.ErrSystem)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to build QuickBooks request").
			Mark(ierr.ErrSystem)
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.AccessToken)
	httpReq.Header.Set("Accept", "application/json")
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		remote := &RemoteError{
			Kind:    RemoteErrorNetwork,
			Message: err.Error(),
			Method:  req.Method,
			Path:    req.Path,
			RealmID: req.RealmID,
			Host:    req.Host,
		}
		return nil, ierr.WithError(remote).
			WithHint("QuickBooks API is unreachable").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read QuickBooks response").
			Mark(ierr.ErrHTTPClient)
	}

	tid := resp.Header.Get("intuit_tid")
	if remote := c.parseFailure(resp.StatusCode, raw, tid, req); remote != nil {
		c.logger.Warnw("quickbooks api call failed",
			"method", req.Method,
			"path", req.Path,
			"realm_id", req.RealmID,
			"status", remote.Status,
			"kind", remote.Kind,
			"code", remote.Code,
			"intuit_tid", tid,
		)
		return nil, ierr.WithError(remote).
			WithHint("QuickBooks rejected the request").
			WithReportableDetails(map[string]any{
				"method":     req.Method,
				"path":       req.Path,
				"intuit_tid": tid,
			}).
			Mark(ierr.ErrHTTPClient)
	}
	return raw, nil
}

// parseFailure turns a response into a RemoteError, or nil when the call
// succeeded. Fault bodies take precedence over the bare status.
func (c *Client) parseFailure(status int, raw []byte, tid string, req apiRequest) *RemoteError {
	var fault faultBody
	if err := json.Unmarshal(raw, &fault); err == nil && len(fault.Fault.Error) > 0 {
		first := fault.Fault.Error[0]
		return &RemoteError{
			Kind:      RemoteErrorFault,
			Status:    status,
			Code:      first.Code,
			Message:   first.Message,
			Detail:    first.Detail,
			Body:      string(raw),
			IntuitTID: tid,
			Method:    req.Method,
			Path:      req.Path,
			RealmID:   req.RealmID,
			Host:      req.Host,
		}
	}
	if status < 200 || status >= 300 {
		remote := &RemoteError{
			Kind:      RemoteErrorHTTP,
			Status:    status,
			Body:      string(raw),
			IntuitTID: tid,
			Method:    req.Method,
			Path:      req.Path,
			RealmID:   req.RealmID,
			Host:      req.Host,
		}
		var oauthErr oauthErrorBody
		if err := json.Unmarshal(raw, &oauthErr); err == nil && oauthErr.Error != "" {
			remote.Code = oauthErr.Error
			remote.Message = oauthErr.ErrorDescription
		}
		return remote
	}
	return nil
}

// buildURL joins host, realm and path, appending the default minorversion
// only when the path did not set one itself.
func (c *Client) buildURL(host, realmID, path string) (string, error) {
	trimmed := strings.TrimPrefix(path, "/")
	u, err := url.Parse(fmt.Sprintf("%s/v3/company/%s/%s", strings.TrimSuffix(host, "/"), realmID, trimmed))
	if err != nil {
		return "", err
	}
	q := u.Query()
	if q.Get("minorversion") == "" {
		q.Set("minorversion", fmt.Sprintf("%d", c.minorVersion))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
