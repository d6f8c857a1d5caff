package quickbooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AnserBeg/rent-soft-sub001/internal/config"
	"github.com/AnserBeg/rent-soft-sub001/internal/domain/connection"
	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
)

// tokenExpirySkew is subtracted from token lifetimes so a token is treated as
// expired slightly before it actually is, covering clock drift and in-flight
// request latency.
const tokenExpirySkew = 60 * time.Second

// Requester executes authenticated QuickBooks resource calls for a tenant.
// It is the seam higher layers (billing, sync, reference data) depend on.
type Requester interface {
	Request(ctx context.Context, companyID int, method, path string, body any) (json.RawMessage, error)
}

// ManagerParams wires a Manager's collaborators.
type ManagerParams struct {
	Config      config.QuickBooksConfig
	Client      *Client
	OAuth       *OAuthClient
	Connections connection.Repository
	Clock       Clock
	Logger      *logger.Logger
}

// Manager owns the per-tenant connection lifecycle: creating connections from
// OAuth callbacks, keeping access tokens fresh, invalidating dead ones, and
// executing resource calls with a single refresh-and-retry on auth failures.
type Manager struct {
	cfg         config.QuickBooksConfig
	client      *Client
	oauth       *OAuthClient
	connections connection.Repository
	clock       Clock
	logger      *logger.Logger
}

func NewManager(params ManagerParams) *Manager {
	clock := params.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &Manager{
		cfg:         params.Config,
		client:      params.Client,
		oauth:       params.OAuth,
		connections: params.Connections,
		clock:       clock,
		logger:      params.Logger,
	}
}

// Connect exchanges an OAuth authorization code and persists the resulting
// connection for the tenant, replacing any previous one.
func (m *Manager) Connect(ctx context.Context, companyID int, realmID, authCode string) (*connection.Connection, error) {
	if realmID == "" {
		return nil, ierr.NewError("realm id is required").
			WithHint("The OAuth callback did not include a realmId").
			Mark(ierr.ErrValidation)
	}

	grant, err := m.oauth.ExchangeAuthCode(ctx, authCode)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	conn := &connection.Connection{
		CompanyID:             companyID,
		RealmID:               realmID,
		AccessToken:           grant.AccessToken,
		RefreshToken:          grant.RefreshToken,
		AccessTokenExpiresAt:  grant.AccessTokenExpiry(now),
		RefreshTokenExpiresAt: grant.RefreshTokenExpiry(now),
		Scope:                 grant.Scope,
		TokenType:             grant.TokenType,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := m.connections.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	m.logger.Infow("quickbooks connected", "company_id", companyID, "realm_id", realmID)
	return conn, nil
}

// IsConnected reports whether the tenant has a stored connection with tokens.
// It does not validate the tokens against QuickBooks.
func (m *Manager) IsConnected(ctx context.Context, companyID int) (bool, error) {
	conn, err := m.connections.Get(ctx, companyID)
	if err != nil {
		return false, err
	}
	return conn != nil && conn.HasTokens(), nil
}

// GetValidConnection returns a connection whose access token is usable for at
// least the skew window, refreshing it first when needed. A tenant without a
// connection gets ErrNotConnected; a dead refresh token tears the connection
// down and returns ErrAuthExpired so the platform can prompt a reconnect.
func (m *Manager) GetValidConnection(ctx context.Context, companyID int) (*connection.Connection, error) {
	conn, err := m.connections.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if conn == nil || !conn.HasTokens() {
		return nil, ierr.NewError("quickbooks is not connected").
			WithHint("Connect QuickBooks for this company first").
			WithReportableDetails(map[string]any{"company_id": companyID}).
			Mark(ierr.ErrNotConnected)
	}

	now := m.clock.Now()
	if conn.RefreshTokenExpiresAt != nil && !conn.RefreshTokenExpiresAt.After(now.Add(tokenExpirySkew)) {
		return nil, m.invalidate(ctx, conn, "refresh token expired")
	}

	// An unknown access-token expiry is treated as expired rather than trusted.
	if conn.AccessTokenExpiresAt == nil || !conn.AccessTokenExpiresAt.After(now.Add(tokenExpirySkew)) {
		return m.refresh(ctx, conn)
	}
	return conn, nil
}

// Request performs an authenticated resource call for the tenant. When
// QuickBooks rejects the tokens mid-flight, it refreshes once and retries;
// a second auth failure invalidates the connection.
func (m *Manager) Request(ctx context.Context, companyID int, method, path string, body any) (json.RawMessage, error) {
	conn, err := m.GetValidConnection(ctx, companyID)
	if err != nil {
		return nil, err
	}

	raw, err := m.do(ctx, conn, method, path, body)
	if err == nil || !IsAuthInvalid(err) {
		return raw, err
	}

	m.logger.Warnw("quickbooks rejected access token, refreshing once",
		"company_id", companyID, "method", method, "path", path)

	conn, refreshErr := m.refresh(ctx, conn)
	if refreshErr != nil {
		return nil, refreshErr
	}
	raw, err = m.do(ctx, conn, method, path, body)
	if err != nil && IsAuthInvalid(err) {
		return nil, m.invalidate(ctx, conn, "token rejected after refresh")
	}
	return raw, err
}

// Disconnect revokes the tenant's tokens at Intuit (best effort) and removes
// the stored connection.
func (m *Manager) Disconnect(ctx context.Context, companyID int) error {
	conn, err := m.connections.Get(ctx, companyID)
	if err != nil {
		return err
	}
	if conn == nil {
		return nil
	}

	token := conn.RefreshToken
	if token == "" {
		token = conn.AccessToken
	}
	if token != "" {
		if err := m.oauth.Revoke(ctx, token); err != nil {
			m.logger.Warnw("quickbooks token revocation failed, removing connection anyway",
				"company_id", companyID, "error", err)
		}
	}

	if err := m.connections.Delete(ctx, companyID); err != nil {
		return err
	}
	m.logger.Infow("quickbooks disconnected", "company_id", companyID, "realm_id", conn.RealmID)
	return nil
}

func (m *Manager) do(ctx context.Context, conn *connection.Connection, method, path string, body any) (json.RawMessage, error) {
	return m.client.Do(ctx, apiRequest{
		Host:        m.cfg.APIHost(),
		RealmID:     conn.RealmID,
		AccessToken: conn.AccessToken,
		Method:      method,
		Path:        path,
		Body:        body,
	})
}

// refresh runs the refresh grant and persists the new token pair. QuickBooks
// sometimes omits the refresh token from the response; the stored one is kept
// in that case. An auth-invalid grant failure means the refresh token is dead
// and the connection is invalidated.
func (m *Manager) refresh(ctx context.Context, conn *connection.Connection) (*connection.Connection, error) {
	if conn.RefreshToken == "" {
		return nil, m.invalidate(ctx, conn, "no refresh token stored")
	}

	grant, err := m.oauth.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		if IsAuthInvalid(err) {
			return nil, m.invalidate(ctx, conn, "refresh grant rejected")
		}
		return nil, err
	}

	now := m.clock.Now()
	conn.AccessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		conn.RefreshToken = grant.RefreshToken
	}
	conn.AccessTokenExpiresAt = grant.AccessTokenExpiry(now)
	if exp := grant.RefreshTokenExpiry(now); exp != nil {
		conn.RefreshTokenExpiresAt = exp
	}
	if grant.TokenType != "" {
		conn.TokenType = grant.TokenType
	}
	if grant.Scope != "" {
		conn.Scope = grant.Scope
	}
	conn.UpdatedAt = now

	if err := m.connections.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	m.logger.Debugw("quickbooks access token refreshed", "company_id", conn.CompanyID, "realm_id", conn.RealmID)
	return conn, nil
}

// invalidate deletes the stored connection and returns ErrAuthExpired so the
// caller can surface a reconnect prompt. The delete failure, if any, is
// logged but the auth error still wins.
func (m *Manager) invalidate(ctx context.Context, conn *connection.Connection, reason string) error {
	if err := m.connections.Delete(ctx, conn.CompanyID); err != nil {
		m.logger.Errorw("failed to remove invalid quickbooks connection",
			"company_id", conn.CompanyID, "error", err)
	}
	m.logger.Warnw("quickbooks connection invalidated",
		"company_id", conn.CompanyID, "realm_id", conn.RealmID, "reason", reason)
	return ierr.NewErrorf("quickbooks authorization expired: %s", reason).
		WithHint("Reconnect QuickBooks for this company").
		WithReportableDetails(map[string]any{"company_id": conn.CompanyID}).
		Mark(ierr.ErrAuthExpired)
}
