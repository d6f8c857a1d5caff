package connection

import (
	"time"
)

// Connection holds one tenant's QuickBooks OAuth state. Created on the OAuth
// callback, mutated only by token refresh, removed only on explicit
// disconnect.
type Connection struct {
	CompanyID             int        `db:"company_id" json:"company_id"`
	RealmID               string     `db:"realm_id" json:"realm_id"`
	AccessToken           string     `db:"access_token" json:"-"`
	RefreshToken          string     `db:"refresh_token" json:"-"`
	AccessTokenExpiresAt  *time.Time `db:"access_token_expires_at" json:"access_token_expires_at"`
	RefreshTokenExpiresAt *time.Time `db:"refresh_token_expires_at" json:"refresh_token_expires_at"`
	Scope                 string     `db:"scope" json:"scope"`
	TokenType             string     `db:"token_type" json:"token_type"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// HasTokens reports whether the connection is usable at all. A row without
// both tokens is treated the same as no row: not connected.
func (c *Connection) HasTokens() bool {
	return c != nil && c.AccessToken != "" && c.RefreshToken != ""
}
