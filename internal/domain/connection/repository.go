package connection

import "context"

// Repository defines the interface for connection data operations
type Repository interface {
	// Get returns the tenant's connection, or nil when none is stored.
	Get(ctx context.Context, companyID int) (*Connection, error)
	Upsert(ctx context.Context, conn *Connection) error
	Delete(ctx context.Context, companyID int) error
}
