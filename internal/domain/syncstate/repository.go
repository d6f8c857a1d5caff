package syncstate

import "context"

// Repository defines the interface for sync-state data operations
type Repository interface {
	// Get returns the stored state, or nil when no sync has run yet.
	Get(ctx context.Context, companyID int, entityName string) (*SyncState, error)
	Upsert(ctx context.Context, state *SyncState) error
}
