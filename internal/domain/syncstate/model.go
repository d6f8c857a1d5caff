package syncstate

import "time"

// SyncState tracks the incremental-sync watermark per (company, entity name).
// The watermark is advanced to "now" at the end of every sync pass, whichever
// path produced the rows, so the next window stays bounded even after a
// query fallback.
type SyncState struct {
	CompanyID        int       `db:"company_id" json:"company_id"`
	EntityName       string    `db:"entity_name" json:"entity_name"`
	LastChangeFeedAt time.Time `db:"last_cdc_timestamp" json:"last_cdc_timestamp"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
