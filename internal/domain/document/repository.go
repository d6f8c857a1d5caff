package document

import (
	"context"

	"github.com/AnserBeg/rent-soft-sub001/internal/types"
)

// Repository defines the interface for mirrored-document data operations.
// Upsert keys on (company_id, entity_type, entity_id); every later sync pass
// touching the same remote document updates the row in place.
type Repository interface {
	Upsert(ctx context.Context, doc *Document) (*Document, error)
	ListForRentalOrder(ctx context.Context, companyID, rentalOrderID int) ([]*Document, error)
	ListUnassigned(ctx context.Context, companyID int) ([]*Document, error)
	// MarkRemoved flips the soft flags without touching the rest of the row.
	MarkRemoved(ctx context.Context, companyID int, entityType types.EntityType, entityID string, voided, deleted bool) error
}
