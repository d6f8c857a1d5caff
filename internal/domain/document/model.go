package document

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AnserBeg/rent-soft-sub001/internal/types"
)

// Document is the local mirror of a QuickBooks invoice or credit memo.
// Rows are never physically removed by the sync core; remote deletion and
// voiding only flip the soft flags so the audit trail survives.
type Document struct {
	ID            int                  `db:"id" json:"id"`
	CompanyID     int                  `db:"company_id" json:"company_id"`
	RentalOrderID *int                 `db:"rental_order_id" json:"rental_order_id"`
	EntityType    types.EntityType     `db:"entity_type" json:"entity_type"`
	EntityID      string               `db:"entity_id" json:"entity_id"`
	DocNumber     string               `db:"doc_number" json:"doc_number"`
	BillingPeriod string               `db:"billing_period" json:"billing_period"`
	TxnDate       string               `db:"txn_date" json:"txn_date"`
	DueDate       string               `db:"due_date" json:"due_date"`
	TotalAmount   decimal.Decimal      `db:"total_amount" json:"total_amount"`
	Balance       decimal.Decimal      `db:"balance" json:"balance"`
	CurrencyCode  string               `db:"currency_code" json:"currency_code"`
	Status        types.DocumentStatus `db:"status" json:"status"`
	CustomerRef   string               `db:"customer_ref" json:"customer_ref"`
	Source        types.DocumentSource `db:"source" json:"source"`
	IsVoided      bool                 `db:"is_voided" json:"is_voided"`
	IsDeleted     bool                 `db:"is_deleted" json:"is_deleted"`
	LastUpdatedAt string               `db:"last_updated_at" json:"last_updated_at"`
	// Raw keeps the verbatim remote snapshot for audit and debugging.
	Raw       json.RawMessage `db:"raw" json:"raw"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the document still counts for idempotency and
// billing decisions.
func (d *Document) IsActive() bool {
	return d != nil && !d.IsVoided && !d.IsDeleted
}
