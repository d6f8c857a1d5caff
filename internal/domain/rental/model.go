package rental

import "github.com/shopspring/decimal"

// OrderContext is the slice of a rental order the accounting sync needs:
// identity, its RO number, and the customer's QuickBooks reference.
type OrderContext struct {
	OrderID       int    `json:"order_id"`
	RONumber      string `json:"ro_number"`
	QBOCustomerID string `json:"qbo_customer_id"`
}

// BillingLine is one billable line assembled for an order and period.
// QBOItemID is the QuickBooks item the line maps to; a missing mapping is a
// hard validation error for document creation.
type BillingLine struct {
	TypeID     int             `json:"type_id"`
	TypeName   string          `json:"type_name"`
	Units      decimal.Decimal `json:"units"`
	Quantity   decimal.Decimal `json:"quantity"`
	RateAmount decimal.Decimal `json:"rate_amount"`
	Amount     decimal.Decimal `json:"amount"`
	QBOItemID  string          `json:"qbo_item_id"`
}

// CompanySettings carries the per-tenant billing knobs the sync core reads.
type CompanySettings struct {
	BillingAnchorDay int    `json:"billing_anchor_day"`
	DefaultTaxCode   string `json:"default_tax_code"`
	AdjustmentPolicy string `json:"adjustment_policy"`
}
