package rental

import (
	"context"
	"time"
)

// OrderContextProvider resolves rental-order context for document creation
// and maps RO numbers found in remote documents back to local order ids.
type OrderContextProvider interface {
	// GetOrderContext returns nil when the order does not exist for the tenant.
	GetOrderContext(ctx context.Context, companyID, orderID int) (*OrderContext, error)
	// FindOrderIDByRONumber returns nil when no order carries the RO number.
	FindOrderIDByRONumber(ctx context.Context, companyID int, roNumber string) (*int, error)
}

// BillingLineQuery scopes the lines the assembler should return.
type BillingLineQuery struct {
	CompanyID   int
	OrderID     int
	PeriodStart time.Time
	PeriodEnd   time.Time
	// LineItemIDs restricts assembly to specific line items; nil means all.
	LineItemIDs []int
	// IgnoreReturnedAt includes lines already marked returned, needed when
	// crediting items after a return.
	IgnoreReturnedAt bool
}

// BillingLineAssembler builds the billable lines for an order and period with
// QuickBooks item mappings resolved.
type BillingLineAssembler interface {
	BuildBillingLines(ctx context.Context, q BillingLineQuery) ([]BillingLine, error)
}

// SettingsProvider exposes the per-tenant settings the sync core consumes.
type SettingsProvider interface {
	GetCompanySettings(ctx context.Context, companyID int) (*CompanySettings, error)
}
