package testutil

import (
	"context"
	"sync"

	"github.com/AnserBeg/rent-soft-sub001/internal/domain/rental"
)

// FakeOrderProvider implements rental.OrderContextProvider over fixed data.
type FakeOrderProvider struct {
	mu sync.RWMutex
	// Orders is keyed by order id.
	Orders map[int]*rental.OrderContext
	// RONumbers maps RO number to order id for correlation lookups.
	RONumbers map[string]int
}

func NewFakeOrderProvider() *FakeOrderProvider {
	return &FakeOrderProvider{
		Orders:    make(map[int]*rental.OrderContext),
		RONumbers: make(map[string]int),
	}
}

// AddOrder registers an order and its RO number.
func (p *FakeOrderProvider) AddOrder(order *rental.OrderContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Orders[order.OrderID] = order
	if order.RONumber != "" {
		p.RONumbers[order.RONumber] = order.OrderID
	}
}

func (p *FakeOrderProvider) GetOrderContext(_ context.Context, _ int, orderID int) (*rental.OrderContext, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	order, ok := p.Orders[orderID]
	if !ok {
		return nil, nil
	}
	clone := *order
	return &clone, nil
}

func (p *FakeOrderProvider) FindOrderIDByRONumber(_ context.Context, _ int, roNumber string) (*int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.RONumbers[roNumber]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

// FakeLineAssembler implements rental.BillingLineAssembler by returning the
// configured lines, optionally filtered to the requested line items.
type FakeLineAssembler struct {
	// Lines keyed by line-item type id for filtering; returned in slice order.
	Lines []rental.BillingLine
	// Err, when set, fails every call.
	Err error
	// LastQuery records the most recent query for assertions.
	LastQuery rental.BillingLineQuery
}

func (a *FakeLineAssembler) BuildBillingLines(_ context.Context, q rental.BillingLineQuery) ([]rental.BillingLine, error) {
	a.LastQuery = q
	if a.Err != nil {
		return nil, a.Err
	}
	if len(q.LineItemIDs) == 0 {
		return a.Lines, nil
	}
	wanted := make(map[int]bool, len(q.LineItemIDs))
	for _, id := range q.LineItemIDs {
		wanted[id] = true
	}
	var out []rental.BillingLine
	for _, line := range a.Lines {
		if wanted[line.TypeID] {
			out = append(out, line)
		}
	}
	return out, nil
}

// FakeSettingsProvider implements rental.SettingsProvider over one settings
// value shared by every tenant.
type FakeSettingsProvider struct {
	Settings *rental.CompanySettings
	Err      error
}

func (p *FakeSettingsProvider) GetCompanySettings(_ context.Context, _ int) (*rental.CompanySettings, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Settings == nil {
		return &rental.CompanySettings{BillingAnchorDay: 1}, nil
	}
	clone := *p.Settings
	return &clone, nil
}
