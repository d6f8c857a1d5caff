package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"

	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
)

// ReferenceService reads the QuickBooks reference data the platform needs for
// mapping screens: customers, items, income accounts, and tax codes.
type ReferenceService struct {
	requester Requester
	logger    *logger.Logger
}

func NewReferenceService(requester Requester, log *logger.Logger) *ReferenceService {
	return &ReferenceService{requester: requester, logger: log}
}

// ListCustomers returns every customer in the tenant's company file.
func (s *ReferenceService) ListCustomers(ctx context.Context, companyID int) ([]Customer, error) {
	rows, err := queryAll[Customer](ctx, s.requester, companyID, "Customer", "select * from Customer")
	if err != nil {
		return nil, err
	}
	return lo.Filter(rows, func(c Customer, _ int) bool { return c.ID != "" }), nil
}

// ListItems returns every item in the tenant's company file.
func (s *ReferenceService) ListItems(ctx context.Context, companyID int) ([]Item, error) {
	rows, err := queryAll[Item](ctx, s.requester, companyID, "Item", "select * from Item")
	if err != nil {
		return nil, err
	}
	return lo.Filter(rows, func(i Item, _ int) bool { return i.ID != "" }), nil
}

// ListIncomeAccounts returns the active income and other-income accounts,
// the only account types rental revenue may post to.
func (s *ReferenceService) ListIncomeAccounts(ctx context.Context, companyID int) ([]Account, error) {
	rows, err := queryAll[Account](ctx, s.requester, companyID, "Account", "select * from Account where Active = true")
	if err != nil {
		return nil, err
	}
	return lo.Filter(rows, func(a Account, _ int) bool {
		if a.ID == "" {
			return false
		}
		accountType := strings.ToLower(a.AccountType)
		return accountType == "income" || accountType == "other income"
	}), nil
}

// ListTaxCodes returns every tax code in the tenant's company file.
func (s *ReferenceService) ListTaxCodes(ctx context.Context, companyID int) ([]TaxCode, error) {
	rows, err := queryAll[TaxCode](ctx, s.requester, companyID, "TaxCode", "select * from TaxCode")
	if err != nil {
		return nil, err
	}
	return lo.Filter(rows, func(t TaxCode, _ int) bool { return t.ID != "" }), nil
}

// GetCustomerByID fetches one customer.
func (s *ReferenceService) GetCustomerByID(ctx context.Context, companyID int, customerID string) (*Customer, error) {
	if customerID == "" {
		return nil, ierr.NewError("customer id is required").Mark(ierr.ErrValidation)
	}
	body, err := s.requester.Request(ctx, companyID, http.MethodGet, "customer/"+url.PathEscape(customerID), nil)
	if err != nil {
		return nil, err
	}
	var customer Customer
	if err := json.Unmarshal(extractNamedEntity(body, "Customer"), &customer); err != nil {
		return nil, ierr.WithError(err).
			WithHint("QuickBooks customer response was not valid JSON").
			Mark(ierr.ErrHTTPClient)
	}
	return &customer, nil
}

// CreateCustomer creates a customer in the tenant's company file and returns
// the stored record with its assigned id.
func (s *ReferenceService) CreateCustomer(ctx context.Context, companyID int, payload *Customer) (*Customer, error) {
	if payload == nil {
		return nil, ierr.NewError("customer payload is required").Mark(ierr.ErrValidation)
	}
	body, err := s.requester.Request(ctx, companyID, http.MethodPost, "customer", payload)
	if err != nil {
		return nil, err
	}
	var customer Customer
	if err := json.Unmarshal(extractNamedEntity(body, "Customer"), &customer); err != nil {
		return nil, ierr.WithError(err).
			WithHint("QuickBooks customer response was not valid JSON").
			Mark(ierr.ErrHTTPClient)
	}
	s.logger.Infow("quickbooks customer created", "company_id", companyID, "customer_id", customer.ID)
	return &customer, nil
}

// queryAll pages through a query endpoint result set until a short page.
func queryAll[T any](ctx context.Context, requester Requester, companyID int, entityName, baseQuery string) ([]T, error) {
	var all []T
	startPosition := 1
	for {
		query := fmt.Sprintf("%s STARTPOSITION %d MAXRESULTS %d", baseQuery, startPosition, queryPageSize)
		body, err := requester.Request(ctx, companyID, http.MethodGet, "query?query="+url.QueryEscape(query), nil)
		if err != nil {
			return nil, err
		}

		var envelope queryEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, ierr.WithError(err).
				WithHint("QuickBooks query response was not valid JSON").
				Mark(ierr.ErrHTTPClient)
		}

		var rows []T
		if raw, ok := envelope.QueryResponse[entityName]; ok && len(raw) > 0 {
			if err := json.Unmarshal(raw, &rows); err != nil {
				return nil, ierr.WithError(err).
					WithHint("QuickBooks entity rows were not an array").
					Mark(ierr.ErrHTTPClient)
			}
		}
		all = append(all, rows...)
		if len(rows) < queryPageSize {
			break
		}
		startPosition += queryPageSize
	}
	return all, nil
}

// extractNamedEntity unwraps {"Customer": {...}}-style envelopes, falling
// back to the whole body.
func extractNamedEntity(body json.RawMessage, name string) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if inner, ok := envelope[name]; ok {
			return inner
		}
	}
	return body
}
