package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
	"github.com/AnserBeg/rent-soft-sub001/internal/testutil"
)

func decodeQuery(t *testing.T, path string) string {
	t.Helper()
	raw, err := url.QueryUnescape(strings.TrimPrefix(path, "query?query="))
	require.NoError(t, err)
	return raw
}

func TestListCustomersPagination(t *testing.T) {
	page := func(from, count int) string {
		rows := make([]string, 0, count)
		for i := 0; i < count; i++ {
			rows = append(rows, fmt.Sprintf(`{"Id":"%d","DisplayName":"Customer %d"}`, from+i, from+i))
		}
		return `{"QueryResponse":{"Customer":[` + strings.Join(rows, ",") + `]}}`
	}

	calls := 0
	requester := testutil.APIRequesterFunc(func(_ context.Context, _ int, _, path string, _ any) (json.RawMessage, error) {
		calls++
		query := decodeQuery(t, path)
		switch calls {
		case 1:
			assert.Contains(t, query, "STARTPOSITION 1 MAXRESULTS 1000")
			return json.RawMessage(page(1, 1000)), nil
		case 2:
			assert.Contains(t, query, "STARTPOSITION 1001 MAXRESULTS 1000")
			return json.RawMessage(page(1001, 3)), nil
		}
		t.Fatalf("unexpected call %d", calls)
		return nil, nil
	})
	svc := NewReferenceService(requester, logger.NewNopLogger())

	customers, err := svc.ListCustomers(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, customers, 1003)
	assert.Equal(t, 2, calls)
}

func TestListIncomeAccountsFiltersByType(t *testing.T) {
	requester := testutil.APIRequesterFunc(func(_ context.Context, _ int, _, path string, _ any) (json.RawMessage, error) {
		query := decodeQuery(t, path)
		assert.Contains(t, query, "from Account where Active = true")
		return json.RawMessage(`{"QueryResponse":{"Account":[
			{"Id":"1","Name":"Rental Income","AccountType":"Income"},
			{"Id":"2","Name":"Late Fees","AccountType":"Other Income"},
			{"Id":"3","Name":"Bank","AccountType":"Bank"},
			{"Name":"No Id","AccountType":"Income"}
		]}}`), nil
	})
	svc := NewReferenceService(requester, logger.NewNopLogger())

	accounts, err := svc.ListIncomeAccounts(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Rental Income", accounts[0].Name)
	assert.Equal(t, "Late Fees", accounts[1].Name)
}

func TestGetCustomerByID(t *testing.T) {
	requester := testutil.APIRequesterFunc(func(_ context.Context, _ int, method, path string, _ any) (json.RawMessage, error) {
		assert.Equal(t, "GET", method)
		assert.Equal(t, "customer/55", path)
		return json.RawMessage(`{"Customer":{"Id":"55","DisplayName":"Acme Rentals"}}`), nil
	})
	svc := NewReferenceService(requester, logger.NewNopLogger())

	customer, err := svc.GetCustomerByID(context.Background(), 3, "55")
	require.NoError(t, err)
	assert.Equal(t, "Acme Rentals", customer.DisplayName)

	_, err = svc.GetCustomerByID(context.Background(), 3, "")
	assert.Error(t, err)
}

func TestCreateCustomer(t *testing.T) {
	requester := testutil.APIRequesterFunc(func(_ context.Context, _ int, method, path string, body any) (json.RawMessage, error) {
		assert.Equal(t, "POST", method)
		assert.Equal(t, "customer", path)
		payload := body.(*Customer)
		assert.Equal(t, "Acme Rentals", payload.DisplayName)
		return json.RawMessage(`{"Customer":{"Id":"56","DisplayName":"Acme Rentals"}}`), nil
	})
	svc := NewReferenceService(requester, logger.NewNopLogger())

	created, err := svc.CreateCustomer(context.Background(), 3, &Customer{DisplayName: "Acme Rentals"})
	require.NoError(t, err)
	assert.Equal(t, "56", created.ID)

	_, err = svc.CreateCustomer(context.Background(), 3, nil)
	assert.Error(t, err)
}
