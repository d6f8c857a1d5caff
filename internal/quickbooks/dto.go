package quickbooks

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Ref is QuickBooks's generic reference shape ({"value": "...", "name": "..."}).
type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// MemoRef is the CustomerMemo shape on sales documents.
type MemoRef struct {
	Value string `json:"value,omitempty"`
}

// CustomField is one entry of a document's custom-field array.
type CustomField struct {
	Name        string `json:"Name,omitempty"`
	Type        string `json:"Type,omitempty"`
	StringValue string `json:"StringValue,omitempty"`
}

// SalesLineDetail is the SalesItemLineDetail block of an invoice/credit-memo line.
type SalesLineDetail struct {
	ItemRef    Ref              `json:"ItemRef"`
	Qty        *decimal.Decimal `json:"Qty,omitempty"`
	UnitPrice  *decimal.Decimal `json:"UnitPrice,omitempty"`
	TaxCodeRef *Ref             `json:"TaxCodeRef,omitempty"`
}

// DocumentLine is one line of an invoice/credit-memo create payload.
type DocumentLine struct {
	Amount              decimal.Decimal  `json:"Amount"`
	DetailType          string           `json:"DetailType"`
	Description         string           `json:"Description,omitempty"`
	SalesItemLineDetail *SalesLineDetail `json:"SalesItemLineDetail,omitempty"`
}

// DocumentCreatePayload is the request body for invoice and creditmemo creates.
// The two entities share the same sales-document shape.
type DocumentCreatePayload struct {
	CustomerRef Ref            `json:"CustomerRef"`
	TxnDate     string         `json:"TxnDate,omitempty"`
	DocNumber   string         `json:"DocNumber,omitempty"`
	PrivateNote string         `json:"PrivateNote,omitempty"`
	Line        []DocumentLine `json:"Line"`
}

// RemoteDocument is the subset of a QuickBooks invoice/credit-memo this core
// reads back. Unknown fields are preserved verbatim in Document.Raw instead.
type RemoteDocument struct {
	ID           string          `json:"Id"`
	DocNumber    string          `json:"DocNumber,omitempty"`
	TxnDate      string          `json:"TxnDate,omitempty"`
	DueDate      string          `json:"DueDate,omitempty"`
	TxnStatus    string          `json:"TxnStatus,omitempty"`
	TotalAmt     decimal.Decimal `json:"TotalAmt,omitempty"`
	Balance      decimal.Decimal `json:"Balance,omitempty"`
	PrivateNote  string          `json:"PrivateNote,omitempty"`
	Memo         string          `json:"Memo,omitempty"`
	CustomerMemo MemoRef         `json:"CustomerMemo,omitempty"`
	CustomerRef  Ref             `json:"CustomerRef,omitempty"`
	CurrencyRef  Ref             `json:"CurrencyRef,omitempty"`
	CustomField  []CustomField   `json:"CustomField,omitempty"`
	MetaData     struct {
		CreateTime      string `json:"CreateTime,omitempty"`
		LastUpdatedTime string `json:"LastUpdatedTime,omitempty"`
	} `json:"MetaData,omitempty"`
}

// Customer is the normalized slice of a QuickBooks customer.
type Customer struct {
	ID               string `json:"Id"`
	DisplayName      string `json:"DisplayName,omitempty"`
	CompanyName      string `json:"CompanyName,omitempty"`
	GivenName        string `json:"GivenName,omitempty"`
	FamilyName       string `json:"FamilyName,omitempty"`
	Active           *bool  `json:"Active,omitempty"`
	PrimaryEmailAddr *struct {
		Address string `json:"Address,omitempty"`
	} `json:"PrimaryEmailAddr,omitempty"`
	PrimaryPhone *struct {
		FreeFormNumber string `json:"FreeFormNumber,omitempty"`
	} `json:"PrimaryPhone,omitempty"`
	BillAddr *struct {
		Line1                  string `json:"Line1,omitempty"`
		Line2                  string `json:"Line2,omitempty"`
		City                   string `json:"City,omitempty"`
		CountrySubDivisionCode string `json:"CountrySubDivisionCode,omitempty"`
		Country                string `json:"Country,omitempty"`
		PostalCode             string `json:"PostalCode,omitempty"`
	} `json:"BillAddr,omitempty"`
}

// Item is the normalized slice of a QuickBooks item.
type Item struct {
	ID               string `json:"Id"`
	Name             string `json:"Name,omitempty"`
	Type             string `json:"Type,omitempty"`
	Active           *bool  `json:"Active,omitempty"`
	IncomeAccountRef *Ref   `json:"IncomeAccountRef,omitempty"`
}

// Account is the normalized slice of a QuickBooks account.
type Account struct {
	ID                 string `json:"Id"`
	Name               string `json:"Name,omitempty"`
	FullyQualifiedName string `json:"FullyQualifiedName,omitempty"`
	AccountType        string `json:"AccountType,omitempty"`
	AccountSubType     string `json:"AccountSubType,omitempty"`
	Active             *bool  `json:"Active,omitempty"`
}

// TaxCode is the normalized slice of a QuickBooks tax code.
type TaxCode struct {
	ID          string `json:"Id"`
	Name        string `json:"Name,omitempty"`
	Description string `json:"Description,omitempty"`
	Active      *bool  `json:"Active,omitempty"`
}

// queryEnvelope wraps the SQL-like query endpoint's response. Entity rows sit
// under QueryResponse keyed by entity name.
type queryEnvelope struct {
	QueryResponse map[string]json.RawMessage `json:"QueryResponse"`
}

// cdcEnvelope wraps the change-feed endpoint's response, keyed by entity name.
type cdcEnvelope struct {
	CDCResponse map[string]json.RawMessage `json:"CDCResponse"`
}

// tokenResponse is the OAuth token endpoint's response for both the
// authorization-code and refresh-token grants.
type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	TokenType             string `json:"token_type"`
	Scope                 string `json:"scope"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshTokenExpiresIn int64  `json:"x_refresh_token_expires_in"`
}
