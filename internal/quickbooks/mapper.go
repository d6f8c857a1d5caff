package quickbooks

import (
	"encoding/json"
	"time"

	"github.com/AnserBeg/rent-soft-sub001/internal/domain/document"
	"github.com/AnserBeg/rent-soft-sub001/internal/types"
)

// deriveStatus computes the local lifecycle status for a mirrored document.
// QuickBooks's own TxnStatus wins when present (it carries states like Voided
// that balances cannot express); credit memos without one are always credits.
func deriveStatus(doc *RemoteDocument, entityType types.EntityType) types.DocumentStatus {
	if doc == nil {
		return ""
	}
	if doc.TxnStatus != "" {
		return types.DocumentStatus(doc.TxnStatus)
	}
	if entityType == types.EntityTypeCreditMemo {
		return types.DocumentStatusCredit
	}
	total := doc.TotalAmt
	balance := doc.Balance
	if total.IsPositive() && balance.IsZero() {
		return types.DocumentStatusPaid
	}
	if total.IsPositive() && balance.IsPositive() && balance.LessThan(total) {
		return types.DocumentStatusPartial
	}
	return types.DocumentStatusOpen
}

// documentFromRemote maps a remote document onto the local mirror row. raw is
// the verbatim response bytes for the entity, kept for audit.
func documentFromRemote(
	companyID int,
	rentalOrderID *int,
	entityType types.EntityType,
	doc *RemoteDocument,
	raw json.RawMessage,
	source types.DocumentSource,
	billingPeriod string,
	now time.Time,
) *document.Document {
	return &document.Document{
		CompanyID:     companyID,
		RentalOrderID: rentalOrderID,
		EntityType:    entityType,
		EntityID:      doc.ID,
		DocNumber:     doc.DocNumber,
		BillingPeriod: billingPeriod,
		TxnDate:       doc.TxnDate,
		DueDate:       doc.DueDate,
		TotalAmount:   doc.TotalAmt,
		Balance:       doc.Balance,
		CurrencyCode:  doc.CurrencyRef.Value,
		Status:        deriveStatus(doc, entityType),
		CustomerRef:   doc.CustomerRef.Value,
		Source:        source,
		LastUpdatedAt: doc.MetaData.LastUpdatedTime,
		Raw:           raw,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// extractEntity unwraps {"Invoice": {...}} / {"CreditMemo": {...}} response
// envelopes, falling back to the whole body when the wrapper is absent.
func extractEntity(body json.RawMessage, entityType types.EntityType) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if inner, ok := envelope[string(entityType)]; ok {
			return inner
		}
	}
	return body
}
