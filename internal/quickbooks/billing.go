package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/AnserBeg/rent-soft-sub001/internal/config"
	"github.com/AnserBeg/rent-soft-sub001/internal/domain/document"
	"github.com/AnserBeg/rent-soft-sub001/internal/domain/rental"
	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
	"github.com/AnserBeg/rent-soft-sub001/internal/types"
)

// DraftResult reports the outcome of a draft attempt. Business rejections
// (missing order, missing item mappings, an already-drafted period) come back
// as a non-OK result instead of an error so callers can show the reason
// without unwrapping; errors are reserved for infrastructure failures.
type DraftResult struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Skipped string `json:"skipped,omitempty"`
	// MissingTypeIDs lists the line-item types without a QuickBooks item
	// mapping when that is what blocked the draft.
	MissingTypeIDs []int              `json:"missing_type_ids,omitempty"`
	DocNumber      string             `json:"doc_number,omitempty"`
	PeriodKey      string             `json:"period_key,omitempty"`
	Document       *document.Document `json:"document,omitempty"`
}

// DraftParams scopes one invoice or credit-memo draft.
type DraftParams struct {
	CompanyID   int
	OrderID     int
	LineItemIDs []int
	PeriodStart time.Time
	PeriodEnd   time.Time
	PeriodKey   string
	DocSuffix   string
}

// BillingServiceParams wires a BillingService's collaborators.
type BillingServiceParams struct {
	Config    config.QuickBooksConfig
	Requester Requester
	Documents document.Repository
	Orders    rental.OrderContextProvider
	Lines     rental.BillingLineAssembler
	Settings  rental.SettingsProvider
	Clock     Clock
	Logger    *logger.Logger
}

// BillingService drafts invoices and credit memos in QuickBooks for rental
// orders and mirrors the created documents locally. Drafting is idempotent
// per (order, period, suffix) through deterministic document numbers.
type BillingService struct {
	cfg       config.QuickBooksConfig
	requester Requester
	documents document.Repository
	orders    rental.OrderContextProvider
	lines     rental.BillingLineAssembler
	settings  rental.SettingsProvider
	clock     Clock
	logger    *logger.Logger
}

func NewBillingService(params BillingServiceParams) *BillingService {
	clock := params.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &BillingService{
		cfg:       params.Config,
		requester: params.Requester,
		documents: params.Documents,
		orders:    params.Orders,
		lines:     params.Lines,
		settings:  params.Settings,
		clock:     clock,
		logger:    params.Logger,
	}
}

// DraftInvoice creates a draft invoice in QuickBooks for the order's billable
// lines in the given period.
func (s *BillingService) DraftInvoice(ctx context.Context, p DraftParams) (*DraftResult, error) {
	return s.draft(ctx, p, types.EntityTypeInvoice)
}

// DraftCreditMemo creates a credit memo for the order's lines in the given
// period. Lines already marked returned are included, since crediting after a
// return is the whole point.
func (s *BillingService) DraftCreditMemo(ctx context.Context, p DraftParams) (*DraftResult, error) {
	if p.DocSuffix == "" {
		p.DocSuffix = CreditSuffix(0)
	}
	return s.draft(ctx, p, types.EntityTypeCreditMemo)
}

// CreatePickupDraftInvoice drafts an invoice for one line item at pickup
// time, covering the billing period the pickup falls into.
func (s *BillingService) CreatePickupDraftInvoice(ctx context.Context, companyID, orderID, lineItemID int, pickedUpAt time.Time) (*DraftResult, error) {
	anchor, err := s.anchorDay(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if pickedUpAt.IsZero() {
		pickedUpAt = s.clock.Now()
	}
	period := ResolvePickupPeriod(pickedUpAt, anchor)
	return s.DraftInvoice(ctx, DraftParams{
		CompanyID:   companyID,
		OrderID:     orderID,
		LineItemIDs: []int{lineItemID},
		PeriodStart: pickedUpAt,
		PeriodEnd:   period.End,
		PeriodKey:   period.Key,
		DocSuffix:   PickupLineSuffix(lineItemID),
	})
}

// CreatePickupDraftInvoiceBulk drafts a single invoice covering several line
// items picked up together.
func (s *BillingService) CreatePickupDraftInvoiceBulk(ctx context.Context, companyID, orderID int, lineItemIDs []int, pickedUpAt time.Time) (*DraftResult, error) {
	ids := lo.Uniq(lineItemIDs)
	if len(ids) == 0 {
		return &DraftResult{Error: "line item ids are required"}, nil
	}
	anchor, err := s.anchorDay(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if pickedUpAt.IsZero() {
		pickedUpAt = s.clock.Now()
	}
	period := ResolvePickupPeriod(pickedUpAt, anchor)
	return s.DraftInvoice(ctx, DraftParams{
		CompanyID:   companyID,
		OrderID:     orderID,
		LineItemIDs: ids,
		PeriodStart: pickedUpAt,
		PeriodEnd:   period.End,
		PeriodKey:   period.Key,
		DocSuffix:   PickupBulkSuffix,
	})
}

// PickupBulkDocNumber predicts the document number a bulk pickup draft would
// get, so callers can show it before drafting. Empty when QuickBooks assigns
// numbers.
func (s *BillingService) PickupBulkDocNumber(ctx context.Context, companyID int, roNumber string, orderID int, pickedUpAt time.Time) (string, error) {
	if s.cfg.UseAutoDocNumber() {
		return "", nil
	}
	anchor, err := s.anchorDay(ctx, companyID)
	if err != nil {
		return "", err
	}
	if pickedUpAt.IsZero() {
		pickedUpAt = s.clock.Now()
	}
	period := ResolvePickupPeriod(pickedUpAt, anchor)
	return BuildDocNumber(DocNumberParts{
		RONumber:  roNumber,
		OrderID:   orderID,
		PeriodKey: period.Key,
		Suffix:    PickupBulkSuffix,
	}), nil
}

// CreateMonthlyDraftInvoice drafts the recurring invoice for the billing
// period containing asOf. An existing locally-drafted invoice for the same
// period skips the draft, so scheduler retries and overlapping runs stay
// idempotent even before the doc-number check.
func (s *BillingService) CreateMonthlyDraftInvoice(ctx context.Context, companyID, orderID int, asOf time.Time) (*DraftResult, error) {
	anchor, err := s.anchorDay(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	period := PeriodFor(asOf, anchor)
	periodKey := PeriodKey(period.Start, anchor)

	existing, err := s.documents.ListForRentalOrder(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	hasMonthly := lo.SomeBy(existing, func(doc *document.Document) bool {
		return doc.EntityType == types.EntityTypeInvoice &&
			doc.BillingPeriod == periodKey &&
			doc.Source == types.DocumentSourceLocal
	})
	if hasMonthly {
		return &DraftResult{Skipped: "existing_period_invoice", PeriodKey: periodKey}, nil
	}

	return s.DraftInvoice(ctx, DraftParams{
		CompanyID:   companyID,
		OrderID:     orderID,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		PeriodKey:   periodKey,
	})
}

// CreateReturnCreditMemo drafts a credit memo for one line item returned
// mid-period.
func (s *BillingService) CreateReturnCreditMemo(ctx context.Context, companyID, orderID, lineItemID int, returnedAt time.Time) (*DraftResult, error) {
	anchor, err := s.anchorDay(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if returnedAt.IsZero() {
		returnedAt = s.clock.Now()
	}
	period := PeriodFor(returnedAt, anchor)
	return s.DraftCreditMemo(ctx, DraftParams{
		CompanyID:   companyID,
		OrderID:     orderID,
		LineItemIDs: []int{lineItemID},
		PeriodStart: returnedAt,
		PeriodEnd:   period.End,
		PeriodKey:   PeriodKey(period.Start, anchor),
		DocSuffix:   CreditSuffix(lineItemID),
	})
}

func (s *BillingService) draft(ctx context.Context, p DraftParams, entityType types.EntityType) (*DraftResult, error) {
	taxCode := s.defaultTaxCode(ctx, p.CompanyID)

	order, err := s.orders.GetOrderContext(ctx, p.CompanyID, p.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return &DraftResult{Error: "rental order not found"}, nil
	}
	if order.QBOCustomerID == "" {
		return &DraftResult{Error: "customer is missing a QuickBooks customer id"}, nil
	}

	lines, err := s.lines.BuildBillingLines(ctx, rental.BillingLineQuery{
		CompanyID:        p.CompanyID,
		OrderID:          p.OrderID,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		LineItemIDs:      p.LineItemIDs,
		IgnoreReturnedAt: entityType == types.EntityTypeCreditMemo,
	})
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		if entityType == types.EntityTypeCreditMemo {
			return &DraftResult{Error: "no creditable line items for this period"}, nil
		}
		return &DraftResult{Error: "no billable line items for this period"}, nil
	}

	missing := lo.Filter(lines, func(line rental.BillingLine, _ int) bool {
		return line.QBOItemID == ""
	})
	if len(missing) > 0 {
		return &DraftResult{
			Error: "missing QuickBooks item mappings",
			MissingTypeIDs: lo.Map(missing, func(line rental.BillingLine, _ int) int {
				return line.TypeID
			}),
		}, nil
	}

	docNumber := ""
	if !s.cfg.UseAutoDocNumber() {
		docNumber = BuildDocNumber(DocNumberParts{
			RONumber:  order.RONumber,
			OrderID:   p.OrderID,
			PeriodKey: p.PeriodKey,
			Suffix:    p.DocSuffix,
		})
	}

	existing, err := s.documents.ListForRentalOrder(ctx, p.CompanyID, p.OrderID)
	if err != nil {
		return nil, err
	}
	if docNumber != "" {
		duplicate := lo.SomeBy(existing, func(doc *document.Document) bool {
			return doc.EntityType == entityType && doc.DocNumber == docNumber
		})
		if duplicate {
			return &DraftResult{Skipped: "existing_document", DocNumber: docNumber, PeriodKey: p.PeriodKey}, nil
		}
	}

	var extraTags []string
	if entityType == types.EntityTypeInvoice {
		extraTags = s.pickupTags(p, docNumber, existing)
	}

	payload := DocumentCreatePayload{
		CustomerRef: Ref{Value: order.QBOCustomerID},
		TxnDate:     QBODate(p.PeriodStart),
		DocNumber:   docNumber,
		PrivateNote: BuildPrivateNote(DocNumberParts{
			RONumber:  order.RONumber,
			OrderID:   p.OrderID,
			PeriodKey: p.PeriodKey,
		}, extraTags...),
		Line: s.buildLines(lines, entityType, taxCode),
	}

	body, err := s.requester.Request(ctx, p.CompanyID, http.MethodPost, s.createPath(entityType), payload)
	if err != nil {
		s.logger.Errorw("quickbooks draft create failed",
			"company_id", p.CompanyID,
			"order_id", p.OrderID,
			"entity_type", entityType,
			"doc_number", docNumber,
			"period_key", p.PeriodKey,
			"error", err,
		)
		return nil, err
	}

	raw := extractEntity(body, entityType)
	var remote RemoteDocument
	if err := json.Unmarshal(raw, &remote); err != nil {
		return nil, ierr.WithError(err).
			WithHint("QuickBooks create response was not a document").
			Mark(ierr.ErrHTTPClient)
	}
	if remote.DocNumber == "" {
		remote.DocNumber = docNumber
	}
	if remote.TxnDate == "" {
		remote.TxnDate = payload.TxnDate
	}
	if remote.CustomerRef.Value == "" {
		remote.CustomerRef.Value = order.QBOCustomerID
	}

	orderID := p.OrderID
	doc := documentFromRemote(p.CompanyID, &orderID, entityType, &remote, raw, types.DocumentSourceLocal, p.PeriodKey, s.clock.Now())
	stored, err := s.documents.Upsert(ctx, doc)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("quickbooks draft created",
		"company_id", p.CompanyID,
		"order_id", p.OrderID,
		"entity_type", entityType,
		"entity_id", stored.EntityID,
		"doc_number", stored.DocNumber,
		"period_key", p.PeriodKey,
	)
	return &DraftResult{OK: true, DocNumber: stored.DocNumber, PeriodKey: p.PeriodKey, Document: stored}, nil
}

// pickupTags builds the extra private-note tags for pickup invoices: the line
// items covered, and a pointer to sibling pickup invoices so an accountant
// consolidating the order's month sees the full set.
func (s *BillingService) pickupTags(p DraftParams, docNumber string, existing []*document.Document) []string {
	if !IsPickupDocSuffix(p.DocSuffix) {
		return nil
	}

	var tags []string
	if ids := lo.Uniq(p.LineItemIDs); len(ids) > 0 {
		parts := lo.Map(ids, func(id int, _ int) string { return fmt.Sprintf("%d", id) })
		tags = append(tags, "LINEITEMS="+strings.Join(parts, ","))
	}

	others := lo.FilterMap(existing, func(doc *document.Document, _ int) (string, bool) {
		if doc.EntityType != types.EntityTypeInvoice || doc.Source != types.DocumentSourceLocal || !doc.IsActive() {
			return "", false
		}
		number := strings.TrimSpace(doc.DocNumber)
		if number == "" || number == docNumber || !IsPickupDocNumber(number) {
			return "", false
		}
		return number, true
	})
	if len(others) > 0 {
		preview := others
		if len(preview) > 3 {
			preview = preview[:3]
		}
		tags = append(tags, "OTHER_PICKUP_INVOICES="+strings.Join(preview, ","))
		if len(others) > len(preview) {
			tags = append(tags, fmt.Sprintf("OTHER_PICKUP_INVOICE_COUNT=%d", len(others)))
		}
	}
	return tags
}

// buildLines converts billing lines to QuickBooks sales lines. Quantities
// round to 4 places, money to 2, and the line amount is recomputed from the
// rounded values so it always matches what QuickBooks will display.
func (s *BillingService) buildLines(lines []rental.BillingLine, entityType types.EntityType, taxCode string) []DocumentLine {
	suffix := " (rental)"
	if entityType == types.EntityTypeCreditMemo {
		suffix = " (credit)"
	}
	return lo.Map(lines, func(line rental.BillingLine, _ int) DocumentLine {
		qty := line.Units.Mul(line.Quantity).Round(4)
		unitPrice := line.RateAmount.Round(2)
		amount := qty.Mul(unitPrice).Round(2)

		detail := &SalesLineDetail{
			ItemRef:   Ref{Value: line.QBOItemID},
			Qty:       &qty,
			UnitPrice: &unitPrice,
		}
		if taxCode != "" {
			detail.TaxCodeRef = &Ref{Value: taxCode}
		}
		return DocumentLine{
			Amount:              amount,
			DetailType:          "SalesItemLineDetail",
			Description:         line.TypeName + suffix,
			SalesItemLineDetail: detail,
		}
	})
}

func (s *BillingService) createPath(entityType types.EntityType) string {
	return strings.ToLower(string(entityType))
}

// defaultTaxCode reads the tenant's configured tax code; lookup failures mean
// drafting proceeds untaxed rather than not at all.
func (s *BillingService) defaultTaxCode(ctx context.Context, companyID int) string {
	settings, err := s.settings.GetCompanySettings(ctx, companyID)
	if err != nil || settings == nil {
		return ""
	}
	return strings.TrimSpace(settings.DefaultTaxCode)
}

func (s *BillingService) anchorDay(ctx context.Context, companyID int) (int, error) {
	settings, err := s.settings.GetCompanySettings(ctx, companyID)
	if err != nil {
		return 0, err
	}
	if settings == nil {
		return 1, nil
	}
	return settings.BillingAnchorDay, nil
}
