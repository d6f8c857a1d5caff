package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/AnserBeg/rent-soft-sub001/internal/domain/document"
	"github.com/AnserBeg/rent-soft-sub001/internal/domain/rental"
	"github.com/AnserBeg/rent-soft-sub001/internal/domain/syncstate"
	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
	"github.com/AnserBeg/rent-soft-sub001/internal/types"
)

// queryPageSize is QuickBooks's MAXRESULTS ceiling.
const queryPageSize = 1000

// defaultSyncLookback bounds the first incremental sync for a tenant with no
// stored watermark.
const defaultSyncLookback = 12 // months

// SyncMode selects the incremental-sync path.
type SyncMode string

const (
	// SyncModeAuto tries the change feed first and falls back to queries.
	SyncModeAuto SyncMode = ""
	// SyncModeQuery skips the change feed entirely.
	SyncModeQuery SyncMode = "query"
)

// IncrementalSyncParams scopes one incremental-sync pass.
type IncrementalSyncParams struct {
	CompanyID int
	// Entities defaults to Invoice and CreditMemo when empty.
	Entities []types.EntityType
	// Since overrides the stored watermark; Until bounds the window. When
	// Until precedes Since the two are swapped rather than rejected.
	Since *time.Time
	Until *time.Time
	Mode  SyncMode
}

// EventResult reports how a webhook event was applied.
type EventResult struct {
	Removed  bool               `json:"removed"`
	Document *document.Document `json:"document,omitempty"`
}

// SyncServiceParams wires a SyncService's collaborators.
type SyncServiceParams struct {
	Requester Requester
	Documents document.Repository
	SyncState syncstate.Repository
	Orders    rental.OrderContextProvider
	Clock     Clock
	Logger    *logger.Logger
}

// SyncService mirrors QuickBooks invoices and credit memos locally through
// three channels: targeted fetches driven by webhook events, the change-data
// feed, and TxnDate-windowed queries as the fallback. Every mirrored document
// is re-correlated to a rental order from the markers our drafts embed.
type SyncService struct {
	requester Requester
	documents document.Repository
	syncState syncstate.Repository
	orders    rental.OrderContextProvider
	clock     Clock
	logger    *logger.Logger
}

func NewSyncService(params SyncServiceParams) *SyncService {
	clock := params.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &SyncService{
		requester: params.Requester,
		documents: params.Documents,
		syncState: params.SyncState,
		orders:    params.Orders,
		clock:     clock,
		logger:    params.Logger,
	}
}

// SyncDocumentByID fetches one document from QuickBooks and mirrors it.
func (s *SyncService) SyncDocumentByID(ctx context.Context, companyID int, entityType types.EntityType, entityID string) (*document.Document, error) {
	if !entityType.Validate() {
		return nil, ierr.NewErrorf("unsupported entity type %q", entityType).
			Mark(ierr.ErrValidation)
	}
	path := strings.ToLower(string(entityType)) + "/" + url.PathEscape(entityID)
	body, err := s.requester.Request(ctx, companyID, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return s.mirrorRemote(ctx, companyID, entityType, extractEntity(body, entityType))
}

// HandleEvent applies one webhook entity-change event. Deletes and voids only
// flip the local soft flags; the row itself survives for audit. Everything
// else re-fetches the document so the mirror reflects the current remote
// state regardless of which operation the event claimed.
func (s *SyncService) HandleEvent(ctx context.Context, companyID int, entityType types.EntityType, entityID, operation string) (*EventResult, error) {
	op := strings.ToLower(strings.TrimSpace(operation))
	if op == strings.ToLower(types.OperationDelete) || op == strings.ToLower(types.OperationVoid) {
		err := s.documents.MarkRemoved(ctx, companyID, entityType, entityID,
			op == strings.ToLower(types.OperationVoid),
			op == strings.ToLower(types.OperationDelete))
		if err != nil {
			return nil, err
		}
		s.logger.Infow("quickbooks document removal mirrored",
			"company_id", companyID, "entity_type", entityType, "entity_id", entityID, "operation", op)
		return &EventResult{Removed: true}, nil
	}

	doc, err := s.SyncDocumentByID(ctx, companyID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	return &EventResult{Document: doc}, nil
}

// RunIncrementalSync pulls changed documents since the watermark. The change
// feed is the cheap path; a feed failure or an empty feed result falls back
// to TxnDate queries so silently missed changes still land. The watermark
// advances to now on every pass, whichever path produced the rows.
func (s *SyncService) RunIncrementalSync(ctx context.Context, p IncrementalSyncParams) ([]*document.Document, error) {
	entities := p.Entities
	if len(entities) == 0 {
		entities = []types.EntityType{types.EntityTypeInvoice, types.EntityTypeCreditMemo}
	}

	since, until, err := s.resolveWindow(ctx, p)
	if err != nil {
		return nil, err
	}

	var out []*document.Document
	cdcFailed := false

	if p.Mode != SyncModeQuery {
		docs, err := s.runChangeFeed(ctx, p.CompanyID, entities, since)
		if err != nil {
			cdcFailed = true
			s.logger.Warnw("quickbooks change feed failed, falling back to query sync",
				"company_id", p.CompanyID, "since", since, "error", err)
		} else {
			out = docs
		}
	}

	if p.Mode == SyncModeQuery || cdcFailed || len(out) == 0 {
		docs, err := s.runQuerySync(ctx, p.CompanyID, entities, since, until)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}

	now := s.clock.Now()
	err = s.syncState.Upsert(ctx, &syncstate.SyncState{
		CompanyID:        p.CompanyID,
		EntityName:       types.SyncEntityNameCDC,
		LastChangeFeedAt: now,
		UpdatedAt:        now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("quickbooks incremental sync completed",
		"company_id", p.CompanyID, "since", since, "documents", len(out), "cdc_failed", cdcFailed)
	return out, nil
}

// ListDocumentsForRentalOrder returns the mirrored documents tied to an order.
func (s *SyncService) ListDocumentsForRentalOrder(ctx context.Context, companyID, orderID int) ([]*document.Document, error) {
	return s.documents.ListForRentalOrder(ctx, companyID, orderID)
}

// ListUnassignedDocuments returns mirrored documents no heuristic could tie
// to an order, the queue a bookkeeper resolves by hand.
func (s *SyncService) ListUnassignedDocuments(ctx context.Context, companyID int) ([]*document.Document, error) {
	return s.documents.ListUnassigned(ctx, companyID)
}

// resolveWindow picks the sync window: explicit bounds win, then the stored
// watermark, then the default lookback.
func (s *SyncService) resolveWindow(ctx context.Context, p IncrementalSyncParams) (time.Time, *time.Time, error) {
	var since time.Time
	if p.Since != nil {
		since = p.Since.UTC()
	} else {
		state, err := s.syncState.Get(ctx, p.CompanyID, types.SyncEntityNameCDC)
		if err != nil {
			return time.Time{}, nil, err
		}
		if state != nil && !state.LastChangeFeedAt.IsZero() {
			since = state.LastChangeFeedAt.UTC()
		} else {
			since = s.clock.Now().AddDate(0, -defaultSyncLookback, 0)
		}
	}

	var until *time.Time
	if p.Until != nil {
		u := p.Until.UTC()
		until = &u
	}
	if until != nil && until.Before(since) {
		since, *until = *until, since
	}
	return since, until, nil
}

func (s *SyncService) runChangeFeed(ctx context.Context, companyID int, entities []types.EntityType, since time.Time) ([]*document.Document, error) {
	names := lo.Map(entities, func(e types.EntityType, _ int) string { return string(e) })
	path := fmt.Sprintf("cdc?entities=%s&changedSince=%s",
		url.QueryEscape(strings.Join(names, ",")),
		url.QueryEscape(since.Format(time.RFC3339)))

	body, err := s.requester.Request(ctx, companyID, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var envelope cdcEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, ierr.WithError(err).
			WithHint("QuickBooks change feed response was not valid JSON").
			Mark(ierr.ErrHTTPClient)
	}

	var out []*document.Document
	for _, entityType := range entities {
		rows, err := decodeRows(envelope.CDCResponse[string(entityType)])
		if err != nil {
			return nil, err
		}
		for _, raw := range rows {
			doc, err := s.mirrorRemote(ctx, companyID, entityType, raw)
			if err != nil {
				return nil, err
			}
			if doc != nil {
				out = append(out, doc)
			}
		}
	}
	return out, nil
}

func (s *SyncService) runQuerySync(ctx context.Context, companyID int, entities []types.EntityType, since time.Time, until *time.Time) ([]*document.Document, error) {
	var out []*document.Document
	for _, entityType := range entities {
		startPosition := 1
		for {
			filters := []string{fmt.Sprintf("TxnDate >= '%s'", QBODate(since))}
			if until != nil {
				filters = append(filters, fmt.Sprintf("TxnDate <= '%s'", QBODate(*until)))
			}
			query := fmt.Sprintf("select * from %s where %s STARTPOSITION %d MAXRESULTS %d",
				entityType, strings.Join(filters, " AND "), startPosition, queryPageSize)

			body, err := s.requester.Request(ctx, companyID, http.MethodGet, "query?query="+url.QueryEscape(query), nil)
			if err != nil {
				return nil, err
			}

			var envelope queryEnvelope
			if err := json.Unmarshal(body, &envelope); err != nil {
				return nil, ierr.WithError(err).
					WithHint("QuickBooks query response was not valid JSON").
					Mark(ierr.ErrHTTPClient)
			}
			rows, err := decodeRows(envelope.QueryResponse[string(entityType)])
			if err != nil {
				return nil, err
			}
			for _, raw := range rows {
				doc, err := s.mirrorRemote(ctx, companyID, entityType, raw)
				if err != nil {
					return nil, err
				}
				if doc != nil {
					out = append(out, doc)
				}
			}
			if len(rows) < queryPageSize {
				break
			}
			startPosition += queryPageSize
		}
	}
	return out, nil
}

// mirrorRemote correlates a remote document to a rental order and upserts the
// local mirror. Rows without an Id are skipped, not failed, since a single
// malformed row should not sink a whole sync pass.
func (s *SyncService) mirrorRemote(ctx context.Context, companyID int, entityType types.EntityType, raw json.RawMessage) (*document.Document, error) {
	var remote RemoteDocument
	if err := json.Unmarshal(raw, &remote); err != nil {
		return nil, ierr.WithError(err).
			WithHint("QuickBooks document was not valid JSON").
			Mark(ierr.ErrHTTPClient)
	}
	if remote.ID == "" {
		return nil, nil
	}

	var rentalOrderID *int
	if roNumber := ExtractRONumber(&remote); roNumber != "" {
		id, err := s.orders.FindOrderIDByRONumber(ctx, companyID, roNumber)
		if err != nil {
			return nil, err
		}
		rentalOrderID = id
	}

	doc := documentFromRemote(companyID, rentalOrderID, entityType, &remote, raw,
		types.DocumentSourceRemote, ExtractBillingPeriod(&remote), s.clock.Now())
	return s.documents.Upsert(ctx, doc)
}

// decodeRows unwraps an entity array that may be absent entirely.
func decodeRows(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, ierr.WithError(err).
			WithHint("QuickBooks entity rows were not an array").
			Mark(ierr.ErrHTTPClient)
	}
	return rows, nil
}
