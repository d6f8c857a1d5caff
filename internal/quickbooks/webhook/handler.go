package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/AnserBeg/rent-soft-sub001/internal/config"
	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
	"github.com/AnserBeg/rent-soft-sub001/internal/quickbooks"
	"github.com/AnserBeg/rent-soft-sub001/internal/types"
)

// SignatureHeader is the request header carrying the payload signature.
const SignatureHeader = "intuit-signature"

// RealmMapper resolves which tenant a QuickBooks realm belongs to.
// A realm with no connected tenant returns ErrNotFound.
type RealmMapper interface {
	CompanyIDForRealm(ctx context.Context, realmID string) (int, error)
}

// EventSink applies one entity-change event. SyncService satisfies it.
type EventSink interface {
	HandleEvent(ctx context.Context, companyID int, entityType types.EntityType, entityID, operation string) (*quickbooks.EventResult, error)
}

// Handler verifies and dispatches QuickBooks webhook deliveries. It is
// transport-agnostic: the HTTP layer hands it the raw body and the signature
// header value.
type Handler struct {
	verifierToken string
	realms        RealmMapper
	sink          EventSink
	logger        *logger.Logger
}

func NewHandler(cfg config.QuickBooksConfig, realms RealmMapper, sink EventSink, log *logger.Logger) *Handler {
	return &Handler{
		verifierToken: cfg.WebhookVerifierToken,
		realms:        realms,
		sink:          sink,
		logger:        log,
	}
}

// VerifySignature checks the delivery's HMAC-SHA256 signature against the
// configured verifier token. The comparison is constant-time. A missing
// token, payload, or signature always fails closed.
func (h *Handler) VerifySignature(payload []byte, signature string) error {
	if len(payload) == 0 || signature == "" || h.verifierToken == "" {
		return ierr.NewError("webhook signature verification failed").
			WithHint("Missing payload, signature, or verifier token").
			Mark(ierr.ErrPermissionDenied)
	}
	mac := hmac.New(sha256.New, []byte(h.verifierToken))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ierr.NewError("webhook signature mismatch").
			WithHint("The payload was not signed with this app's verifier token").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

// HandleDelivery verifies and processes one webhook body. Events for realms
// no tenant owns and entity types outside Invoice/CreditMemo are skipped;
// a failing event is logged and counted but does not block the rest of the
// batch, since QuickBooks retries the whole delivery on a non-2xx response.
func (h *Handler) HandleDelivery(ctx context.Context, payload []byte, signature string) (*Result, error) {
	if err := h.VerifySignature(payload, signature); err != nil {
		return nil, err
	}

	var body Payload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook payload was not valid JSON").
			Mark(ierr.ErrValidation)
	}

	result := &Result{}
	for _, notification := range body.EventNotifications {
		companyID, err := h.realms.CompanyIDForRealm(ctx, notification.RealmID)
		if err != nil {
			if ierr.IsNotFound(err) {
				h.logger.Warnw("webhook for unknown realm skipped", "realm_id", notification.RealmID)
				result.Skipped += len(notification.DataChangeEvent.Entities)
				continue
			}
			return nil, err
		}

		for _, entity := range notification.DataChangeEvent.Entities {
			entityType := types.EntityType(entity.Name)
			if !entityType.Validate() {
				result.Skipped++
				continue
			}
			if _, err := h.sink.HandleEvent(ctx, companyID, entityType, entity.ID, entity.Operation); err != nil {
				h.logger.Errorw("webhook event processing failed",
					"company_id", companyID,
					"realm_id", notification.RealmID,
					"entity_type", entityType,
					"entity_id", entity.ID,
					"operation", entity.Operation,
					"error", err,
				)
				result.Failed++
				continue
			}
			result.Processed++
		}
	}

	h.logger.Infow("webhook delivery processed",
		"processed", result.Processed, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}
