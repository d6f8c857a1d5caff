package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnserBeg/rent-soft-sub001/internal/config"
	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
	"github.com/AnserBeg/rent-soft-sub001/internal/logger"
	"github.com/AnserBeg/rent-soft-sub001/internal/quickbooks"
	"github.com/AnserBeg/rent-soft-sub001/internal/types"
)

const verifierToken = "verifier-secret"

type fakeRealmMapper struct {
	realms map[string]int
}

func (m *fakeRealmMapper) CompanyIDForRealm(_ context.Context, realmID string) (int, error) {
	companyID, ok := m.realms[realmID]
	if !ok {
		return 0, ierr.NewError("realm not connected").Mark(ierr.ErrNotFound)
	}
	return companyID, nil
}

type sinkCall struct {
	CompanyID  int
	EntityType types.EntityType
	EntityID   string
	Operation  string
}

type fakeEventSink struct {
	calls  []sinkCall
	failOn string
}

func (s *fakeEventSink) HandleEvent(_ context.Context, companyID int, entityType types.EntityType, entityID, operation string) (*quickbooks.EventResult, error) {
	s.calls = append(s.calls, sinkCall{companyID, entityType, entityID, operation})
	if entityID == s.failOn {
		return nil, ierr.NewError("entity fetch failed").Mark(ierr.ErrHTTPClient)
	}
	return &quickbooks.EventResult{}, nil
}

func sign(token string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newTestHandler(realms map[string]int, sink *fakeEventSink) *Handler {
	cfg := config.QuickBooksConfig{WebhookVerifierToken: verifierToken}
	return NewHandler(cfg, &fakeRealmMapper{realms: realms}, sink, logger.NewNopLogger())
}

func TestVerifySignature(t *testing.T) {
	handler := newTestHandler(nil, &fakeEventSink{})
	payload := []byte(`{"eventNotifications":[]}`)

	assert.NoError(t, handler.VerifySignature(payload, sign(verifierToken, payload)))

	err := handler.VerifySignature(payload, sign("wrong-token", payload))
	require.Error(t, err)
	assert.True(t, ierr.IsPermissionDenied(err))

	assert.Error(t, handler.VerifySignature(payload, ""))
	assert.Error(t, handler.VerifySignature(nil, sign(verifierToken, nil)))
}

func TestVerifySignatureFailsClosedWithoutToken(t *testing.T) {
	handler := NewHandler(config.QuickBooksConfig{}, &fakeRealmMapper{}, &fakeEventSink{}, logger.NewNopLogger())
	payload := []byte(`{}`)

	err := handler.VerifySignature(payload, sign("", payload))
	require.Error(t, err)
	assert.True(t, ierr.IsPermissionDenied(err))
}

func TestHandleDeliveryDispatchesEvents(t *testing.T) {
	sink := &fakeEventSink{}
	handler := newTestHandler(map[string]int{"realm-7": 3}, sink)

	payload := []byte(`{"eventNotifications":[{"realmId":"realm-7","dataChangeEvent":{"entities":[
		{"name":"Invoice","id":"129","operation":"Update","lastUpdated":"2024-03-14T10:00:00Z"},
		{"name":"CreditMemo","id":"42","operation":"Delete","lastUpdated":"2024-03-14T10:00:00Z"}
	]}}]}`)

	result, err := handler.HandleDelivery(context.Background(), payload, sign(verifierToken, payload))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Failed)

	require.Len(t, sink.calls, 2)
	assert.Equal(t, sinkCall{3, types.EntityTypeInvoice, "129", "Update"}, sink.calls[0])
	assert.Equal(t, sinkCall{3, types.EntityTypeCreditMemo, "42", "Delete"}, sink.calls[1])
}

func TestHandleDeliveryRejectsBadSignature(t *testing.T) {
	sink := &fakeEventSink{}
	handler := newTestHandler(map[string]int{"realm-7": 3}, sink)
	payload := []byte(`{"eventNotifications":[]}`)

	_, err := handler.HandleDelivery(context.Background(), payload, "not-the-signature")
	require.Error(t, err)
	assert.True(t, ierr.IsPermissionDenied(err))
	assert.Empty(t, sink.calls)
}

func TestHandleDeliverySkipsUnknownRealm(t *testing.T) {
	sink := &fakeEventSink{}
	handler := newTestHandler(map[string]int{"realm-7": 3}, sink)

	payload := []byte(`{"eventNotifications":[
		{"realmId":"realm-unknown","dataChangeEvent":{"entities":[
			{"name":"Invoice","id":"1","operation":"Update"},
			{"name":"Invoice","id":"2","operation":"Update"}
		]}},
		{"realmId":"realm-7","dataChangeEvent":{"entities":[
			{"name":"Invoice","id":"129","operation":"Update"}
		]}}
	]}`)

	result, err := handler.HandleDelivery(context.Background(), payload, sign(verifierToken, payload))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, sink.calls, 1)
	assert.Equal(t, "129", sink.calls[0].EntityID)
}

func TestHandleDeliverySkipsUnsupportedEntities(t *testing.T) {
	sink := &fakeEventSink{}
	handler := newTestHandler(map[string]int{"realm-7": 3}, sink)

	payload := []byte(`{"eventNotifications":[{"realmId":"realm-7","dataChangeEvent":{"entities":[
		{"name":"Payment","id":"9","operation":"Create"},
		{"name":"Customer","id":"55","operation":"Update"},
		{"name":"Invoice","id":"129","operation":"Update"}
	]}}]}`)

	result, err := handler.HandleDelivery(context.Background(), payload, sign(verifierToken, payload))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, sink.calls, 1)
	assert.Equal(t, types.EntityTypeInvoice, sink.calls[0].EntityType)
}

func TestHandleDeliveryCountsFailuresWithoutAborting(t *testing.T) {
	sink := &fakeEventSink{failOn: "129"}
	handler := newTestHandler(map[string]int{"realm-7": 3}, sink)

	payload := []byte(`{"eventNotifications":[{"realmId":"realm-7","dataChangeEvent":{"entities":[
		{"name":"Invoice","id":"129","operation":"Update"},
		{"name":"Invoice","id":"130","operation":"Update"}
	]}}]}`)

	result, err := handler.HandleDelivery(context.Background(), payload, sign(verifierToken, payload))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Processed)
	assert.Len(t, sink.calls, 2)
}

func TestHandleDeliveryRejectsMalformedBody(t *testing.T) {
	handler := newTestHandler(nil, &fakeEventSink{})
	payload := []byte(`{"eventNotifications":`)

	_, err := handler.HandleDelivery(context.Background(), payload, sign(verifierToken, payload))
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}
