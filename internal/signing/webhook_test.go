package signing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/deals"
	"bizmatch/deal-engine-backend/internal/negotiation"
	"bizmatch/deal-engine-backend/internal/party"
)

// MockAgreements is a mock implementation of Agreements
type MockAgreements struct {
	mock.Mock
}

func (m *MockAgreements) GetSPA(ctx context.Context, id uuid.UUID, caller party.Caller) (*negotiation.SPA, error) {
	args := m.Called(ctx, id, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*negotiation.SPA), args.Error(1)
}

func (m *MockAgreements) SPAByTransaction(ctx context.Context, transactionID uuid.UUID) (*negotiation.SPA, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*negotiation.SPA), args.Error(1)
}

func (m *MockAgreements) FinalizeSPA(ctx context.Context, id uuid.UUID, role negotiation.SignerRole, actor deals.Actor) (*negotiation.SPA, error) {
	args := m.Called(ctx, id, role, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*negotiation.SPA), args.Error(1)
}

// MockActivities is a mock implementation of Activities
type MockActivities struct {
	mock.Mock
}

func (m *MockActivities) AppendActivity(ctx context.Context, transactionID uuid.UUID, activityType deals.ActivityType, title, description string, actor deals.Actor) (*deals.Activity, error) {
	args := m.Called(ctx, transactionID, activityType, title, description, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deals.Activity), args.Error(1)
}

const testSecret = "webhook-test-secret"

func newTestRouter(agreements Agreements, activities Activities) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewWebhookHandler(agreements, activities, testSecret, zap.NewNop())
	handler.RegisterRoutes(router.Group(""))
	return router
}

func signedRequest(t *testing.T, event WebhookEvent, secret string) *http.Request {
	t.Helper()
	body, err := json.Marshal(event)
	assert.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/signing", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signatureHeader, hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	agreements := new(MockAgreements)
	activities := new(MockActivities)
	router := newTestRouter(agreements, activities)

	event := WebhookEvent{Event: EventEnvelopeSigned, DocumentID: uuid.New(), TransactionID: uuid.New(), SignerRole: "buyer"}
	req := signedRequest(t, event, "wrong-secret")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	agreements.AssertNotCalled(t, "FinalizeSPA", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookSignedEventFinalizesSPA(t *testing.T) {
	agreements := new(MockAgreements)
	activities := new(MockActivities)
	router := newTestRouter(agreements, activities)

	txID := uuid.New()
	spa := &negotiation.SPA{ID: uuid.New(), BuyerID: uuid.New(), SellerID: uuid.New()}
	spa.TransactionID = &txID

	agreements.On("SPAByTransaction", mock.Anything, txID).Return(spa, nil)
	agreements.On("FinalizeSPA", mock.Anything, spa.ID, negotiation.SignerSeller, deals.SystemActor).Return(spa, nil)

	event := WebhookEvent{Event: EventEnvelopeSigned, DocumentID: spa.ID, TransactionID: txID, SignerRole: "seller"}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, event, testSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
	agreements.AssertExpectations(t)
}

func TestWebhookDeclinedEventLogsActivity(t *testing.T) {
	agreements := new(MockAgreements)
	activities := new(MockActivities)
	router := newTestRouter(agreements, activities)

	txID := uuid.New()
	spa := &negotiation.SPA{ID: uuid.New()}
	spa.TransactionID = &txID

	agreements.On("SPAByTransaction", mock.Anything, txID).Return(spa, nil)
	activities.On("AppendActivity", mock.Anything, txID, deals.ActivitySPADeclined, mock.AnythingOfType("string"), mock.AnythingOfType("string"), deals.SystemActor).
		Return(&deals.Activity{}, nil)

	event := WebhookEvent{Event: EventEnvelopeDeclined, DocumentID: spa.ID, TransactionID: txID, SignerRole: "seller", Reason: "terms changed"}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, event, testSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
	activities.AssertExpectations(t)
	agreements.AssertNotCalled(t, "FinalizeSPA", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookUnknownDocumentIs404(t *testing.T) {
	agreements := new(MockAgreements)
	activities := new(MockActivities)
	router := newTestRouter(agreements, activities)

	txID := uuid.New()
	agreements.On("SPAByTransaction", mock.Anything, txID).Return(nil, nil)

	event := WebhookEvent{Event: EventEnvelopeSigned, DocumentID: uuid.New(), TransactionID: txID, SignerRole: "buyer"}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, event, testSecret))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
