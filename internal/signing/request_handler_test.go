package signing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/config"
	"bizmatch/deal-engine-backend/internal/deals"
	"bizmatch/deal-engine-backend/internal/negotiation"
	"bizmatch/deal-engine-backend/internal/party"
)

// MockProvider is a mock implementation of Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) SendForSignature(ctx context.Context, req *SignatureRequest) (*Envelope, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Envelope), args.Error(1)
}

func newRequestRouter(agreements Agreements, activities Activities, provider Provider, caller party.Caller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		party.WithCaller(c, caller)
		c.Next()
	})
	cfg := config.SigningConfig{CallbackURL: "https://deals.example.com/webhooks/signing"}
	handler := NewRequestHandler(agreements, activities, provider, cfg, zap.NewNop())
	handler.RegisterRoutes(router.Group(""))
	return router
}

func dispatchRequest(t *testing.T, spaID uuid.UUID) *http.Request {
	t.Helper()
	body, err := json.Marshal(gin.H{
		"buyer_email":  "buyer@example.com",
		"seller_email": "seller@example.com",
	})
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/spas/"+spaID.String()+"/request-signatures", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRequestSignaturesDispatchesEnvelope(t *testing.T) {
	agreements := new(MockAgreements)
	activities := new(MockActivities)
	provider := new(MockProvider)

	txID := uuid.New()
	buyer := uuid.New()
	spa := &negotiation.SPA{ID: uuid.New(), BuyerID: buyer, SellerID: uuid.New(), Version: 3, Status: negotiation.SPAStatusNegotiation}
	spa.TransactionID = &txID
	caller := party.Caller{UserID: buyer, Name: "Ada Buyer", Roles: party.NewRoleSet("buyer")}

	agreements.On("GetSPA", mock.Anything, spa.ID, caller).Return(spa, nil)
	provider.On("SendForSignature", mock.Anything, mock.MatchedBy(func(req *SignatureRequest) bool {
		return req.DocumentID == spa.ID && req.TransactionID == txID && len(req.Signers) == 2 && req.CallbackURL != ""
	})).Return(&Envelope{ID: "env-42", DocumentID: spa.ID, Status: "sent"}, nil)
	activities.On("AppendActivity", mock.Anything, txID, deals.ActivitySPASent, mock.AnythingOfType("string"), mock.AnythingOfType("string"), mock.Anything).
		Return(&deals.Activity{}, nil)

	router := newRequestRouter(agreements, activities, provider, caller)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, dispatchRequest(t, spa.ID))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	provider.AssertExpectations(t)
	activities.AssertExpectations(t)
}

func TestRequestSignaturesRejectsSignedSPA(t *testing.T) {
	agreements := new(MockAgreements)
	activities := new(MockActivities)
	provider := new(MockProvider)

	txID := uuid.New()
	buyer := uuid.New()
	spa := &negotiation.SPA{ID: uuid.New(), BuyerID: buyer, SellerID: uuid.New(), Version: 4, Status: negotiation.SPAStatusSigned}
	spa.TransactionID = &txID
	caller := party.Caller{UserID: buyer, Name: "Ada Buyer", Roles: party.NewRoleSet("buyer")}

	agreements.On("GetSPA", mock.Anything, spa.ID, caller).Return(spa, nil)

	router := newRequestRouter(agreements, activities, provider, caller)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, dispatchRequest(t, spa.ID))

	assert.Equal(t, http.StatusConflict, rec.Code)
	provider.AssertNotCalled(t, "SendForSignature", mock.Anything, mock.Anything)
}

func TestRequestSignaturesProviderFailureIs502(t *testing.T) {
	agreements := new(MockAgreements)
	activities := new(MockActivities)
	provider := new(MockProvider)

	txID := uuid.New()
	buyer := uuid.New()
	spa := &negotiation.SPA{ID: uuid.New(), BuyerID: buyer, SellerID: uuid.New(), Version: 1, Status: negotiation.SPAStatusDraft}
	spa.TransactionID = &txID
	caller := party.Caller{UserID: buyer, Name: "Ada Buyer", Roles: party.NewRoleSet("buyer")}

	agreements.On("GetSPA", mock.Anything, spa.ID, caller).Return(spa, nil)
	provider.On("SendForSignature", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	router := newRequestRouter(agreements, activities, provider, caller)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, dispatchRequest(t, spa.ID))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	activities.AssertNotCalled(t, "AppendActivity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
