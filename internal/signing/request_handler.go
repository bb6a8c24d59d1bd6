package signing

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/config"
	"bizmatch/deal-engine-backend/internal/deals"
	"bizmatch/deal-engine-backend/internal/negotiation"
	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
)

// RequestHandler exposes the authenticated endpoint that dispatches a
// negotiated SPA to the e-signature provider. Signature results come back
// through the webhook.
type RequestHandler struct {
	agreements Agreements
	activities Activities
	provider   Provider
	cfg        config.SigningConfig
	logger     *zap.Logger
}

// NewRequestHandler creates a new signature request handler
func NewRequestHandler(agreements Agreements, activities Activities, provider Provider, cfg config.SigningConfig, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{
		agreements: agreements,
		activities: activities,
		provider:   provider,
		cfg:        cfg,
		logger:     logger,
	}
}

// RegisterRoutes registers the signature dispatch route.
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/spas/:id/request-signatures", h.requestSignatures)
}

type requestSignaturesRequest struct {
	BuyerEmail  string `json:"buyer_email" binding:"required,email"`
	SellerEmail string `json:"seller_email" binding:"required,email"`
}

// requestSignatures handles POST /api/v1/spas/:id/request-signatures
func (h *RequestHandler) requestSignatures(c *gin.Context) {
	caller, ok := party.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller not resolved"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req requestSignaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	spa, err := h.agreements.GetSPA(ctx, id, caller)
	if err != nil {
		h.respondError(c, "Failed to resolve SPA", err)
		return
	}
	if spa.Status == negotiation.SPAStatusSigned {
		h.respondError(c, "Failed to dispatch SPA", dealerr.InvalidState("SPA is already signed"))
		return
	}
	if spa.TransactionID == nil {
		h.respondError(c, "Failed to dispatch SPA", dealerr.InvalidState("SPA is not attached to a transaction"))
		return
	}

	envelope, err := h.provider.SendForSignature(ctx, &SignatureRequest{
		DocumentID:    spa.ID,
		TransactionID: *spa.TransactionID,
		Title:         fmt.Sprintf("Share Purchase Agreement v%d", spa.Version),
		Signers: []Signer{
			{UserID: spa.BuyerID, Email: req.BuyerEmail, Role: "buyer"},
			{UserID: spa.SellerID, Email: req.SellerEmail, Role: "seller"},
		},
		CallbackURL: h.cfg.CallbackURL,
	})
	if err != nil {
		h.logger.Error("Failed to send SPA for signature",
			zap.String("spa_id", spa.ID.String()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "signature provider rejected the request"})
		return
	}

	dealRole := deals.DealRoleBuyer
	if caller.UserID == spa.SellerID {
		dealRole = deals.DealRoleSeller
	}
	actor := deals.Actor{ID: &caller.UserID, Name: caller.Name, Role: dealRole}
	if _, err := h.activities.AppendActivity(ctx, *spa.TransactionID, deals.ActivitySPASent,
		"SPA sent for signature", fmt.Sprintf("Envelope %s dispatched to both parties", envelope.ID), actor); err != nil {
		h.logger.Warn("Failed to log signature dispatch", zap.Error(err))
	}

	c.JSON(http.StatusAccepted, envelope)
}

func (h *RequestHandler) respondError(c *gin.Context, msg string, err error) {
	status := dealerr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": string(dealerr.KindOf(err))})
}
