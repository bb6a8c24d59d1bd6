package signing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/deals"
	"bizmatch/deal-engine-backend/internal/negotiation"
	"bizmatch/deal-engine-backend/internal/party"
)

const signatureHeader = "X-Signature"

// Event names delivered by the provider.
const (
	EventEnvelopeSigned   = "envelope.signed"
	EventEnvelopeDeclined = "envelope.declined"
)

// WebhookEvent is the provider's callback payload.
type WebhookEvent struct {
	Event         string    `json:"event" binding:"required"`
	EnvelopeID    string    `json:"envelope_id"`
	DocumentID    uuid.UUID `json:"document_id" binding:"required"`
	TransactionID uuid.UUID `json:"transaction_id" binding:"required"`
	SignerRole    string    `json:"signer_role"`
	Reason        string    `json:"reason"`
}

// Agreements is the slice of the negotiation engine the signing package
// drives: envelope dispatch reads the SPA, callbacks record signatures.
type Agreements interface {
	GetSPA(ctx context.Context, id uuid.UUID, caller party.Caller) (*negotiation.SPA, error)
	SPAByTransaction(ctx context.Context, transactionID uuid.UUID) (*negotiation.SPA, error)
	FinalizeSPA(ctx context.Context, id uuid.UUID, role negotiation.SignerRole, actor deals.Actor) (*negotiation.SPA, error)
}

// Activities appends to the deal audit trail.
type Activities interface {
	AppendActivity(ctx context.Context, transactionID uuid.UUID, activityType deals.ActivityType, title, description string, actor deals.Actor) (*deals.Activity, error)
}

// WebhookHandler receives signature callbacks from the provider.
type WebhookHandler struct {
	agreements Agreements
	activities Activities
	secret     string
	logger     *zap.Logger
}

// NewWebhookHandler creates a new signing webhook handler
func NewWebhookHandler(agreements Agreements, activities Activities, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		agreements: agreements,
		activities: activities,
		secret:     secret,
		logger:     logger,
	}
}

// RegisterRoutes registers the webhook endpoint. The route sits outside the
// authenticated API group; requests authenticate with an HMAC of the body.
func (h *WebhookHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/webhooks/signing", h.handleEvent)
}

func (h *WebhookHandler) handleEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if !h.verifySignature(body, c.GetHeader(signatureHeader)) {
		h.logger.Warn("Signing webhook rejected: bad signature")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	spa, err := h.agreements.SPAByTransaction(ctx, event.TransactionID)
	if err != nil {
		h.logger.Error("Signing webhook failed to resolve SPA", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve agreement"})
		return
	}
	if spa == nil || spa.ID != event.DocumentID {
		c.JSON(http.StatusNotFound, gin.H{"error": "no matching agreement"})
		return
	}

	switch event.Event {
	case EventEnvelopeSigned:
		role := negotiation.SignerRole(event.SignerRole)
		if role != negotiation.SignerBuyer && role != negotiation.SignerSeller {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown signer role %q", event.SignerRole)})
			return
		}
		if _, err := h.agreements.FinalizeSPA(ctx, spa.ID, role, deals.SystemActor); err != nil {
			h.logger.Error("Signing webhook failed to record signature",
				zap.String("spa_id", spa.ID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record signature"})
			return
		}

	case EventEnvelopeDeclined:
		description := fmt.Sprintf("%s declined to sign", event.SignerRole)
		if event.Reason != "" {
			description += ": " + event.Reason
		}
		if _, err := h.activities.AppendActivity(ctx, event.TransactionID, deals.ActivitySPADeclined,
			"SPA signature declined", description, deals.SystemActor); err != nil {
			h.logger.Error("Signing webhook failed to log decline", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log decline"})
			return
		}

	default:
		h.logger.Info("Ignoring signing webhook event", zap.String("event", event.Event))
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
