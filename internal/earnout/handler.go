package earnout

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
)

// Handler handles HTTP requests for earnout accrual
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new earnout handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers earnout routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	earnouts := router.Group("/earnouts")
	{
		earnouts.POST("", h.createEarnOut)
		earnouts.GET("/:id", h.getEarnOut)
		earnouts.GET("/:id/payments", h.listPayments)
		earnouts.GET("/:id/summary", h.getSummary)
	}

	payments := router.Group("/earnout-payments")
	{
		payments.POST("/:id/record", h.recordActual)
		payments.POST("/:id/approve", h.approvePayment)
		payments.POST("/:id/dispute", h.disputePayment)
	}
}

// createEarnOut handles POST /api/v1/earnouts
func (h *Handler) createEarnOut(c *gin.Context) {
	caller, ok := party.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller not resolved"})
		return
	}

	var req CreateEarnOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	earnOut, err := h.service.CreateEarnOut(c.Request.Context(), caller, &req)
	if err != nil {
		h.respondError(c, "Failed to create earnout", err)
		return
	}

	c.JSON(http.StatusCreated, earnOut)
}

// getEarnOut handles GET /api/v1/earnouts/:id
func (h *Handler) getEarnOut(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	earnOut, err := h.service.GetEarnOut(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to get earnout", err)
		return
	}

	c.JSON(http.StatusOK, earnOut)
}

// listPayments handles GET /api/v1/earnouts/:id/payments
func (h *Handler) listPayments(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to list earnout payments", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// getSummary handles GET /api/v1/earnouts/:id/summary
func (h *Handler) getSummary(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	summary, err := h.service.GetSummary(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to get earnout summary", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// actual_value deliberately has no required binding: zero is a legitimate
// reported actual.
type recordActualRequest struct {
	ActualValue int64 `json:"actual_value"`
}

// recordActual handles POST /api/v1/earnout-payments/:id/record
func (h *Handler) recordActual(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req recordActualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.service.RecordActual(c.Request.Context(), id, caller, req.ActualValue)
	if err != nil {
		h.respondError(c, "Failed to record earnout actual", err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// approvePayment handles POST /api/v1/earnout-payments/:id/approve
func (h *Handler) approvePayment(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	payment, summary, err := h.service.ApprovePayment(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to approve earnout payment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": payment, "summary": summary})
}

type disputePaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// disputePayment handles POST /api/v1/earnout-payments/:id/dispute
func (h *Handler) disputePayment(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req disputePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.service.DisputePayment(c.Request.Context(), id, caller, req.Reason)
	if err != nil {
		h.respondError(c, "Failed to dispute earnout payment", err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (h *Handler) callerAndID(c *gin.Context) (party.Caller, uuid.UUID, bool) {
	caller, ok := party.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller not resolved"})
		return party.Caller{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return party.Caller{}, uuid.Nil, false
	}
	return caller, id, true
}

func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	status := dealerr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": string(dealerr.KindOf(err))})
}
