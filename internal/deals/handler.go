package deals

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
)

// Handler handles HTTP requests for deal lifecycle operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new deals handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers deal lifecycle routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	transactions := router.Group("/transactions")
	{
		transactions.POST("", h.createTransaction)
		transactions.GET("/:id", h.getTransaction)
		transactions.POST("/:id/close", h.closeTransaction)
		transactions.POST("/:id/cancel", h.cancelTransaction)

		transactions.GET("/:id/milestones", h.listMilestones)
		transactions.GET("/:id/milestones/next", h.nextMilestones)
		transactions.GET("/:id/payments", h.listPayments)
		transactions.GET("/:id/activities", h.listActivities)
	}

	router.POST("/milestones/:id/complete", h.completeMilestone)
}

// createTransaction handles POST /api/v1/transactions
func (h *Handler) createTransaction(c *gin.Context) {
	caller, ok := party.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller not resolved"})
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, activity, err := h.service.CreateTransaction(c.Request.Context(), caller, &req)
	if err != nil {
		h.respondError(c, "Failed to create transaction", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx, "activity": activity})
}

// getTransaction handles GET /api/v1/transactions/:id
func (h *Handler) getTransaction(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	tx, err := h.service.GetTransaction(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to get transaction", err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

type closeTransactionRequest struct {
	ClosingDate time.Time `json:"closing_date" binding:"required"`
	Summary     string    `json:"summary"`
}

// closeTransaction handles POST /api/v1/transactions/:id/close
func (h *Handler) closeTransaction(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req closeTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, activity, err := h.service.CloseTransaction(c.Request.Context(), id, caller, req.ClosingDate, req.Summary)
	if err != nil {
		h.respondError(c, "Failed to close transaction", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx, "activity": activity})
}

type cancelTransactionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// cancelTransaction handles POST /api/v1/transactions/:id/cancel
func (h *Handler) cancelTransaction(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req cancelTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, activity, err := h.service.CancelTransaction(c.Request.Context(), id, caller, req.Reason)
	if err != nil {
		h.respondError(c, "Failed to cancel transaction", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx, "activity": activity})
}

// completeMilestone handles POST /api/v1/milestones/:id/complete
func (h *Handler) completeMilestone(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	milestone, activity, err := h.service.CompleteMilestone(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to complete milestone", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestone": milestone, "activity": activity})
}

// listMilestones handles GET /api/v1/transactions/:id/milestones
func (h *Handler) listMilestones(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	milestones, err := h.service.ListMilestones(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to list milestones", err)
		return
	}

	now := time.Now()
	type milestoneView struct {
		Milestone
		Overdue bool `json:"overdue"`
	}
	views := make([]milestoneView, len(milestones))
	for i, m := range milestones {
		views[i] = milestoneView{Milestone: m, Overdue: m.IsOverdue(now)}
	}

	c.JSON(http.StatusOK, gin.H{"milestones": views})
}

// nextMilestones handles GET /api/v1/transactions/:id/milestones/next
func (h *Handler) nextMilestones(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	n := 3
	if raw := c.Query("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}

	milestones, err := h.service.NextMilestones(c.Request.Context(), id, n, caller)
	if err != nil {
		h.respondError(c, "Failed to list next milestones", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestones": milestones})
}

// listPayments handles GET /api/v1/transactions/:id/payments
func (h *Handler) listPayments(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to list payments", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// listActivities handles GET /api/v1/transactions/:id/activities
func (h *Handler) listActivities(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	activities, err := h.service.ListActivities(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to list activities", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
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
