package diligence

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
)

// Handler handles HTTP requests for due-diligence reviews
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new diligence handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers diligence routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/diligence")
	{
		projects.POST("", h.createProject)
		projects.GET("/:id", h.getProject)
		projects.GET("/:id/tasks", h.listTasks)
		projects.GET("/:id/findings", h.listFindings)
		projects.POST("/:id/findings", h.recordFinding)
		projects.GET("/:id/metrics", h.getMetrics)
	}

	router.PUT("/diligence-tasks/:id/status", h.updateTaskStatus)
	router.POST("/diligence-findings/:id/resolve", h.resolveFinding)
}

// createProject handles POST /api/v1/diligence
func (h *Handler) createProject(c *gin.Context) {
	caller, ok := party.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller not resolved"})
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.CreateProject(c.Request.Context(), caller, &req)
	if err != nil {
		h.respondError(c, "Failed to create review", err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// getProject handles GET /api/v1/diligence/:id
func (h *Handler) getProject(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	project, err := h.service.GetProject(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to get review", err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// listTasks handles GET /api/v1/diligence/:id/tasks
func (h *Handler) listTasks(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to list tasks", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// listFindings handles GET /api/v1/diligence/:id/findings
func (h *Handler) listFindings(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	findings, err := h.service.ListFindings(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to list findings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"findings": findings})
}

// recordFinding handles POST /api/v1/diligence/:id/findings
func (h *Handler) recordFinding(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req RecordFindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	finding, err := h.service.RecordFinding(c.Request.Context(), id, caller, &req)
	if err != nil {
		h.respondError(c, "Failed to record finding", err)
		return
	}

	c.JSON(http.StatusCreated, finding)
}

// getMetrics handles GET /api/v1/diligence/:id/metrics
func (h *Handler) getMetrics(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	metrics, err := h.service.GetMetrics(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to get metrics", err)
		return
	}

	c.JSON(http.StatusOK, metrics)
}

type updateTaskStatusRequest struct {
	Status TaskStatus `json:"status" binding:"required"`
}

// updateTaskStatus handles PUT /api/v1/diligence-tasks/:id/status
func (h *Handler) updateTaskStatus(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req updateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.service.UpdateTaskStatus(c.Request.Context(), id, caller, req.Status)
	if err != nil {
		h.respondError(c, "Failed to update task", err)
		return
	}

	c.JSON(http.StatusOK, task)
}

type resolveFindingRequest struct {
	Resolution string `json:"resolution" binding:"required"`
	Accepted   bool   `json:"accepted"`
}

// resolveFinding handles POST /api/v1/diligence-findings/:id/resolve
func (h *Handler) resolveFinding(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req resolveFindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	finding, err := h.service.ResolveFinding(c.Request.Context(), id, caller, req.Resolution, req.Accepted)
	if err != nil {
		h.respondError(c, "Failed to resolve finding", err)
		return
	}

	c.JSON(http.StatusOK, finding)
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
