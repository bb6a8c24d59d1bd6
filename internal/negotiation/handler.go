package negotiation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/deals"
	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
)

// Handler handles HTTP requests for LOI and SPA negotiation
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new negotiation handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers negotiation routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	lois := router.Group("/lois")
	{
		lois.POST("", h.createLOI)
		lois.GET("/:id", h.getLOI)
		lois.PUT("/:id", h.updateLOI)
		lois.POST("/:id/withdraw", h.withdrawLOI)
		lois.POST("/:id/generate-spa", h.generateSPA)
	}

	spas := router.Group("/spas")
	{
		spas.GET("/:id", h.getSPA)
		spas.PUT("/:id", h.updateSPA)
		spas.POST("/:id/sign", h.signSPA)
	}

	router.GET("/documents/:id/revisions", h.listRevisions)
}

// createLOI handles POST /api/v1/lois
func (h *Handler) createLOI(c *gin.Context) {
	caller, ok := party.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller not resolved"})
		return
	}

	var req CreateLOIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loi, err := h.service.CreateLOI(c.Request.Context(), caller, &req)
	if err != nil {
		h.respondError(c, "Failed to create LOI", err)
		return
	}

	c.JSON(http.StatusCreated, loi)
}

// getLOI handles GET /api/v1/lois/:id
func (h *Handler) getLOI(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	loi, err := h.service.GetLOI(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to get LOI", err)
		return
	}

	c.JSON(http.StatusOK, loi)
}

type updateLOIRequest struct {
	Version int      `json:"version" binding:"required"`
	Terms   LOITerms `json:"terms"`
}

// updateLOI handles PUT /api/v1/lois/:id
func (h *Handler) updateLOI(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req updateLOIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loi, revision, err := h.service.UpdateLOI(c.Request.Context(), id, caller, req.Version, &req.Terms)
	if err != nil {
		h.respondError(c, "Failed to update LOI", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"loi": loi, "revision": revision})
}

type withdrawLOIRequest struct {
	Version int `json:"version" binding:"required"`
}

// withdrawLOI handles POST /api/v1/lois/:id/withdraw
func (h *Handler) withdrawLOI(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req withdrawLOIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loi, err := h.service.WithdrawLOI(c.Request.Context(), id, caller, req.Version)
	if err != nil {
		h.respondError(c, "Failed to withdraw LOI", err)
		return
	}

	c.JSON(http.StatusOK, loi)
}

// generateSPA handles POST /api/v1/lois/:id/generate-spa
func (h *Handler) generateSPA(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	spa, err := h.service.GenerateSPAFromLOI(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to generate SPA", err)
		return
	}

	c.JSON(http.StatusCreated, spa)
}

// getSPA handles GET /api/v1/spas/:id
func (h *Handler) getSPA(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	spa, err := h.service.GetSPA(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to get SPA", err)
		return
	}

	c.JSON(http.StatusOK, spa)
}

type updateSPARequest struct {
	Version int      `json:"version" binding:"required"`
	Terms   SPATerms `json:"terms"`
}

// updateSPA handles PUT /api/v1/spas/:id
func (h *Handler) updateSPA(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	var req updateSPARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spa, revision, err := h.service.UpdateSPA(c.Request.Context(), id, caller, req.Version, &req.Terms)
	if err != nil {
		h.respondError(c, "Failed to update SPA", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"spa": spa, "revision": revision})
}

// signSPA handles POST /api/v1/spas/:id/sign
func (h *Handler) signSPA(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	spa, err := h.service.GetSPA(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to sign SPA", err)
		return
	}

	role := SignerBuyer
	dealRole := deals.DealRoleBuyer
	if caller.UserID == spa.SellerID {
		role = SignerSeller
		dealRole = deals.DealRoleSeller
	}

	actor := deals.Actor{ID: &caller.UserID, Name: caller.Name, Role: dealRole}
	signed, err := h.service.FinalizeSPA(c.Request.Context(), id, role, actor)
	if err != nil {
		h.respondError(c, "Failed to sign SPA", err)
		return
	}

	c.JSON(http.StatusOK, signed)
}

// listRevisions handles GET /api/v1/documents/:id/revisions
func (h *Handler) listRevisions(c *gin.Context) {
	caller, id, ok := h.callerAndID(c)
	if !ok {
		return
	}

	revisions, count, err := h.service.ListRevisions(c.Request.Context(), id, caller)
	if err != nil {
		h.respondError(c, "Failed to list revisions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"revisions": revisions, "count": count})
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
