package vials

import (
	"context"
	"net/http"

	"github.com/Archer-177/HighCostAtWork/internal/inventory/stocks"
	"github.com/Archer-177/HighCostAtWork/internal/middleware"
	"github.com/Archer-177/HighCostAtWork/pkg/models"
	"github.com/Archer-177/HighCostAtWork/pkg/roles"
	"github.com/Archer-177/HighCostAtWork/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Service interface {
	Receive(ctx context.Context, req ReceiveRequest) (*ReceiveResult, error)
	Use(ctx context.Context, req UseRequest) (*TransitionResult, error)
	Discard(ctx context.Context, req DiscardRequest) (*TransitionResult, error)
	GetVial(ctx context.Context, id int) (*models.VialView, error)
	FindByAssetID(ctx context.Context, assetID string) (*models.VialView, error)
	Search(ctx context.Context, filter VialFilter) ([]models.VialView, error)
	Journey(ctx context.Context, assetID string) (*models.VialJourney, error)
}

type VialHandler struct {
	service Service
	sink    stocks.Sink
	log     *zap.Logger
}

func NewVialHandler(s Service, sink stocks.Sink, log *zap.Logger) *VialHandler {
	return &VialHandler{service: s, sink: sink, log: log}
}

func (h *VialHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/stock/receive", security.Authorize(roles.PharmacyTech), h.ReceiveStock)
	router.POST("/vials/:id/use", h.UseVial)
	router.POST("/vials/:id/discard", h.DiscardVial)
	router.GET("/vials", h.SearchVials)
	router.GET("/vials/:id", h.GetVial)
	router.GET("/vials/asset/:asset_id", h.GetVialByAssetID)
	router.GET("/vials/asset/:asset_id/journey", h.GetVialJourney)
}

func (h *VialHandler) ReceiveStock(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}

	var req ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.UserID = userID

	result, err := h.service.Receive(c.Request.Context(), req)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not receive stock", err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *VialHandler) UseVial(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	var req UseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.VialID, req.UserID = id, userID

	result, err := h.service.Use(c.Request.Context(), req)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not record vial use", err)
		return
	}

	h.sink.Dispatch(c.Request.Context(), stocks.Alerts(result.Stock))
	c.JSON(http.StatusOK, result)
}

func (h *VialHandler) DiscardVial(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	var req DiscardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.VialID, req.UserID = id, userID

	result, err := h.service.Discard(c.Request.Context(), req)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not discard vial", err)
		return
	}

	h.sink.Dispatch(c.Request.Context(), stocks.Alerts(result.Stock))
	c.JSON(http.StatusOK, result)
}

func (h *VialHandler) SearchVials(c *gin.Context) {
	var filter VialFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}

	vials, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not search vials", err)
		return
	}

	c.JSON(http.StatusOK, vials)
}

func (h *VialHandler) GetVial(c *gin.Context) {
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	vial, err := h.service.GetVial(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not get vial", err)
		return
	}

	c.JSON(http.StatusOK, vial)
}

func (h *VialHandler) GetVialByAssetID(c *gin.Context) {
	vial, err := h.service.FindByAssetID(c.Request.Context(), c.Param("asset_id"))
	if err != nil {
		middleware.RespondError(c, h.log, "Could not get vial", err)
		return
	}

	c.JSON(http.StatusOK, vial)
}

func (h *VialHandler) GetVialJourney(c *gin.Context) {
	journey, err := h.service.Journey(c.Request.Context(), c.Param("asset_id"))
	if err != nil {
		middleware.RespondError(c, h.log, "Could not get vial journey", err)
		return
	}

	c.JSON(http.StatusOK, journey)
}
