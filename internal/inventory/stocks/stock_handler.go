package stocks

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Archer-177/HighCostAtWork/internal/middleware"
	"github.com/Archer-177/HighCostAtWork/pkg/models"
	"github.com/Archer-177/HighCostAtWork/pkg/roles"
	"github.com/Archer-177/HighCostAtWork/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Service interface {
	ListThresholds(ctx context.Context, locationID int) ([]models.StockThreshold, error)
	StockLevels(ctx context.Context, locationID int) ([]models.StockLevel, error)
	SetThreshold(ctx context.Context, req SetThresholdRequest) (*SetThresholdResult, error)
}

type StockHandler struct {
	service Service
	sink    Sink
	log     *zap.Logger
}

func NewStockHandler(s Service, sink Sink, log *zap.Logger) *StockHandler {
	return &StockHandler{service: s, sink: sink, log: log}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stock/thresholds", h.GetThresholds)
	router.PUT("/stock/thresholds", security.Authorize(roles.Pharmacist), h.SetThreshold)
	router.GET("/locations/:id/stock", h.GetStockLevels)
}

func (h *StockHandler) GetThresholds(c *gin.Context) {
	var locationID int
	if raw := c.Query("location_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid location_id", "details": err.Error()})
			return
		}
		locationID = id
	}

	thresholds, err := h.service.ListThresholds(c.Request.Context(), locationID)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not list stock thresholds", err)
		return
	}

	c.JSON(http.StatusOK, thresholds)
}

func (h *StockHandler) SetThreshold(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}

	var req SetThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.UserID = userID

	result, err := h.service.SetThreshold(c.Request.Context(), req)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not set stock threshold", err)
		return
	}

	h.sink.Dispatch(c.Request.Context(), Alerts(result.Stock))
	c.JSON(http.StatusOK, result)
}

func (h *StockHandler) GetStockLevels(c *gin.Context) {
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	levels, err := h.service.StockLevels(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not get stock levels", err)
		return
	}

	c.JSON(http.StatusOK, levels)
}
