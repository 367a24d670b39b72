package transfers

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
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	Approve(ctx context.Context, req ActionRequest) (*ActionResult, error)
	Complete(ctx context.Context, req ActionRequest) (*ActionResult, error)
	Cancel(ctx context.Context, req ActionRequest) (*ActionResult, error)
	GetTransfer(ctx context.Context, id int) (*models.Transfer, error)
	ListForLocation(ctx context.Context, locationID int, status string) ([]models.Transfer, error)
}

type TransferHandler struct {
	service Service
	sink    stocks.Sink
	log     *zap.Logger
}

func NewTransferHandler(s Service, sink stocks.Sink, log *zap.Logger) *TransferHandler {
	return &TransferHandler{service: s, sink: sink, log: log}
}

func (h *TransferHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/transfers", h.CreateTransfer)
	router.GET("/transfers/:id", h.GetTransfer)
	router.PATCH("/transfers/:id/approve", security.Authorize(roles.Pharmacist), h.action("approve", h.service.Approve))
	router.PATCH("/transfers/:id/complete", h.action("complete", h.service.Complete))
	router.PATCH("/transfers/:id/cancel", h.action("cancel", h.service.Cancel))
	router.GET("/locations/:id/transfers", h.GetLocationTransfers)
}

func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.CreatedBy = userID

	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not create transfer", err)
		return
	}

	h.sink.Dispatch(c.Request.Context(), stocks.Alerts(result.Stock...))
	c.JSON(http.StatusCreated, result)
}

func (h *TransferHandler) action(verb string, run func(context.Context, ActionRequest) (*ActionResult, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUser(c)
		if !ok {
			return
		}
		id, ok := middleware.IDParam(c, "id")
		if !ok {
			return
		}

		var req ActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
			return
		}
		req.TransferID, req.UserID = id, userID

		result, err := run(c.Request.Context(), req)
		if err != nil {
			middleware.RespondError(c, h.log, "Could not "+verb+" transfer", err)
			return
		}

		h.sink.Dispatch(c.Request.Context(), stocks.Alerts(result.Stock...))
		c.JSON(http.StatusOK, result)
	}
}

func (h *TransferHandler) GetTransfer(c *gin.Context) {
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	transfer, err := h.service.GetTransfer(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not get transfer", err)
		return
	}

	c.JSON(http.StatusOK, transfer)
}

func (h *TransferHandler) GetLocationTransfers(c *gin.Context) {
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	transfers, err := h.service.ListForLocation(c.Request.Context(), id, c.Query("status"))
	if err != nil {
		middleware.RespondError(c, h.log, "Could not list transfers", err)
		return
	}

	c.JSON(http.StatusOK, transfers)
}
