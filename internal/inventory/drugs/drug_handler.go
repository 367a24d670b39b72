package drugs

import (
	"context"
	"net/http"

	"github.com/Archer-177/HighCostAtWork/internal/middleware"
	"github.com/Archer-177/HighCostAtWork/pkg/models"
	"github.com/Archer-177/HighCostAtWork/pkg/roles"
	"github.com/Archer-177/HighCostAtWork/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Service interface {
	GetDrugs(ctx context.Context, includeInactive bool) ([]models.Drug, error)
	GetDrug(ctx context.Context, id int) (*models.Drug, error)
	CreateDrug(ctx context.Context, req CreateDrugRequest) (*models.Drug, error)
	UpdateDrug(ctx context.Context, id int, req UpdateDrugRequest) (*models.Drug, error)
}

type DrugHandler struct {
	service Service
	log     *zap.Logger
}

func NewDrugHandler(s Service, log *zap.Logger) *DrugHandler {
	return &DrugHandler{service: s, log: log}
}

func (h *DrugHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/drugs", h.GetDrugs)
	router.GET("/drugs/:id", h.GetDrug)
	router.POST("/drugs", security.Authorize(roles.Pharmacist), h.CreateDrug)
	router.PUT("/drugs/:id", security.Authorize(roles.Pharmacist), h.UpdateDrug)
}

func (h *DrugHandler) GetDrugs(c *gin.Context) {
	drugs, err := h.service.GetDrugs(c.Request.Context(), c.Query("include_inactive") == "true")
	if err != nil {
		middleware.RespondError(c, h.log, "Could not list drugs", err)
		return
	}

	c.JSON(http.StatusOK, drugs)
}

func (h *DrugHandler) GetDrug(c *gin.Context) {
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	drug, err := h.service.GetDrug(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not get drug", err)
		return
	}

	c.JSON(http.StatusOK, drug)
}

func (h *DrugHandler) CreateDrug(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}

	var req CreateDrugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.UserID = userID

	drug, err := h.service.CreateDrug(c.Request.Context(), req)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not create drug", err)
		return
	}

	c.JSON(http.StatusCreated, drug)
}

func (h *DrugHandler) UpdateDrug(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateDrugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.UserID = userID

	drug, err := h.service.UpdateDrug(c.Request.Context(), id, req)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not update drug", err)
		return
	}

	c.JSON(http.StatusOK, drug)
}
