package locations

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
	GetLocations(ctx context.Context, includeInactive bool) ([]models.Location, error)
	GetLocation(ctx context.Context, id int) (*models.Location, error)
	CreateLocation(ctx context.Context, req CreateLocationRequest) (*models.Location, error)
	UpdateLocation(ctx context.Context, id int, req UpdateLocationRequest) (*models.Location, error)
	DeactivateLocation(ctx context.Context, id int, req DeactivateLocationRequest) (*models.Location, error)
}

type LocationHandler struct {
	service Service
	log     *zap.Logger
}

func NewLocationHandler(s Service, log *zap.Logger) *LocationHandler {
	return &LocationHandler{service: s, log: log}
}

func (h *LocationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/locations", h.GetLocations)
	router.GET("/locations/:id", h.GetLocation)
	router.POST("/locations", security.Authorize(roles.Pharmacist), h.CreateLocation)
	router.PUT("/locations/:id", security.Authorize(roles.Pharmacist), h.UpdateLocation)
	router.PATCH("/locations/:id/deactivate", security.Authorize(roles.Pharmacist), h.DeactivateLocation)
}

func (h *LocationHandler) GetLocations(c *gin.Context) {
	locations, err := h.service.GetLocations(c.Request.Context(), c.Query("include_inactive") == "true")
	if err != nil {
		middleware.RespondError(c, h.log, "Could not list locations", err)
		return
	}

	c.JSON(http.StatusOK, locations)
}

func (h *LocationHandler) GetLocation(c *gin.Context) {
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	location, err := h.service.GetLocation(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not get location", err)
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) CreateLocation(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}

	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.UserID = userID

	location, err := h.service.CreateLocation(c.Request.Context(), req)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not create location", err)
		return
	}

	c.JSON(http.StatusCreated, location)
}

func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.UserID = userID

	location, err := h.service.UpdateLocation(c.Request.Context(), id, req)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not update location", err)
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) DeactivateLocation(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	var req DeactivateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.UserID = userID

	location, err := h.service.DeactivateLocation(c.Request.Context(), id, req)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not deactivate location", err)
		return
	}

	c.JSON(http.StatusOK, location)
}
