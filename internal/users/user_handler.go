package users

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
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUsers(ctx context.Context, locationID int) ([]models.User, error)
	UpdateUser(ctx context.Context, id int, req UpdateUserRequest) (*models.User, error)
	DeactivateUser(ctx context.Context, id int, req DeactivateUserRequest) (*models.User, error)
}

type UsersHandler struct {
	service Service
	log     *zap.Logger
}

func NewHandler(s Service, log *zap.Logger) *UsersHandler {
	return &UsersHandler{
		service: s,
		log:     log,
	}
}

func (h *UsersHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/users", security.Authorize(roles.Pharmacist), h.RegisterUser)
	router.GET("/users/:id", h.GetUser)
	router.GET("/users", security.Authorize(roles.PharmacyTech), h.GetUserList)
	router.PUT("/users/:id", security.Authorize(roles.Pharmacist), h.UpdateUser)
	router.PATCH("/users/:id/deactivate", security.Authorize(roles.Pharmacist), h.DeactivateUser)
}

func (h *UsersHandler) RegisterUser(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.UserID = userID

	user, err := h.service.CreateUser(c.Request.Context(), req)
	if err != nil {
		middleware.RespondError(c, h.log, "Failed to create user", err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UsersHandler) GetUser(c *gin.Context) {
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	if !h.isAllowed(c, id, roles.PharmacyTech) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden", "details": "You are not allowed to access this resource"})
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, h.log, "Unable to find user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) GetUserList(c *gin.Context) {
	var locationID int
	if raw := c.Query("location_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location_id", "details": err.Error()})
			return
		}
		locationID = id
	}

	users, err := h.service.GetUsers(c.Request.Context(), locationID)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not obtain list of users", err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *UsersHandler) UpdateUser(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.UserID = userID

	user, err := h.service.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		middleware.RespondError(c, h.log, "Failed to update user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) DeactivateUser(c *gin.Context) {
	userID, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := middleware.IDParam(c, "id")
	if !ok {
		return
	}

	var req DeactivateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	req.UserID = userID

	user, err := h.service.DeactivateUser(c.Request.Context(), id, req)
	if err != nil {
		middleware.RespondError(c, h.log, "Failed to deactivate user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// isAllowed lets users read their own record and role holders read anyone's.
func (h *UsersHandler) isAllowed(c *gin.Context, userID int, required roles.Role) bool {
	authID, err := security.CurrentUserID(c)
	if err != nil || authID == 0 {
		return false
	}
	if authID == userID {
		return true
	}

	role, _ := c.Get("role")
	roleName, _ := role.(string)
	return roles.Role(roleName).HasPermission(required)
}
