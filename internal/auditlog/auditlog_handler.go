package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Archer-177/HighCostAtWork/internal/middleware"
	"github.com/Archer-177/HighCostAtWork/pkg/models"
	"github.com/Archer-177/HighCostAtWork/pkg/roles"
	"github.com/Archer-177/HighCostAtWork/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

type Reader interface {
	ListSince(ctx context.Context, since time.Time, limit int) ([]models.AuditLog, error)
}

type AuditLogHandler struct {
	reader Reader
	log    *zap.Logger
}

func NewAuditLogHandler(reader Reader, log *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{reader: reader, log: log}
}

func (h *AuditLogHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit", security.Authorize(roles.Pharmacist), h.GetRecent)
}

// GetRecent lists entries written since ?since (RFC 3339, default the last
// 24 hours), newest first.
func (h *AuditLogHandler) GetRecent(c *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid since parameter"})
			return
		}
		since = parsed
	}

	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxAuditLimit {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	entries, err := h.reader.ListSince(c.Request.Context(), since.UTC(), limit)
	if err != nil {
		middleware.RespondError(c, h.log, "Could not list audit entries", err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
