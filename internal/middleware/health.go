package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthStatus struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	LastChecked time.Time `json:"last_checked"`
	Uptime      string    `json:"uptime"`
	Version     string    `json:"version"`
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health answers /health, caching the result for a few seconds so probes do
// not queue behind the single store connection.
type Health struct {
	db        Pinger
	version   string
	startedAt time.Time
	cacheFor  time.Duration

	mu        sync.Mutex
	last      HealthStatus
	lastCheck time.Time
}

func NewHealth(db Pinger, version string) *Health {
	return &Health{db: db, version: version, startedAt: time.Now(), cacheFor: 5 * time.Second}
}

func (h *Health) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := h.check(c.Request.Context())

		code := http.StatusOK
		if status.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}

func (h *Health) check(ctx context.Context) HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.lastCheck.IsZero() && time.Since(h.lastCheck) < h.cacheFor {
		return h.last
	}

	status := HealthStatus{
		Status:      "ok",
		Database:    "ok",
		LastChecked: time.Now(),
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
		Version:     h.version,
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(pingCtx); err != nil {
		status.Status = "degraded"
		status.Database = err.Error()
	}

	h.last, h.lastCheck = status, status.LastChecked
	return status
}
