package rate_limiter

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// DefaultRate is used when no RATE_LIMIT is configured.
const DefaultRate = "300-M"

// New limits requests per client IP. rate uses the limiter's formatted
// notation, e.g. "10-S" or "1000-H".
func New(rate string, log *zap.Logger) (gin.HandlerFunc, error) {
	if rate == "" {
		rate = DefaultRate
	}

	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	instance := limiter.New(memory.NewStore(), parsed)

	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			log.Warn("Rate limit reached", zap.String("ip", c.ClientIP()), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.Error("Rate limiter failure", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		}),
	), nil
}
