package middleware

import (
	"errors"
	"net/http"
	"strconv"

	custom_error "github.com/Archer-177/HighCostAtWork/pkg/errors"
	"github.com/Archer-177/HighCostAtWork/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError writes err with the status its kind maps to. Domain errors are
// echoed back under "reason" so clients can refetch on a version conflict.
func RespondError(c *gin.Context, log *zap.Logger, message string, err error) {
	status := custom_error.StatusCode(err)
	body := gin.H{"error": message, "details": err.Error()}

	var domainErr *custom_error.DomainError
	if errors.As(err, &domainErr) {
		body["code"] = domainErr.Code()
		body["reason"] = domainErr
	}

	if status == http.StatusInternalServerError {
		log.Error(message, zap.Error(err), zap.String("path", c.FullPath()))
	}

	c.AbortWithStatusJSON(status, body)
}

// IDParam parses a positive integer path parameter, answering 400 when it is not one.
func IDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return id, true
}

// CurrentUser reads the authenticated user id, answering 401 when it is missing.
func CurrentUser(c *gin.Context) (int, bool) {
	userID, err := security.CurrentUserID(c)
	if err != nil || userID <= 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}
