package rate_limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLimitPerClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limit, err := New("2-M", zap.NewNop())
	require.NoError(t, err)

	router := gin.New()
	router.Use(limit)
	router.GET("/vials", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/vials", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/vials", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRejectsMalformedRate(t *testing.T) {
	_, err := New("lots", zap.NewNop())
	assert.Error(t, err)
}
