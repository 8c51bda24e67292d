package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRateLimitedRouter(rps float64, burst int) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.POST("/v1/orders", RateLimitMiddleware(rps, burst, logger), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"status": "ok"})
	})
	return router
}

func postOrder(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/orders", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	router := newRateLimitedRouter(10.0, 20)

	for i := 0; i < 5; i++ {
		w := postOrder(router, "10.0.0.1:1234")
		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestRateLimitMiddleware_BlocksRequestsExceedingBurst(t *testing.T) {
	router := newRateLimitedRouter(0.5, 2)

	for i := 0; i < 2; i++ {
		w := postOrder(router, "10.0.0.1:1234")
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	w := postOrder(router, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimitMiddleware_IndependentPerIP(t *testing.T) {
	router := newRateLimitedRouter(0.5, 1)

	assert.Equal(t, http.StatusCreated, postOrder(router, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, postOrder(router, "10.0.0.1:1234").Code)

	assert.Equal(t, http.StatusCreated, postOrder(router, "10.0.0.2:1234").Code)
}

func TestRateLimiterStore_EvictIdle(t *testing.T) {
	store := &rateLimiterStore{rps: 1, burst: 1}
	store.getLimiter("10.0.0.1")
	store.getLimiter("10.0.0.2")

	store.evictIdle(time.Now().Add(time.Minute))

	count := 0
	store.limiters.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Equal(t, 0, count)
}
