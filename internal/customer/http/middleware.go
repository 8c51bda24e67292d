package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/allisson/orderflow/internal/credentials"
	apperrors "github.com/allisson/orderflow/internal/errors"
	"github.com/allisson/orderflow/internal/httputil"
)

// InternalAPIKeyHeader carries the shared key the order service presents.
const InternalAPIKeyHeader = "X-Internal-Api-Key"

// APIKeyMiddleware rejects requests whose X-Internal-Api-Key header the verifier does not
// accept with 401 Unauthorized. A nil verifier rejects every request.
func APIKeyMiddleware(verifier credentials.KeyVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			logger.Error("internal api key is not configured")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		provided := c.GetHeader(InternalAPIKeyHeader)
		if provided == "" {
			logger.Debug("authentication failed: missing internal api key")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !verifier.Verify(provided) {
			logger.Debug("authentication failed: internal api key mismatch")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
