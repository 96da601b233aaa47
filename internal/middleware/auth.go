package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"iap-gateway/internal/response"
	"iap-gateway/pkg/logging"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader carries the backend API key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuthMiddleware protects backend routes with a shared API key.
// An empty key disables the check.
func APIKeyAuthMiddleware(apiKey string) gin.HandlerFunc {
	if apiKey == "" {
		logging.Warnf("API_KEY is not set, backend routes are unauthenticated")
	}
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		// If not passed via header, try to get from query parameters
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			key = c.Query("api_key")
		}

		if key == "" {
			response.ErrorJSON(c, http.StatusUnauthorized, "missing_api_key", "Missing api_key")
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			response.ErrorJSON(c, http.StatusUnauthorized, "invalid_api_key", "Invalid api_key")
			c.Abort()
			return
		}

		c.Set("request_time", time.Now())
		c.Next()
	}
}
