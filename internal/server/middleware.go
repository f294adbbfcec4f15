package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/petasbytes/shop-agent/internal/logger"
)

// BearerAuth rejects requests without the expected bearer token. An empty
// token disables the check; /healthz is always open.
func BearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" || c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortError(c, http.StatusUnauthorized, "authentication_error", "missing Authorization header")
			return
		}
		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			abortError(c, http.StatusUnauthorized, "authentication_error", "invalid Authorization header format, expected 'Bearer <token>'")
			return
		}
		if subtle.ConstantTimeCompare([]byte(authHeader[len(prefix):]), []byte(token)) != 1 {
			abortError(c, http.StatusUnauthorized, "authentication_error", "invalid bearer token")
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request through the shared logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(map[string]any{
			"module":      "server",
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request")
	}
}
