package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/marketlens-lab/marketlens/internal/core/errors"
)

// APIKeyAuth validates the X-API-Key header against the configured key.
// With no key configured, all requests pass: local development runs open,
// the deployment injects the key in front of production traffic.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httperr.ErrorResponse{
				ErrorType: httperr.HttpUnauthorizedError,
				Message:   "Invalid or missing API key",
			})
			return
		}
		c.Next()
	}
}
