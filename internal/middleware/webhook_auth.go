// Package middleware provides gin middleware for the webhook server.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

// secretTokenHeader is the header Telegram echoes back on every webhook
// delivery when the webhook was registered with a secret token.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookAuth rejects webhook requests that don't carry the secret token
// the webhook was registered with.
func WebhookAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			logger.Warn().Str("remote", c.ClientIP()).Msg("Webhook request with bad secret token")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
