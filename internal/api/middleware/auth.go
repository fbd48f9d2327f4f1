package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/config"
)

// RequireAPIKey gates admin/write endpoints behind the x-api-key header.
// A missing server-side key is a misconfiguration and never a pass-through.
func RequireAPIKey(cfg config.APIConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Key == "" && cfg.KeyHash == "" {
			logger.Error("API key not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "API key no configurada en el servidor"})
			return
		}

		provided := c.GetHeader("x-api-key")
		if provided == "" || !keyMatches(cfg, provided) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no autorizado"})
			return
		}

		c.Next()
	}
}

func keyMatches(cfg config.APIConfig, provided string) bool {
	// A stored bcrypt hash takes precedence so the plain key never has to
	// live in the environment.
	if cfg.KeyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.KeyHash), []byte(provided)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(cfg.Key), []byte(provided)) == 1
}
