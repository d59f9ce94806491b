package delivery

import (
	"net/http"
	"strings"

	"inbox-agent/internal/auth/usecase"
	"inbox-agent/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthMiddleware guards admin routes with a bearer admin token.
func AuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		admin, err := authUsecase.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("admin", admin)
		c.Next()
	}
}

// PushAuthMiddleware authenticates push notification senders before the body is read.
func PushAuthMiddleware(verifier usecase.PushVerifier, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := bearerToken(c.GetHeader("Authorization"))
		if err := verifier.Verify(c.Request.Context(), token); err != nil {
			metrics.NotificationsTotal.WithLabelValues("unauthorized").Inc()
			logger.Warn().Err(err).Str("remote_addr", c.ClientIP()).Msg("push notification rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
