package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"groupbuy-coordinator/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ctxUserRefKey = "user_ref"

// AuthMiddleware validates bearer tokens issued by the external identity
// service and exposes the caller's userRef to handlers. Identity issuance
// itself lives outside this core.
type AuthMiddleware struct {
	tokens *jwt.Service
}

func NewAuthMiddleware(tokens *jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
			})
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			slog.Warn("Token validation failed in auth middleware", "error", err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ctxUserRefKey, claims.UserRef)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		// SSE clients cannot set headers from EventSource; accept a token
		// query parameter on subscribe as a fallback.
		return c.Query("access_token")
	}
	return strings.TrimSpace(authHeader[len("Bearer "):])
}

func GetUserRef(c *gin.Context) (uuid.UUID, bool) {
	userRef, exists := c.Get(ctxUserRefKey)
	if !exists {
		return uuid.Nil, false
	}

	ref, ok := userRef.(uuid.UUID)
	return ref, ok
}
