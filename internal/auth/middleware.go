package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ivr-gateway/pkg/logger"
)

// RequireOperator verifies the bearer access token and attaches the Operator
// to the request context. Role checks belong to internal/rbac.
func RequireOperator(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := m.Verify(raw, TokenTypeAccess, m.now())
		if err != nil {
			logger.FromGin(c).Info("operator token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Request = c.Request.WithContext(WithOperator(c.Request.Context(), claims.Operator()))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
