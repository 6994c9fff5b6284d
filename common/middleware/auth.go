package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/catalog-import/common/auth"
	"go.uber.org/zap"
)

// ClaimsKey is the gin context key holding the validated JWT claims.
const ClaimsKey = "claims"

// AuthMiddleware requires a valid bearer access token that grants access to
// the :storeId path parameter.
func AuthMiddleware(validator *auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		claims, err := validator.ParseAndValidateToken(token, "access")
		if err != nil {
			zap.L().Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		if storeID := c.Param("storeId"); storeID != "" && !auth.CanAccessStore(claims, storeID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "No access to this store"})
			return
		}

		c.Set(ClaimsKey, claims)
		if sub, ok := claims["sub"].(string); ok {
			c.Set("user_id", sub)
		}
		c.Next()
	}
}
