package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/panafact/fepa_backend/factura"
	"github.com/panafact/fepa_backend/utils"
)

// SessionMiddleware resolves the claims left by AuthMiddleware against the
// live session registry. A token whose session no longer exists (server
// restart, logout) is rejected here rather than deep inside a handler.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CtxValue(c.Request.Context())
		if claims == nil {
			c.Next()
			return
		}
		if _, err := factura.Sessions().Get(claims.SessionId); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), claims.SessionId)
		ctx = utils.SetUsernameInContext(ctx, claims.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
