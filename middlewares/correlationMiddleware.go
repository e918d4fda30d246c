package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/panafact/fepa_backend/utils"
)

// CorrelationMiddleware tags every request with an id for log correlation,
// honoring one supplied by the caller.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.Request.Header.Get("x-correlation-id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), correlationId))
		c.Writer.Header().Set("x-correlation-id", correlationId)
		c.Next()
	}
}
