package helper

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/parajuriste-api/internal/middleware"
	"github.com/yourusername/parajuriste-api/internal/service"
)

// UserID достает ID пользователя, выставленный RequireAuth
func UserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// RequestMeta собирает данные запроса для журнала активности
func RequestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		SessionID: c.GetHeader("X-Session-ID"),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
