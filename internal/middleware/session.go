package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/untapped/internal/service"
	"github.com/noah-isme/untapped/pkg/response"
)

type sessionChecker interface {
	Require() (service.Gateway, error)
}

// RequireSession rejects calls made before login with 401.
func RequireSession(sessions sessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := sessions.Require(); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
