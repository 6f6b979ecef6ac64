package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

type authorizer interface {
	Authorize(ctx context.Context, authCtx *models.AuthContext, expected ...string) (models.AuthContext, error)
}

// RequireRoles admits principals holding any of roles. The resolved principal
// replaces the token's one for downstream handlers.
func RequireRoles(guard authorizer, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var current *models.AuthContext
		if authCtx, ok := CurrentUser(c); ok {
			current = &authCtx
		}

		resolved, err := guard.Authorize(c.Request.Context(), current, roles...)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, resolved)
		c.Next()
	}
}
