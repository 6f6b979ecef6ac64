package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

// ContextUserKey is the gin context key storing the request's models.AuthContext.
const ContextUserKey = "currentUser"

type tokenAuthenticator interface {
	Authenticate(token string) (models.AuthContext, error)
}

// JWT protects routes by requiring a valid bearer token.
func JWT(auth tokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed bearer token"))
			c.Abort()
			return
		}

		authCtx, err := auth.Authenticate(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, authCtx)
		c.Next()
	}
}

// CurrentUser returns the principal attached by JWT or RequireRoles.
func CurrentUser(c *gin.Context) (models.AuthContext, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return models.AuthContext{}, false
	}
	authCtx, ok := value.(models.AuthContext)
	return authCtx, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
