package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/middleware"
	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

func currentUser(c *gin.Context) (models.AuthContext, error) {
	authCtx, ok := middleware.CurrentUser(c)
	if !ok {
		return models.AuthContext{}, appErrors.ErrUnauthorized
	}
	return authCtx, nil
}

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer")
	}
	return id, nil
}
