package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	AdminLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Me(ctx context.Context, authCtx models.AuthContext) (*models.UserInfo, error)
}

type loginObserver interface {
	ObserveLogin(entry, outcome string)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	metrics loginObserver
}

// NewAuthHandler creates a new handler. metrics may be nil.
func NewAuthHandler(svc authService, metrics loginObserver) *AuthHandler {
	return &AuthHandler{service: svc, metrics: metrics}
}

// Login godoc
// @Summary Authenticate user
// @Description Exchange email and password for a bearer token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} errors.Error
// @Failure 401 {object} errors.Error
// @Failure 429 {object} errors.Error
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, "user", h.service.Login)
}

// AdminLogin godoc
// @Summary Authenticate administrator
// @Description Same as login but requires the admin role and opens an admin session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.LoginResponse
// @Failure 401 {object} errors.Error
// @Failure 403 {object} errors.Error
// @Router /admin/auth/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, "admin", h.service.AdminLogin)
}

func (h *AuthHandler) login(c *gin.Context, entry string, fn func(context.Context, models.LoginRequest) (*models.LoginResponse, error)) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()

	res, err := fn(c.Request.Context(), req)
	h.observe(entry, err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Me godoc
// @Summary Current user
// @Description Returns the stored profile of the authenticated user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]models.UserInfo
// @Failure 401 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	authCtx, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	info, err := h.service.Me(c.Request.Context(), authCtx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"user": info})
}

func (h *AuthHandler) observe(entry string, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = appErrors.FromError(err).Code
	}
	h.metrics.ObserveLogin(entry, outcome)
}
