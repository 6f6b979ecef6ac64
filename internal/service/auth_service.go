package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error
}

// activityRecorder stores log entries without affecting the caller.
type activityRecorder interface {
	Record(ctx context.Context, entry models.LogEntry)
}

// AuthConfig defines configuration for token issuance.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// AuthService provides the login exchange and token handling.
type AuthService struct {
	repo      authUserRepository
	verifier  *CredentialVerifier
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, verifier *CredentialVerifier, activity activityRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if verifier == nil {
		verifier = NewCredentialVerifier(CredentialPolicy{})
	}
	if config.Expiry <= 0 {
		config.Expiry = 8 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		verifier:  verifier,
		activity:  activity,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Login authenticates any user and issues a token under their primary role.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return s.login(ctx, req, "", models.LogActionLogin)
}

// AdminLogin authenticates a user who must hold the admin role; the session
// runs as admin even when it is not the primary role.
func (s *AuthService) AdminLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return s.login(ctx, req, models.RoleAdmin, models.LogActionAdminLogin)
}

func (s *AuthService) login(ctx context.Context, req models.LoginRequest, requiredRole, action string) (*models.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if !s.verifier.Verify(user, req.Password) {
		return nil, appErrors.ErrInvalidCredentials
	}

	roles := user.RoleSet()
	if requiredRole != "" && !models.HasAnyRole(roles, requiredRole) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	authCtx, err := models.NewAuthContext(user.ID, user.Email, roles, requiredRole)
	if err != nil {
		return nil, appErrors.Internal(err)
	}

	token, err := s.IssueToken(authCtx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}
	if s.activity != nil {
		s.activity.Record(ctx, models.LogEntry{Usuario: user.Email, Action: action, CreatedAt: now})
	}

	info := user.Info()
	info.Role = authCtx.ActiveRole
	return &models.LoginResponse{Token: token, User: info}, nil
}

// IssueToken signs a token for authCtx.
func (s *AuthService) IssueToken(authCtx models.AuthContext) (string, error) {
	if len(authCtx.Roles) > 0 && !authCtx.Roles.Contains(authCtx.ActiveRole) {
		return "", models.ErrActiveRoleNotHeld
	}
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		UserID: authCtx.UserID,
		Email:  authCtx.Email,
		Role:   authCtx.ActiveRole,
		Roles:  authCtx.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(authCtx.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Authenticate turns a bearer token into the principal it carries.
func (s *AuthService) Authenticate(tokenString string) (models.AuthContext, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return models.AuthContext{}, err
	}
	authCtx, err := models.AuthContextFromClaims(claims)
	if err != nil {
		return models.AuthContext{}, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token claims")
	}
	return authCtx, nil
}

// Me returns the stored profile of the authenticated principal.
func (s *AuthService) Me(ctx context.Context, authCtx models.AuthContext) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, authCtx.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	info := user.Info()
	return &info, nil
}
