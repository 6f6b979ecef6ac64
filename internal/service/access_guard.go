package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

// Role resolution modes.
const (
	ResolveFromStore = "store"
	ResolveFromToken = "token"
)

type principalResolver interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// AccessGuard decides whether a principal may use a route. With a resolver it
// re-reads the principal's roles on every call; without one it trusts the
// token claims.
type AccessGuard struct {
	resolver principalResolver
	logger   *zap.Logger
}

// NewAccessGuard builds a guard. A nil resolver selects token-only mode.
func NewAccessGuard(resolver principalResolver, logger *zap.Logger) *AccessGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessGuard{resolver: resolver, logger: logger}
}

// Mode reports which role source the guard trusts.
func (g *AccessGuard) Mode() string {
	if g.resolver == nil {
		return ResolveFromToken
	}
	return ResolveFromStore
}

// Authorize resolves the effective principal and checks it holds one of
// expected. The returned context is a new value; authCtx is left untouched.
func (g *AccessGuard) Authorize(ctx context.Context, authCtx *models.AuthContext, expected ...string) (models.AuthContext, error) {
	if authCtx == nil {
		return models.AuthContext{}, appErrors.ErrUnauthorized
	}

	var (
		resolved models.AuthContext
		err      error
	)
	if g.resolver == nil {
		resolved = resolveFromToken(*authCtx)
	} else {
		resolved, err = g.resolveFromStore(ctx, *authCtx)
		if err != nil {
			return models.AuthContext{}, err
		}
	}

	if !models.HasAnyRole(resolved.EffectiveRoles(), expected) {
		g.logger.Debug("access denied",
			zap.Int64("user_id", resolved.UserID),
			zap.Strings("roles", resolved.EffectiveRoles()),
			zap.Strings("expected", expected),
		)
		return models.AuthContext{}, appErrors.ErrForbidden
	}
	return resolved, nil
}

func (g *AccessGuard) resolveFromStore(ctx context.Context, authCtx models.AuthContext) (models.AuthContext, error) {
	user, err := g.resolver.FindByID(ctx, authCtx.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AuthContext{}, appErrors.Clone(appErrors.ErrUnauthorized, "principal no longer exists")
		}
		return models.AuthContext{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve principal")
	}
	return authCtx.WithRoles(user.RoleSet()), nil
}

// resolveFromToken is the degraded path: the token claims are the only source.
func resolveFromToken(authCtx models.AuthContext) models.AuthContext {
	return models.AuthContext{
		UserID:     authCtx.UserID,
		Email:      authCtx.Email,
		Roles:      authCtx.EffectiveRoles(),
		ActiveRole: authCtx.ActiveRole,
	}
}
