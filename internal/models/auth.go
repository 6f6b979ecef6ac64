package models

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrActiveRoleNotHeld is returned when a session asks for a role the principal does not own.
var ErrActiveRoleNotHeld = errors.New("active role not held by principal")

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	IP       string `json:"-"`
}

// LoginResponse returns the issued token and the serialized user.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo describes a principal in responses. Credentials never appear here.
type UserInfo struct {
	ID        int64   `json:"id"`
	Nombre    string  `json:"nombre"`
	Rut       string  `json:"rut,omitempty"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	Roles     RoleSet `json:"roles"`
	LastLogin *string `json:"last_login"`
	CreatedAt *string `json:"created_at"`
}

// JWTClaims is the signed token payload.
type JWTClaims struct {
	UserID int64   `json:"id"`
	Email  string  `json:"email"`
	Role   string  `json:"role"`
	Roles  RoleSet `json:"roles"`
	jwt.RegisteredClaims
}

// AuthContext is the authenticated principal for one request. Values are never
// modified after construction; role re-resolution builds a new one.
type AuthContext struct {
	UserID     int64
	Email      string
	Roles      RoleSet
	ActiveRole string
}

// NewAuthContext normalizes roles and picks the active role. An empty active
// role defaults to the primary role.
func NewAuthContext(userID int64, email string, roles interface{}, activeRole string) (AuthContext, error) {
	set := NormalizeRoles(roles)
	active := PrimaryRole(activeRole, "")
	if active == "" {
		active = PrimaryRole(set, "")
	}
	if len(set) > 0 && !set.Contains(active) {
		return AuthContext{}, ErrActiveRoleNotHeld
	}
	return AuthContext{UserID: userID, Email: email, Roles: set, ActiveRole: active}, nil
}

// AuthContextFromClaims builds the principal carried by a verified token.
func AuthContextFromClaims(claims *JWTClaims) (AuthContext, error) {
	if claims == nil {
		return AuthContext{}, errors.New("missing claims")
	}
	return NewAuthContext(claims.UserID, claims.Email, claims.Roles, claims.Role)
}

// EffectiveRoles returns the role set, or just the active role when the set is empty.
func (a AuthContext) EffectiveRoles() RoleSet {
	if len(a.Roles) > 0 {
		return append(RoleSet(nil), a.Roles...)
	}
	return NormalizeRoles(a.ActiveRole)
}

// WithRoles derives a new context from an authoritative role set. The active
// role survives when still held, otherwise the primary role takes over.
func (a AuthContext) WithRoles(roles interface{}) AuthContext {
	set := NormalizeRoles(roles)
	active := a.ActiveRole
	if !set.Contains(active) {
		active = PrimaryRole(set, "")
	}
	return AuthContext{UserID: a.UserID, Email: a.Email, Roles: set, ActiveRole: active}
}
