package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// User is a row of the usuarios table. Role columns are legacy-shaped and must
// only be read through RoleSet.
type User struct {
	ID        int64          `db:"id"`
	Nombre    string         `db:"nombre"`
	Rut       string         `db:"rut"`
	Email     string         `db:"email"`
	Password  string         `db:"password"`
	Role      string         `db:"role"`
	Roles     pq.StringArray `db:"roles"`
	LastLogin *time.Time     `db:"last_login"`
	CreatedAt *time.Time     `db:"created_at"`
}

// RoleSet merges the legacy role column with the roles array. Tokens from the
// legacy column come first so the historical primary role is kept.
func (u *User) RoleSet() RoleSet {
	merged := append(legacyRoleTokens(u.Role), u.Roles...)
	return EnsureRoles(merged, DefaultRole)
}

// legacyRoleTokens reads the role column, which holds either a plain or comma
// separated string or the text form of a TEXT[] such as {admin,alumno}.
func legacyRoleTokens(raw string) []string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
		var arr pq.StringArray
		if err := arr.Scan(raw); err == nil {
			return []string(NormalizeRoles([]string(arr)))
		}
	}
	return []string(NormalizeRoles(raw))
}

// Info serializes the user for API responses.
func (u *User) Info() UserInfo {
	roles := u.RoleSet()
	return UserInfo{
		ID:        u.ID,
		Nombre:    u.Nombre,
		Rut:       u.Rut,
		Email:     u.Email,
		Role:      PrimaryRole(roles, DefaultRole),
		Roles:     roles,
		LastLogin: formatTimestamp(u.LastLogin),
		CreatedAt: formatTimestamp(u.CreatedAt),
	}
}

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
