package models

import (
	"fmt"
	"strings"
)

// Known role tokens. The vocabulary is open; these are the ones routes check.
const (
	RoleAdmin    = "admin"
	RoleStudent  = "alumno"
	RoleTeacher  = "profesor"
	DefaultRole  = RoleStudent
	roleSplitSep = ","
)

// RoleSet is an ordered, duplicate-free list of lower-case role tokens.
type RoleSet []string

// NormalizeRoles turns a raw role representation into a RoleSet. It accepts a
// single token, a comma separated string, string slices and decoded JSON
// arrays. Anything it does not understand yields an empty set.
func NormalizeRoles(input interface{}) RoleSet {
	var source []string
	switch v := input.(type) {
	case nil:
		return RoleSet{}
	case string:
		source = strings.Split(v, roleSplitSep)
	case []string:
		source = v
	case RoleSet:
		source = v
	case []interface{}:
		source = make([]string, 0, len(v))
		for _, item := range v {
			switch s := item.(type) {
			case string:
				source = append(source, s)
			case fmt.Stringer:
				source = append(source, s.String())
			}
		}
	default:
		return RoleSet{}
	}

	roles := make(RoleSet, 0, len(source))
	seen := make(map[string]struct{}, len(source))
	for _, raw := range source {
		role := strings.ToLower(strings.TrimSpace(raw))
		if role == "" {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles
}

// EnsureRoles normalizes input and falls back to the normalized fallback when
// the result is empty.
func EnsureRoles(input interface{}, fallback interface{}) RoleSet {
	if roles := NormalizeRoles(input); len(roles) > 0 {
		return roles
	}
	return NormalizeRoles(fallback)
}

// HasAnyRole reports whether owned and expected share at least one role.
// An empty expected set matches nothing.
func HasAnyRole(owned, expected interface{}) bool {
	targets := NormalizeRoles(expected)
	if len(targets) == 0 {
		return false
	}
	have := NormalizeRoles(owned)
	for _, target := range targets {
		if have.Contains(target) {
			return true
		}
	}
	return false
}

// PrimaryRole returns the first normalized role, or fallback when there is none.
func PrimaryRole(owned interface{}, fallback string) string {
	roles := NormalizeRoles(owned)
	if len(roles) == 0 {
		return fallback
	}
	return roles[0]
}

// Contains expects a normalized role token.
func (r RoleSet) Contains(role string) bool {
	for _, owned := range r {
		if owned == role {
			return true
		}
	}
	return false
}

// String renders the set in the legacy comma separated form.
func (r RoleSet) String() string {
	return strings.Join(r, roleSplitSep)
}
