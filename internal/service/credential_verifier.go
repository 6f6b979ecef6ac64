package service

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

// CredentialPolicy controls which proofs a login may present.
type CredentialPolicy struct {
	// LegacyCredentialFallback accepts the national ID (rut) as a password.
	LegacyCredentialFallback bool
	// AllowPlaintextPasswords compares stored values that are not bcrypt hashes verbatim.
	AllowPlaintextPasswords bool
}

// CredentialVerifier checks login secrets against stored user credentials.
type CredentialVerifier struct {
	policy CredentialPolicy
}

// NewCredentialVerifier constructs a verifier for policy.
func NewCredentialVerifier(policy CredentialPolicy) *CredentialVerifier {
	return &CredentialVerifier{policy: policy}
}

// Policy returns the active policy.
func (v *CredentialVerifier) Policy() CredentialPolicy {
	return v.policy
}

// Verify reports whether secret proves the identity of user.
func (v *CredentialVerifier) Verify(user *models.User, secret string) bool {
	if user == nil || secret == "" {
		return false
	}
	if v.matchesPassword(user.Password, secret) {
		return true
	}
	if v.policy.LegacyCredentialFallback {
		rut := strings.TrimSpace(user.Rut)
		return rut != "" && constantTimeEqual(rut, secret)
	}
	return false
}

func (v *CredentialVerifier) matchesPassword(stored, secret string) bool {
	if stored == "" {
		return false
	}
	if IsPasswordHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	}
	return v.policy.AllowPlaintextPasswords && constantTimeEqual(stored, secret)
}

// IsPasswordHash reports whether stored looks like a bcrypt hash.
func IsPasswordHash(stored string) bool {
	return strings.HasPrefix(stored, "$2")
}

// HashPassword returns a bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
