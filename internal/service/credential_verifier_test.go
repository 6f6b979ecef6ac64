package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/biblioteca-api/internal/models"
)

func TestCredentialVerifierBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Password: string(hash), Rut: "11111111-1"}

	strict := NewCredentialVerifier(CredentialPolicy{})
	assert.True(t, strict.Verify(user, "s3cret"))
	assert.False(t, strict.Verify(user, "wrong"))
	assert.False(t, strict.Verify(user, "11111111-1"))
	assert.False(t, strict.Verify(user, ""))
	assert.False(t, strict.Verify(nil, "s3cret"))
}

func TestCredentialVerifierPlaintextPolicy(t *testing.T) {
	user := &models.User{Password: "1234"}

	assert.False(t, NewCredentialVerifier(CredentialPolicy{}).Verify(user, "1234"))
	assert.True(t, NewCredentialVerifier(CredentialPolicy{AllowPlaintextPasswords: true}).Verify(user, "1234"))
}

func TestCredentialVerifierLegacyFallback(t *testing.T) {
	user := &models.User{Password: "1234", Rut: " 11111111-1 "}
	legacy := NewCredentialVerifier(CredentialPolicy{LegacyCredentialFallback: true})

	assert.True(t, legacy.Verify(user, "11111111-1"))
	assert.False(t, legacy.Verify(user, "1234"))
	assert.False(t, legacy.Verify(&models.User{Password: "x"}, ""))
	assert.True(t, legacy.Policy().LegacyCredentialFallback)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("abc")
	require.NoError(t, err)
	assert.True(t, IsPasswordHash(hash))
	assert.False(t, IsPasswordHash("abc"))
	assert.True(t, NewCredentialVerifier(CredentialPolicy{}).Verify(&models.User{Password: hash}, "abc"))
}
