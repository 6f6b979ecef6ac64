package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg := fromViper(newViper())

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 8*time.Hour, cfg.JWT.Expiration)
	assert.True(t, cfg.Auth.LegacyCredentialFallback)
	assert.True(t, cfg.Auth.ResolveRolesFromStore)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://biblioteca.cl/, http://localhost:5173")
	t.Setenv("JWT_EXPIRATION", "garbage")
	t.Setenv("AUTH_ALLOW_PLAINTEXT_PASSWORDS", "false")
	t.Setenv("CACHE_TTL", "90s")

	cfg := fromViper(newViper())

	assert.Equal(t, []string{"https://biblioteca.cl/", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 8*time.Hour, cfg.JWT.Expiration)
	assert.False(t, cfg.Auth.AllowPlaintextPasswords)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
}

func TestLoansLocation(t *testing.T) {
	assert.Equal(t, time.Local, LoansConfig{Timezone: "Local"}.Location())
	assert.Equal(t, time.Local, LoansConfig{Timezone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, "UTC", LoansConfig{Timezone: "UTC"}.Location().String())
}
