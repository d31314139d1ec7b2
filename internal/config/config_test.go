package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "cms")
	t.Setenv("DB_NAME", "cms")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 5*time.Minute, cfg.Auth.RoleCacheTTL)
	assert.Equal(t, 10, cfg.Auth.LoginMaxFailures)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_MissingDatabase(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
}

func TestLoadSeed_WithoutJWTSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadSeed()
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Seed.AdminUsername)

	t.Setenv("DB_NAME", "")
	_, err = LoadSeed()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_NAME")
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("TOKEN_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_TTL")
}

func TestLoad_ShortSecretInProduction(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "production")

	_, err := Load()
	require.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
