package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/GTDGit/cms_api/internal/config"
)

func TestDSN_EscapesCredentials(t *testing.T) {
	dsn := DSN(&appconfig.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "cms user",
		Password: "p@ss/word",
		Name:     "cms",
		SSLMode:  "disable",
	})
	assert.Equal(t, "postgres://cms+user:p%40ss%2Fword@db:5432/cms?sslmode=disable", dsn)
}

func TestBackoff_Capped(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, backoff(1))
	assert.Equal(t, time.Second, backoff(2))
	assert.Equal(t, maxDelay, backoff(10))
}

func TestConnect_NilConfig(t *testing.T) {
	_, err := Connect(nil)
	require.Error(t, err)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 4)
}
