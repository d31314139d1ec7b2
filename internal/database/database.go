package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	appconfig "github.com/GTDGit/cms_api/internal/config"
)

// Retry policy for the initial connection: up to 5 attempts with exponential
// backoff starting at 500ms, capped at 5s.
const (
	maxAttempts = 5
	baseDelay   = 500 * time.Millisecond
	maxDelay    = 5 * time.Second
)

// DSN builds a postgres:// connection string with escaped credentials.
func DSN(cfg *appconfig.DatabaseConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)
}

// Connect establishes a PostgreSQL connection using the provided configuration.
// It retries transient bootstrapping failures (e.g. the DB container still
// starting). The returned *sqlx.DB has pool settings applied and has been pinged.
func Connect(cfg *appconfig.DatabaseConfig) (*sqlx.DB, error) {
	if cfg == nil {
		return nil, errors.New("nil database config")
	}

	dsn := DSN(cfg)

	var db *sqlx.DB
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		db, lastErr = sqlx.Open("postgres", dsn)
		if lastErr != nil {
			sleepWithBackoff(attempt)
			continue
		}

		setPool(db.DB)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			return db, nil
		}

		log.Warn().Err(lastErr).Int("attempt", attempt).Msg("database ping failed, retrying")
		_ = db.Close()
		sleepWithBackoff(attempt)
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, lastErr)
}

// setPool configures the connection pool for the database.
func setPool(db *sql.DB) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

func backoff(attempt int) time.Duration {
	d := baseDelay << (attempt - 1)
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

func sleepWithBackoff(attempt int) {
	time.Sleep(backoff(attempt))
}
