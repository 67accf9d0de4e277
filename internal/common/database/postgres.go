// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"property-browser/internal/common/config"

	_ "github.com/lib/pq"
)

// Schema creates the tables used by the postgres property and saved-property stores.
const Schema = `
CREATE TABLE IF NOT EXISTS properties (
	id            SERIAL PRIMARY KEY,
	title         TEXT NOT NULL,
	price         INTEGER NOT NULL CHECK (price >= 0),
	address       TEXT NOT NULL,
	bedrooms      INTEGER NOT NULL DEFAULT 0,
	bathrooms     NUMERIC(4,1) NOT NULL DEFAULT 0,
	square_feet   INTEGER NOT NULL DEFAULT 0,
	property_type TEXT NOT NULL,
	images        TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	features      TEXT NOT NULL DEFAULT '',
	latitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
	year_built    INTEGER NOT NULL DEFAULT 0,
	listing_date  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS properties_listing_date_idx ON properties (listing_date DESC);

CREATE TABLE IF NOT EXISTS saved_properties (
	id          SERIAL PRIMARY KEY,
	property_id INTEGER NOT NULL UNIQUE,
	saved_date  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Migrate applies Schema. Every statement is idempotent.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
