package database

import (
	"fmt"
	"time"

	"github.com/lawnchairsociety/castcore/internal/config"
)

// Config holds database connection configuration.
type Config struct {
	// Driver specifies which database to use: "sqlite" or "postgres"
	Driver string

	// SQLite configuration
	SQLitePath string

	// PostgreSQL configuration
	Postgres PostgresConfig
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	// DSN, when set, is used as is and the fields below are ignored.
	DSN string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config with sensible defaults for SQLite.
func DefaultConfig(sqlitePath string) Config {
	return Config{
		Driver:     "sqlite",
		SQLitePath: sqlitePath,
	}
}

// DefaultPostgresConfig returns PostgresConfig with recommended pool settings.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// FromContent builds the connection settings for a "sqlite" or "postgres"
// content source. For postgres the content path is the connection string.
func FromContent(cc config.ContentConfig) (Config, error) {
	switch cc.Source {
	case "sqlite":
		return DefaultConfig(cc.Path), nil
	case "postgres":
		pg := DefaultPostgresConfig()
		pg.DSN = cc.Path
		return Config{Driver: "postgres", Postgres: pg}, nil
	}
	return Config{}, fmt.Errorf("content source %q is not a database", cc.Source)
}

// ConnectionString returns the lib/pq connection string.
func (c PostgresConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
