package database

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lawnchairsociety/castcore/internal/config"
)

// =============================================================================
// Dialect Tests
// =============================================================================

func TestNewDialect(t *testing.T) {
	tests := []struct {
		name string
		typ  DialectType
		want string
	}{
		{"sqlite", DialectSQLite, "sqlite"},
		{"postgres", DialectPostgres, "postgres"},
		{"unknown defaults to sqlite", "unknown", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewDialect(tt.typ).DriverName(); got != tt.want {
				t.Errorf("DriverName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSQLiteDialect(t *testing.T) {
	d := &SQLiteDialect{}
	for _, pos := range []int{1, 2, 10} {
		if got := d.Placeholder(pos); got != "?" {
			t.Errorf("Placeholder(%d) = %q, want ?", pos, got)
		}
	}

	stmts := d.InitStatements()
	joined := strings.Join(stmts, ";")
	for _, want := range []string{"foreign_keys", "journal_mode", "busy_timeout"} {
		if !strings.Contains(joined, want) {
			t.Errorf("InitStatements() missing %s pragma: %v", want, stmts)
		}
	}

	if d.IntegerType() != "INTEGER" || d.RealType() != "REAL" {
		t.Errorf("Unexpected column types %s/%s", d.IntegerType(), d.RealType())
	}
}

func TestPostgresDialect(t *testing.T) {
	d := &PostgresDialect{}
	tests := []struct {
		position int
		want     string
	}{
		{1, "$1"},
		{2, "$2"},
		{10, "$10"},
	}
	for _, tt := range tests {
		if got := d.Placeholder(tt.position); got != tt.want {
			t.Errorf("Placeholder(%d) = %q, want %q", tt.position, got, tt.want)
		}
	}
	if len(d.InitStatements()) != 0 {
		t.Errorf("InitStatements() = %v, want none", d.InitStatements())
	}
	if d.IntegerType() != "BIGINT" || d.RealType() != "DOUBLE PRECISION" {
		t.Errorf("Unexpected column types %s/%s", d.IntegerType(), d.RealType())
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{"sqlite nil", &SQLiteDialect{}, nil, false},
		{"sqlite unique", &SQLiteDialect{}, errors.New("UNIQUE constraint failed: creature_template.entry"), true},
		{"sqlite primary key", &SQLiteDialect{}, errors.New("PRIMARY KEY constraint failed"), true},
		{"sqlite other", &SQLiteDialect{}, errors.New("no such table: spell_template"), false},
		{"postgres nil", &PostgresDialect{}, nil, false},
		{"postgres duplicate", &PostgresDialect{}, errors.New(`pq: duplicate key value violates unique constraint "spell_template_pkey"`), true},
		{"postgres code", &PostgresDialect{}, errors.New("ERROR 23505"), true},
		{"postgres other", &PostgresDialect{}, errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.IsDuplicateKeyError(tt.err); got != tt.want {
				t.Errorf("IsDuplicateKeyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// =============================================================================
// QueryBuilder Tests
// =============================================================================

func TestQueryBuilderBuild(t *testing.T) {
	query := "SELECT name FROM spell_template WHERE id = ? AND school = ?"

	sqlite := NewQueryBuilder(&SQLiteDialect{})
	if got := sqlite.Build(query); got != query {
		t.Errorf("SQLite Build() = %q, want unchanged", got)
	}

	pg := NewQueryBuilder(&PostgresDialect{})
	want := "SELECT name FROM spell_template WHERE id = $1 AND school = $2"
	if got := pg.Build(query); got != want {
		t.Errorf("Postgres Build() = %q, want %q", got, want)
	}
}

func TestQueryBuilderInsert(t *testing.T) {
	cols := []string{"spell_id", "item", "count"}

	tests := []struct {
		name    string
		dialect Dialect
		want    string
	}{
		{"sqlite", &SQLiteDialect{}, "INSERT INTO spell_reagent (spell_id, item, count) VALUES (?, ?, ?)"},
		{"postgres", &PostgresDialect{}, "INSERT INTO spell_reagent (spell_id, item, count) VALUES ($1, $2, $3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewQueryBuilder(tt.dialect).Insert("spell_reagent", cols); got != tt.want {
				t.Errorf("Insert() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryBuilderSchema(t *testing.T) {
	ddl := "CREATE TABLE x (a {int} PRIMARY KEY, b {real}, c {int})"

	if got := NewQueryBuilder(&SQLiteDialect{}).Schema(ddl); got != "CREATE TABLE x (a INTEGER PRIMARY KEY, b REAL, c INTEGER)" {
		t.Errorf("SQLite Schema() = %q", got)
	}
	if got := NewQueryBuilder(&PostgresDialect{}).Schema(ddl); got != "CREATE TABLE x (a BIGINT PRIMARY KEY, b DOUBLE PRECISION, c BIGINT)" {
		t.Errorf("Postgres Schema() = %q", got)
	}
}

// =============================================================================
// Config Tests
// =============================================================================

func TestDefaultPostgresConfig(t *testing.T) {
	cfg := DefaultPostgresConfig()
	if cfg.Port != 5432 || cfg.SSLMode != "disable" {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 5 || cfg.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("Unexpected pool defaults %+v", cfg)
	}
}

func TestConnectionString(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db.example.com",
		Port:     5433,
		User:     "castd",
		Password: "secret",
		Database: "content",
		SSLMode:  "require",
	}
	want := "host=db.example.com port=5433 user=castd password=secret dbname=content sslmode=require"
	if got := cfg.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}

	cfg.DSN = "postgres://castd@localhost/content"
	if got := cfg.ConnectionString(); got != cfg.DSN {
		t.Errorf("ConnectionString() = %q, want the DSN", got)
	}
}

func TestFromContent(t *testing.T) {
	tests := []struct {
		name    string
		cc      config.ContentConfig
		driver  string
		wantErr bool
	}{
		{"sqlite", config.ContentConfig{Source: "sqlite", Path: "data/content.db"}, "sqlite", false},
		{"postgres", config.ContentConfig{Source: "postgres", Path: "postgres://localhost/content"}, "postgres", false},
		{"yaml is not a database", config.ContentConfig{Source: "yaml"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromContent(tt.cc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromContent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if cfg.Driver != tt.driver {
				t.Errorf("Driver = %q, want %q", cfg.Driver, tt.driver)
			}
			if tt.driver == "sqlite" && cfg.SQLitePath != tt.cc.Path {
				t.Errorf("SQLitePath = %q, want %q", cfg.SQLitePath, tt.cc.Path)
			}
			if tt.driver == "postgres" && cfg.Postgres.ConnectionString() != tt.cc.Path {
				t.Errorf("ConnectionString() = %q, want %q", cfg.Postgres.ConnectionString(), tt.cc.Path)
			}
		})
	}
}
