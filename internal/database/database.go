// Package database stores spell, creature and item templates in SQLite or PostgreSQL.
// The cast pipeline only ever reads them; cmd/contentdb writes them.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrDuplicate is returned when inserting a template whose id is already stored.
var ErrDuplicate = errors.New("template already exists")

// Database wraps the connection and provides the content operations.
type Database struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Database, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig opens the database described by cfg and creates the schema.
func OpenWithConfig(cfg Config) (*Database, error) {
	var (
		dialect Dialect
		dsn     string
	)
	switch cfg.Driver {
	case "postgres":
		dialect = NewDialect(DialectPostgres)
		dsn = cfg.Postgres.ConnectionString()
	case "", "sqlite":
		dialect = NewDialect(DialectSQLite)
		dsn = cfg.SQLitePath
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Driver == "postgres" {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	} else {
		// pragmas are per connection
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	d := &Database{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying sql.DB for advanced operations.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Dialect returns the SQL dialect in use.
func (d *Database) Dialect() Dialect {
	return d.dialect
}

// migrate creates the content schema if it doesn't exist.
func (d *Database) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS spell_template (
			id {int} PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			school {int} NOT NULL DEFAULT 0,
			damage_class {int} NOT NULL DEFAULT 0,
			mechanic {int} NOT NULL DEFAULT 0,
			attributes {int} NOT NULL DEFAULT 0,
			interrupt_flags {int} NOT NULL DEFAULT 0,
			channel_interrupt_flags {int} NOT NULL DEFAULT 0,
			cast_time {int} NOT NULL DEFAULT 0,
			duration {int} NOT NULL DEFAULT 0,
			speed {real} NOT NULL DEFAULT 0,
			recovery {int} NOT NULL DEFAULT 0,
			category_recovery {int} NOT NULL DEFAULT 0,
			category {int} NOT NULL DEFAULT 0,
			global_cooldown {int} NOT NULL DEFAULT 0,
			gcd_category {int} NOT NULL DEFAULT 0,
			power_type {int} NOT NULL DEFAULT 0,
			power_cost {int} NOT NULL DEFAULT 0,
			power_cost_pct {int} NOT NULL DEFAULT 0,
			min_range {real} NOT NULL DEFAULT 0,
			max_range {real} NOT NULL DEFAULT 0,
			max_targets {int} NOT NULL DEFAULT 0,
			max_target_level {int} NOT NULL DEFAULT 0,
			required_zone {int} NOT NULL DEFAULT 0,
			cone_angle {real} NOT NULL DEFAULT 0,
			spell_focus {int} NOT NULL DEFAULT 0,
			stances {int} NOT NULL DEFAULT 0,
			stances_not {int} NOT NULL DEFAULT 0,
			caster_aura_state {int} NOT NULL DEFAULT 0,
			target_aura_state {int} NOT NULL DEFAULT 0,
			target_creature_types {int} NOT NULL DEFAULT 0,
			item_class {int} NOT NULL DEFAULT -1,
			item_subclass_mask {int} NOT NULL DEFAULT 0,
			diminishing_group {int} NOT NULL DEFAULT 0,
			proc_flags {int} NOT NULL DEFAULT 0,
			proc_chance {int} NOT NULL DEFAULT 0,
			proc_charges {int} NOT NULL DEFAULT 0,
			script_name TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS spell_effect (
			spell_id {int} NOT NULL REFERENCES spell_template(id) ON DELETE CASCADE,
			slot {int} NOT NULL,
			type {int} NOT NULL,
			base_points {int} NOT NULL DEFAULT 0,
			dice_count {int} NOT NULL DEFAULT 0,
			die_sides {int} NOT NULL DEFAULT 0,
			points_per_level {real} NOT NULL DEFAULT 0,
			points_per_combo {int} NOT NULL DEFAULT 0,
			target_a {int} NOT NULL DEFAULT 0,
			target_b {int} NOT NULL DEFAULT 0,
			radius {real} NOT NULL DEFAULT 0,
			chain_targets {int} NOT NULL DEFAULT 0,
			chain_amplitude {real} NOT NULL DEFAULT 0,
			aura {int} NOT NULL DEFAULT 0,
			period {int} NOT NULL DEFAULT 0,
			misc_value {int} NOT NULL DEFAULT 0,
			mechanic {int} NOT NULL DEFAULT 0,
			trigger_spell {int} NOT NULL DEFAULT 0,
			item_type {int} NOT NULL DEFAULT 0,
			PRIMARY KEY (spell_id, slot)
		)`,

		`CREATE TABLE IF NOT EXISTS spell_reagent (
			spell_id {int} NOT NULL REFERENCES spell_template(id) ON DELETE CASCADE,
			item {int} NOT NULL,
			count {int} NOT NULL,
			PRIMARY KEY (spell_id, item)
		)`,

		`CREATE TABLE IF NOT EXISTS spell_tool (
			spell_id {int} NOT NULL REFERENCES spell_template(id) ON DELETE CASCADE,
			item {int} NOT NULL,
			PRIMARY KEY (spell_id, item)
		)`,

		`CREATE TABLE IF NOT EXISTS spell_script_target (
			spell_id {int} NOT NULL REFERENCES spell_template(id) ON DELETE CASCADE,
			type {int} NOT NULL,
			entry {int} NOT NULL,
			PRIMARY KEY (spell_id, type, entry)
		)`,

		`CREATE TABLE IF NOT EXISTS creature_template (
			entry {int} PRIMARY KEY,
			name TEXT NOT NULL,
			level {int} NOT NULL DEFAULT 1,
			max_health {int} NOT NULL DEFAULT 1,
			max_mana {int} NOT NULL DEFAULT 0,
			type {int} NOT NULL DEFAULT 0,
			school_immune {int} NOT NULL DEFAULT 0,
			mechanic_immune {int} NOT NULL DEFAULT 0,
			weapon_damage {int} NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS item_template (
			entry {int} PRIMARY KEY,
			name TEXT NOT NULL,
			class {int} NOT NULL DEFAULT 0,
			subclass {int} NOT NULL DEFAULT 0,
			quality {int} NOT NULL DEFAULT 0,
			max_stack {int} NOT NULL DEFAULT 1,
			disenchant_into {int} NOT NULL DEFAULT 0,
			disenchant_count {int} NOT NULL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_spell_template_script ON spell_template(script_name)`,
	}

	for _, m := range migrations {
		stmt := d.qb.Schema(m)
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// withTx runs fn in a transaction, committing only if it succeeds.
func (d *Database) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
