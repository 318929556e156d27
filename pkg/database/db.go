package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Config locates the sqlite catalog.
type Config struct {
	Path string
}

// DefaultConfig reads NOVELHUB_DB_PATH and falls back to
// ~/.novelhub/novelhub.db.
func DefaultConfig() Config {
	if p := os.Getenv("NOVELHUB_DB_PATH"); p != "" {
		return Config{Path: p}
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{Path: filepath.Join(home, ".novelhub", "novelhub.db")}
}

// DSN is the driver connection string. Foreign keys and the journal mode
// are per connection, so they are set here for every connection in the pool.
func (c Config) DSN() string {
	return c.Path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

func EnsureDataDir(cfg Config) error {
	return os.MkdirAll(filepath.Dir(cfg.Path), 0o755)
}

func Open(cfg Config) (*sql.DB, error) {
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}
	return db, nil
}

// OpenMigrated opens the catalog and applies the schema.
func OpenMigrated(cfg Config) (*sql.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
