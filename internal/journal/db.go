// Package journal persists rewrite-transaction bookkeeping (spec.md
// §4.4, §6.3): one row per operation tracking its state machine
// position, its backup ref, and when that backup becomes eligible for
// pruning. Grounded on the teacher's internal/db package: same
// database/sql + modernc.org/sqlite driver, same embed.FS migration
// runner reading migrations/*.sql.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/config"
)

// Open opens the journal database at cfg.Storage.DatabasePath and runs
// any pending migrations.
func Open(cfg *config.Config) (*sql.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	dbPath := cfg.Storage.DatabasePath
	if dbPath == "" {
		return nil, fmt.Errorf("database path not configured")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
