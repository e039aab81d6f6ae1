package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"atmricky/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// NewDatabase opens the identity store. With a postgres DATABASE_URL it uses the
// pgx-backed dialector; otherwise it opens (creating if needed) the SQLite file at
// DB_PATH through the pure-Go modernc driver. Schema patches run on every start.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.UsesPostgres() {
		return openPostgres(cfg.DatabaseURL)
	}
	return NewSQLite(cfg.DBPath)
}

func openPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}
	return db, nil
}

// NewSQLite opens the SQLite file at path, creating its directory and the file
// itself on first run.
func NewSQLite(path string) (*gorm.DB, error) {
	if err := ensureDBFile(path); err != nil {
		return nil, fmt.Errorf("init db path: %w", err)
	}

	// DriverName "sqlite" selects modernc.org/sqlite; no cgo involved.
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: path}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; one connection keeps the last-dev checks atomic.
	sqlDB.SetMaxOpenConns(1)

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}
	return db, nil
}

func ensureDBFile(path string) error {
	if path == "" {
		return fmt.Errorf("DB_PATH vacío")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// applySchemaPatches is idempotent; the table layout matches the db.sqlite files
// written by earlier releases so they can be opened unchanged.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			"displayName" TEXT NOT NULL,
			pin TEXT,
			role TEXT NOT NULL DEFAULT 'user'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users (role)`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
