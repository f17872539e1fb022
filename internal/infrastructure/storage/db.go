package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// OpenDB 打开数据库连接并启用 WAL
func OpenDB(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = filepath.Join(config.GetDataDir(), "drax.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 读写并发时避免 SQLITE_BUSY
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return db, nil
}

// ProvideDB 为依赖注入提供数据库连接
func ProvideDB(cfg *config.DatabaseConfig) (*sql.DB, func(), error) {
	db, err := OpenDB(cfg.Path)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.NewModuleLogger("storage", "db").Warn("Failed to close database", "error", err)
		}
	}
	return db, cleanup, nil
}
