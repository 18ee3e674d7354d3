package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/amoylab/atelier/internal/common/config"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// NewSQLite opens (creating if needed) the SQLite file named by cfg.DBName.
func NewSQLite(cfg *config.DatabaseConfig, gormCfg *gorm.Config) (*Store, error) {
	if cfg.DBName != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBName), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// wait up to 5s on a locked database
	dsn := cfg.DBName + "?_pragma=busy_timeout(5000)"
	gormDB, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewStore(gormDB)
}
