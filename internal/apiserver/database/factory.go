package database

import (
	"fmt"

	"github.com/amoylab/atelier/internal/common/config"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDatabase creates a new database based on configuration
func NewDatabase(cfg *config.DatabaseConfig) (Database, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	switch cfg.Type {
	case "postgres":
		return NewPostgres(cfg, gormCfg)
	case "sqlite":
		return NewSQLite(cfg, gormCfg)
	case "mysql":
		return NewMySQL(cfg, gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
