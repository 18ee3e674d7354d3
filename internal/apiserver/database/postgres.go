package database

import (
	"fmt"

	"github.com/amoylab/atelier/internal/common/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgres connects to PostgreSQL, e.g. the database behind a Supabase project.
func NewPostgres(cfg *config.DatabaseConfig, gormCfg *gorm.Config) (*Store, error) {
	gormDB, err := gorm.Open(postgres.Open(cfg.GetDSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewStore(gormDB)
}
