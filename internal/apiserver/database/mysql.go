package database

import (
	"fmt"

	"github.com/amoylab/atelier/internal/common/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL connects to MySQL
func NewMySQL(cfg *config.DatabaseConfig, gormCfg *gorm.Config) (*Store, error) {
	gormDB, err := gorm.Open(mysql.Open(cfg.GetDSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewStore(gormDB)
}
