package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amoylab/atelier/internal/common/cnst"
	"github.com/amoylab/atelier/pkg/trace"
)

type (
	APIServerConfig struct {
		Server   ServerConfig   `yaml:"server"`
		Database DatabaseConfig `yaml:"database"`
		Logger   LoggerConfig   `yaml:"logger"`
		Session  SessionConfig  `yaml:"session"`
		Guard    GuardConfig    `yaml:"guard"`
		Metrics  MetricsConfig  `yaml:"metrics"`
		Tracing  trace.Config   `yaml:"tracing"`
		I18n     I18nConfig     `yaml:"i18n"`
	}

	ServerConfig struct {
		Port        int    `yaml:"port"`
		Environment string `yaml:"environment"` // production, development
	}

	// I18nConfig represents the internationalization configuration
	I18nConfig struct {
		Path string `yaml:"path"` // Path to i18n translation files
	}

	DatabaseConfig struct {
		Type     string `yaml:"type"`     // mysql, postgres, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 3306 (for mysql), 5432 (for postgres)
		User     string `yaml:"user"`     // root (for mysql), postgres (for postgres)
		Password string `yaml:"password"` // password
		DBName   string `yaml:"dbname"`   // database name, file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (for postgres)
	}

	// SessionConfig selects how caller sessions are verified
	SessionConfig struct {
		Mode     string         `yaml:"mode"`   // jwt, supabase
		Cookie   string         `yaml:"cookie"` // cookie consulted when no Authorization header is sent
		JWT      JWTConfig      `yaml:"jwt"`
		Supabase SupabaseConfig `yaml:"supabase"`
	}

	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
		Issuer    string        `yaml:"issuer"`   // optional, checked when set
		Audience  string        `yaml:"audience"` // optional, checked when set
	}

	// SupabaseConfig points at a GoTrue-compatible auth endpoint
	SupabaseConfig struct {
		URL     string        `yaml:"url"`
		AnonKey string        `yaml:"anon_key"`
		Timeout time.Duration `yaml:"timeout"`
	}

	// GuardConfig configures the per-request principal cache
	GuardConfig struct {
		Cache GuardCacheConfig `yaml:"cache"`
	}

	GuardCacheConfig struct {
		Type  string        `yaml:"type"` // none, memory, redis
		TTL   time.Duration `yaml:"ttl"`
		Redis RedisConfig   `yaml:"redis"`
	}

	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Path      string    `yaml:"path"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

func (c *APIServerConfig) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5235
	}
	if c.Server.Environment == "" {
		c.Server.Environment = cnst.EnvDevelopment
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Session.Mode == "" {
		c.Session.Mode = "jwt"
	}
	if c.Session.Cookie == "" {
		c.Session.Cookie = "sb-access-token"
	}
	if c.Session.JWT.Duration <= 0 {
		c.Session.JWT.Duration = 24 * time.Hour
	}
	if c.Session.Supabase.Timeout <= 0 {
		c.Session.Supabase.Timeout = 10 * time.Second
	}
	if c.Guard.Cache.Type == "" {
		c.Guard.Cache.Type = "none"
	}
	if c.Guard.Cache.TTL <= 0 {
		c.Guard.Cache.TTL = 30 * time.Second
	}
	if c.Guard.Cache.Redis.Prefix == "" {
		c.Guard.Cache.Redis.Prefix = "atelier:guard:"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = cnst.AppName
	}
	if c.I18n.Path == "" {
		c.I18n.Path = "configs/i18n"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = cnst.AppName
	}
}

// Validate checks the settings that have no safe default
func (c *APIServerConfig) Validate() error {
	switch c.Session.Mode {
	case "jwt":
		if c.Session.JWT.SecretKey == "" {
			return errors.New("session.jwt.secret_key is required in jwt mode")
		}
	case "supabase":
		if c.Session.Supabase.URL == "" || c.Session.Supabase.AnonKey == "" {
			return errors.New("session.supabase.url and anon_key are required in supabase mode")
		}
	default:
		return fmt.Errorf("unsupported session mode: %s", c.Session.Mode)
	}
	switch c.Guard.Cache.Type {
	case "none", "memory":
	case "redis":
		if c.Guard.Cache.Redis.Addr == "" {
			return errors.New("guard.cache.redis.addr is required for the redis cache")
		}
	default:
		return fmt.Errorf("unsupported guard cache type: %s", c.Guard.Cache.Type)
	}
	return nil
}

// IsProduction reports whether the server runs with production settings
func (c *APIServerConfig) IsProduction() bool {
	return c.Server.Environment == cnst.EnvProduction
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return c.getPostgresDSN()
	case "mysql":
		return c.getMySQLDSN()
	case "sqlite":
		// Ensure the directory for the SQLite database exists.
		// If the directory cannot be created, it's a fatal error.
		if err := os.MkdirAll(filepath.Dir(c.DBName), 0755); err != nil {
			panic(fmt.Errorf("failed to create directory for sqlite database: %w", err))
		}
		return c.DBName // For SQLite, DBName is the file path
	default:
		return ""
	}
}

// getPostgresDSN returns PostgreSQL connection string
func (c *DatabaseConfig) getPostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// getMySQLDSN returns MySQL connection string
func (c *DatabaseConfig) getMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
