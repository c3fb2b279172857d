package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type DBConfig struct {
	// postgres | sqlite
	Driver          string `envconfig:"DB_DRIVER" default:"postgres"`
	Host            string `envconfig:"DB_HOST" default:"postgres"`
	Port            int    `envconfig:"DB_PORT" default:"5432"`
	User            string `envconfig:"DB_USER" default:"booking"`
	Password        string `envconfig:"DB_PASSWORD" default:"booking"`
	Name            string `envconfig:"DB_NAME" default:"booking_db"`
	SSLMode         string `envconfig:"DB_SSLMODE" default:"disable"`
	TimeZone        string `envconfig:"DB_TIMEZONE" default:"UTC"`
	SQLitePath      string `envconfig:"DB_SQLITE_PATH" default:"reservations.db"`
	MaxOpenConns    int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifeTime int    `envconfig:"DB_CONN_MAX_LIFETIME_MIN" default:"30"` // минут
}

func LoadDBConfig() (*DBConfig, error) {
	var cfg DBConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process db env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate — минимальная валидация.
func (c *DBConfig) Validate() error {
	switch c.Driver {
	case "postgres":
		if c.Host == "" || c.User == "" || c.Name == "" {
			return fmt.Errorf("invalid DB config: host/user/name must not be empty")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("invalid DB config: sqlite path must not be empty")
		}
	default:
		return fmt.Errorf("invalid DB config: unknown driver %q", c.Driver)
	}
	return nil
}

func (c *DBConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifeTime) * time.Minute
}
