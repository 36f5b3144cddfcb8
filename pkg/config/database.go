package config

import (
	"time"

	"github.com/artzaitsev/submission-scheduler/pkg/database"
)

// DatabaseConfig holds the YAML-loadable view of PostgreSQL connection
// parameters, mirroring pkg/database.Config's shape.
type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"sslmode"`

	SchemaName string `yaml:"schema_name,omitempty"`

	MaxOpenConns    int           `yaml:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// DefaultDatabaseConfig returns the built-in database defaults.
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "pipeline",
		Database:        "pipeline",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}
}

// ToDatabaseConfig converts the YAML-loaded view into pkg/database.Config,
// the shape database.NewClient consumes.
func (d *DatabaseConfig) ToDatabaseConfig() database.Config {
	return database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		SchemaName:      d.SchemaName,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}
