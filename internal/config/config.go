// Package config implements the framework's Property Source: a read-only
// mapping of configuration keys to values, assembled from environment
// variables (authoritative) with an optional YAML file as a lower-priority
// backing layer. It follows the 12-Factor App methodology, matching the
// teacher service's config package.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config is the root configuration structure. Each field corresponds to a
// functional domain so that boundaries stay clear as the framework grows.
type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	ORM      ORMConfig      `envPrefix:"ORM_"`
	JWT      JWTConfig      `envPrefix:"JWT_"`
	Feature  FeatureConfig  `envPrefix:"FEATURE_"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8080"`
}

// DatabaseConfig holds PostgreSQL connection and pool sizing parameters.
type DatabaseConfig struct {
	Host              string        `env:"HOST" envDefault:"localhost"`
	Port              int           `env:"PORT" envDefault:"5432"`
	User              string        `env:"USER" envDefault:"postgres"`
	Password          string        `env:"PASSWORD" envDefault:"postgres"`
	Name              string        `env:"NAME" envDefault:"goframe"`
	SSLMode           string        `env:"SSL_MODE" envDefault:"disable"`
	MaxPoolSize       int           `env:"MAX_POOL_SIZE" envDefault:"20"`
	MinIdle           int           `env:"MIN_IDLE" envDefault:"2"`
	ConnectionTimeout time.Duration `env:"CONNECTION_TIMEOUT" envDefault:"5s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"5m"`
	MaxLifetime       time.Duration `env:"MAX_LIFETIME" envDefault:"30m"`
}

// ORMConfig controls the ORM adapter's dialect and diagnostics.
type ORMConfig struct {
	Dialect   string `env:"DIALECT" envDefault:"postgres"`
	DDLAuto   string `env:"DDL_AUTO" envDefault:"none"` // create|update|validate|create-drop|none
	ShowSQL   bool   `env:"SHOW_SQL" envDefault:"false"`
	FormatSQL bool   `env:"FORMAT_SQL" envDefault:"false"`
	BatchSize int    `env:"BATCH_SIZE" envDefault:"20"`
}

// JWTConfig controls bearer token signing.
type JWTConfig struct {
	Secret          string `env:"SECRET" envDefault:"change-me-please-32b-min"`
	ExpirationHours int    `env:"EXPIRATION_HOURS" envDefault:"24"`
}

// FeatureConfig holds the framework's feature toggles.
type FeatureConfig struct {
	DatabaseEnabled bool `env:"DATABASE_ENABLED" envDefault:"true"`
	MetricsEnabled  bool `env:"METRICS_ENABLED" envDefault:"false"`
	AdminEnabled    bool `env:"ADMIN_ENABLED" envDefault:"false"`
}

// Load reads configuration from environment variables, falling back to the
// declared defaults. Environment variables always take precedence; a
// file-backed layer comes from LoadFile, combined with this one via NewLayered.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment variables: %w", err)
	}
	return &cfg, nil
}

// GetDSN constructs the PostgreSQL data source name from the database
// section, centralizing the connection-string format in one place.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetServerAddr constructs the server bind address.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
