// Package config provides actor-dispatch configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds actor-dispatch configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"actor-dispatch"`

	// Host signing key: inline seed wins over the file.
	HostSeed     string `envconfig:"HOST_SEED"`
	HostSeedFile string `envconfig:"HOST_SEED_FILE"`

	// TrustedIssuers is a comma-separated list of host public keys the actor host accepts.
	// Empty accepts any validly signed invocation.
	TrustedIssuers []string `envconfig:"TRUSTED_ISSUERS"`

	// RequestTimeout bounds each dispatch round trip.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"2s"`

	ManifestFile     string `envconfig:"MANIFEST_FILE"`
	EnvelopeVersions string `envconfig:"ENVELOPE_VERSIONS" default:"^1.0.0"`

	// Database (empty DatabaseURL disables the audit log for serve)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP health endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// AuditEnabled reports whether invocations are recorded in Postgres.
func (c *Config) AuditEnabled() bool { return c.DatabaseURL != "" }

// ValidateForServe checks required config when running the actor host and providers.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForDispatch(); err != nil {
		return err
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("%s - HTTP_PORT %d is out of range", logPrefix, c.HTTPPort)
	}
	if c.RunMigrations && !c.AuditEnabled() {
		return fmt.Errorf("%s - RUN_MIGRATIONS requires DATABASE_URL", logPrefix)
	}
	return nil
}

// ValidateForDispatch checks required config for sending invocations.
func (c *Config) ValidateForDispatch() error {
	if c.COMMSURL == "" {
		return fmt.Errorf("%s - COMMS_URL is required", logPrefix)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - REQUEST_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
