package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

// Config holds all runtime configuration for the enrollment service.
type Config struct {
	Port    string `env:"ENROLL_PORT"    envDefault:"5000"`
	RootDir string `env:"ENROLL_ROOT"    envDefault:"enrollment_data"`

	// LedgerPath defaults to <RootDir>/.ledger.db when empty.
	LedgerPath string `env:"ENROLL_LEDGER_PATH"`

	InstitutionDomain string `env:"ENROLL_INSTITUTION_DOMAIN" envDefault:"nmamit.in"`

	// FirebaseKey is the service-account JSON blob. It is removed from the
	// process environment once read.
	FirebaseKey string `env:"FIREBASE_KEY,required,notEmpty,unset"`

	CORSOrigins []string `env:"ENROLL_CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	MaxBodyBytes             int64 `env:"ENROLL_MAX_BODY_BYTES"     envDefault:"33554432"`
	MaxConcurrentEnrollments int   `env:"ENROLL_MAX_CONCURRENT"     envDefault:"64"`
	RequireImage             bool  `env:"ENROLL_REQUIRE_IMAGE"      envDefault:"false"`
	MinFreeBytes             int64 `env:"ENROLL_MIN_FREE_BYTES"     envDefault:"536870912"`

	// ServiceToken guards /metrics and /healthz/ready. Empty disables the check.
	ServiceToken string `env:"ENROLL_SERVICE_TOKEN,unset"`

	StagingTTL      time.Duration `env:"ENROLL_STAGING_TTL"       envDefault:"1h"`
	CleanupInterval time.Duration `env:"ENROLL_CLEANUP_INTERVAL"  envDefault:"10m"`

	OTELEnabled  bool   `env:"ENROLL_OTEL_ENABLED"  envDefault:"true"`
	OTELEndpoint string `env:"ENROLL_OTEL_ENDPOINT"`

	LogLevel slog.Level `env:"ENROLL_LOG_LEVEL" envDefault:"INFO"`
}

// Load reads the configuration from the environment.
// A missing FIREBASE_KEY is an error: the service cannot authenticate anyone.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// BindFlags registers command-line overrides for the settings operators
// most often change per invocation. Flag defaults are the values already
// loaded into cfg, so unset flags leave the environment's choice in place.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.RootDir, "root", cfg.RootDir, "enrollment data root directory")
	fs.StringVar(&cfg.LedgerPath, "ledger", cfg.LedgerPath, "enrollment ledger database path")
	fs.StringVar(&cfg.InstitutionDomain, "domain", cfg.InstitutionDomain, "institution email domain")
	fs.BoolVar(&cfg.RequireImage, "require-image", cfg.RequireImage, "reject payloads that are not images")
}

// Ledger returns the ledger database path, defaulting to a file under the
// storage root.
func (c *Config) Ledger() string {
	if c.LedgerPath != "" {
		return c.LedgerPath
	}
	return filepath.Join(c.RootDir, ".ledger.db")
}

func (c *Config) normalize() {
	if c.MaxConcurrentEnrollments <= 0 {
		c.MaxConcurrentEnrollments = 64
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 32 << 20
	}
}
