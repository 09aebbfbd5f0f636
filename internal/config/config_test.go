package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

const testKey = `{"type":"service_account","project_id":"p"}`

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FIREBASE_KEY", testKey)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.RootDir != "enrollment_data" {
		t.Errorf("RootDir = %q", cfg.RootDir)
	}
	if cfg.InstitutionDomain != "nmamit.in" {
		t.Errorf("InstitutionDomain = %q", cfg.InstitutionDomain)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.StagingTTL != time.Hour {
		t.Errorf("StagingTTL = %v", cfg.StagingTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if got, want := cfg.Ledger(), filepath.Join("enrollment_data", ".ledger.db"); got != want {
		t.Errorf("Ledger() = %q, want %q", got, want)
	}
	if cfg.FirebaseKey != testKey {
		t.Errorf("FirebaseKey not loaded")
	}
	if _, ok := os.LookupEnv("FIREBASE_KEY"); ok {
		t.Error("FIREBASE_KEY still set in the environment after Load")
	}
}

func TestLoadRequiresFirebaseKey(t *testing.T) {
	t.Setenv("FIREBASE_KEY", "placeholder")
	os.Unsetenv("FIREBASE_KEY") //nolint:errcheck

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without FIREBASE_KEY")
	}

	t.Setenv("FIREBASE_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded with empty FIREBASE_KEY")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FIREBASE_KEY", testKey)
	t.Setenv("ENROLL_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ENROLL_LOG_LEVEL", "debug")
	t.Setenv("ENROLL_MAX_CONCURRENT", "0")
	t.Setenv("ENROLL_LEDGER_PATH", "/var/lib/enroll/ledger.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
	if cfg.MaxConcurrentEnrollments != 64 {
		t.Errorf("MaxConcurrentEnrollments = %d, want fallback 64", cfg.MaxConcurrentEnrollments)
	}
	if cfg.Ledger() != "/var/lib/enroll/ledger.db" {
		t.Errorf("Ledger() = %q", cfg.Ledger())
	}
}

func TestBindFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FIREBASE_KEY", testKey)
	t.Setenv("ENROLL_PORT", "7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	BindFlags(fs, cfg)
	if err := fs.Parse([]string{"--root", "/srv/faces", "--require-image"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != "7000" {
		t.Errorf("Port = %q, want env value 7000", cfg.Port)
	}
	if cfg.RootDir != "/srv/faces" || !cfg.RequireImage {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Ledger() != filepath.Join("/srv/faces", ".ledger.db") {
		t.Errorf("Ledger() = %q", cfg.Ledger())
	}
}
