// Package config loads application configuration from environment variables,
// with optional .env file support for local development.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	App     AppConfig
	Storage StorageConfig
	Blob    BlobConfig
	Report  ReportConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"VENDCORE_APP_NAME" default:"vendcore"`
	Environment string `envconfig:"VENDCORE_APP_ENV" default:"development"`
	Debug       bool   `envconfig:"VENDCORE_APP_DEBUG" default:"false"`
}

// StorageConfig holds record store settings.
type StorageConfig struct {
	Driver     string `envconfig:"VENDCORE_STORAGE_DRIVER" default:"sqlite"` // sqlite or memory
	SQLitePath string `envconfig:"VENDCORE_SQLITE_PATH" default:"vendcore.db"`
}

// BlobConfig holds artifact storage settings. S3-specific variables are
// documented in internal/infra/blob/s3.
type BlobConfig struct {
	Driver string `envconfig:"VENDCORE_BLOB_DRIVER" default:"fs"` // fs, s3, or memory
	FSRoot string `envconfig:"VENDCORE_BLOB_FS_ROOT" default:"./blobdata"`
}

// ReportConfig holds report defaults.
type ReportConfig struct {
	LowStockThreshold  int    `envconfig:"VENDCORE_LOW_STOCK_THRESHOLD" default:"5"`
	MaintenanceDueDays int    `envconfig:"VENDCORE_MAINTENANCE_DUE_DAYS" default:"30"`
	ArtifactPrefix     string `envconfig:"VENDCORE_REPORT_ARTIFACT_PREFIX" default:"reports"`
	ExportWorkers      int    `envconfig:"VENDCORE_EXPORT_WORKERS" default:"1"`
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
