package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultOutputDir is the default directory for emitted reports.
	DefaultOutputDir = "./reports"

	// DefaultDatabaseDriver is the default trend store driver.
	DefaultDatabaseDriver = "sqlite"

	// DefaultDatabasePath is the default SQLite database location.
	DefaultDatabasePath = "./reportoor.db"

	// DefaultTrendsDays is the default analysis window in days.
	DefaultTrendsDays = 30

	// DefaultFlakyMinRuns is the default minimum run count before a
	// test can qualify as flaky.
	DefaultFlakyMinRuns = 5
)

// Config is the root configuration for reportoor.
type Config struct {
	Global   GlobalConfig   `yaml:"global"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Database DatabaseConfig `yaml:"database"`
	Upload   *UploadConfig  `yaml:"upload,omitempty"`
	API      *APIConfig     `yaml:"api,omitempty"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// IngestConfig contains ingestion pipeline settings.
type IngestConfig struct {
	OutputDir    string           `yaml:"output_dir"`
	ResultsOwner string           `yaml:"results_owner,omitempty"`
	StoreResults *bool            `yaml:"store_results,omitempty"`
	Inputs       SuiteInputConfig `yaml:"inputs,omitempty"`
}

// SuiteInputConfig maps suite report files to their default locations.
// CLI flags take precedence over these paths.
type SuiteInputConfig struct {
	E2E         string `yaml:"e2e,omitempty"`
	Integration string `yaml:"integration,omitempty"`
	Visual      string `yaml:"visual,omitempty"`
	Performance string `yaml:"performance,omitempty"`
}

// DatabaseConfig contains trend store connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// UploadConfig contains report upload settings.
type UploadConfig struct {
	S3 *S3UploadConfig `yaml:"s3,omitempty"`
}

// S3UploadConfig contains S3-compatible storage settings for report
// uploads.
type S3UploadConfig struct {
	Enabled         bool   `yaml:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	StorageClass    string `yaml:"storage_class,omitempty"`
	ACL             string `yaml:"acl,omitempty"`
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when
// no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Ingest.OutputDir == "" {
		c.Ingest.OutputDir = DefaultOutputDir
	}

	if c.Ingest.StoreResults == nil {
		store := true
		c.Ingest.StoreResults = &store
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDatabaseDriver
	}

	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultDatabasePath
	}

	if c.API != nil {
		c.API.applyDefaults()
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Upload != nil && c.Upload.S3 != nil && c.Upload.S3.Enabled {
		if c.Upload.S3.Bucket == "" {
			return fmt.Errorf("upload.s3.bucket is required when enabled")
		}
	}

	if c.Ingest.OutputDir != "" {
		dir := filepath.Dir(c.Ingest.OutputDir)
		if dir != "." && dir != ".." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory parent %q does not exist", dir)
			}
		}
	}

	if c.API != nil {
		if err := c.API.Validate(); err != nil {
			return err
		}
	}

	return nil
}
