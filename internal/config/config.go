// Package config handles loading and parsing of FormDrop configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for FormDrop.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upload        UploadConfig        `yaml:"upload"`
	Storage       StorageConfig       `yaml:"storage"`
	History       HistoryConfig       `yaml:"history"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ShutdownTimeout is the graceful shutdown window in seconds.
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// UploadConfig holds the ingestion policy knobs.
type UploadConfig struct {
	// MaxFileSize is the per-file ceiling in bytes. A part whose body exceeds
	// it is rejected individually; the request keeps processing.
	MaxFileSize int64 `yaml:"max_file_size"`
	// MaxRequestSize is the total-request ceiling in bytes. Exceeding it
	// aborts accumulation with a 413 before any parsing happens.
	MaxRequestSize int64 `yaml:"max_request_size"`
	// AllowedTypes is the allow-list of sniffed MIME types files must match.
	// The client-declared Content-Type header is never consulted.
	AllowedTypes []string `yaml:"allowed_types"`
}

// StorageConfig holds uploads directory settings.
type StorageConfig struct {
	// UploadsDir is the flat directory uploaded files are persisted to.
	UploadsDir string `yaml:"uploads_dir"`
}

// HistoryConfig holds upload ledger settings.
type HistoryConfig struct {
	// Engine is the ledger backend engine: "sqlite" or "memory".
	Engine string       `yaml:"engine"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig holds SQLite-specific ledger settings.
type SQLiteConfig struct {
	// Path is the filesystem path for the SQLite database file. It must not
	// point inside the uploads directory, which stays a flat file namespace.
	Path string `yaml:"path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: text or json.
	Format string `yaml:"format"`
}

// ObservabilityConfig holds metrics settings.
type ObservabilityConfig struct {
	// Metrics controls whether Prometheus collectors are registered and the
	// /metrics endpoint is served.
	Metrics bool `yaml:"metrics"`
}

// Load reads a YAML configuration file from the given path and returns
// a parsed Config. It applies sensible defaults for unset values.
// If the primary path fails, it falls back to formdrop.example.yaml
// in the same directory or parent directory.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// Try fallback paths
		fallbackPaths := []string{
			filepath.Join(filepath.Dir(path), "formdrop.example.yaml"),
			filepath.Join(filepath.Dir(path), "..", "formdrop.example.yaml"),
		}
		var fallbackErr error
		for _, fp := range fallbackPaths {
			data, fallbackErr = os.ReadFile(fp)
			if fallbackErr == nil {
				break
			}
		}
		if fallbackErr != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for empty fields that YAML didn't set
	applyDefaults(cfg)

	return cfg, nil
}

// DefaultAllowedTypes is the image allow-list applied when the config file
// does not specify one.
var DefaultAllowedTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/bmp",
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30,
		},
		Upload: UploadConfig{
			MaxFileSize:    5 << 20,  // 5 MiB per file
			MaxRequestSize: 32 << 20, // 32 MiB per request
			AllowedTypes:   append([]string(nil), DefaultAllowedTypes...),
		},
		Storage: StorageConfig{
			UploadsDir: "./data/uploads",
		},
		History: HistoryConfig{
			Engine: "sqlite",
			SQLite: SQLiteConfig{
				Path: "./data/history.db",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: true,
		},
	}
}

// applyDefaults fills in any fields that are still at their zero value
// after YAML unmarshaling.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30
	}
	if cfg.Upload.MaxFileSize == 0 {
		cfg.Upload.MaxFileSize = 5 << 20
	}
	if cfg.Upload.MaxRequestSize == 0 {
		cfg.Upload.MaxRequestSize = 32 << 20
	}
	if len(cfg.Upload.AllowedTypes) == 0 {
		cfg.Upload.AllowedTypes = append([]string(nil), DefaultAllowedTypes...)
	}
	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = "./data/uploads"
	}
	if cfg.History.Engine == "" {
		cfg.History.Engine = "sqlite"
	}
	if cfg.History.SQLite.Path == "" {
		cfg.History.SQLite.Path = "./data/history.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
