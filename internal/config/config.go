package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultMaxBodySize int64 = 1 * 1024 * 1024 // 1MB
	DefaultConfigPath        = "config.yaml"
)

// DataConfig holds the locations of the file-backed stores.
type DataConfig struct {
	ReviewsDir    string `yaml:"reviews_dir"`    // per-movie CSV + index pairs
	MoviesFile    string `yaml:"movies_file"`    // JSON movie catalog
	BookmarksFile string `yaml:"bookmarks_file"` // JSON bookmark store
}

// PaginationConfig holds review listing page-size policy.
type PaginationConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// AuditConfig holds configuration for the review operation audit log.
type AuditConfig struct {
	Driver  string        `yaml:"driver"`  // sqlite, or empty to disable
	DSN     string        `yaml:"dsn"`     // database path / connection string
	Timeout time.Duration `yaml:"timeout"` // per-operation timeout (default: 5s)
}

// Config holds the configuration for the movie review service
type Config struct {
	Log struct {
		Level    string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR
		Format   string `yaml:"format"` // text, json
		Output   string `yaml:"output"` // stdout, stderr, /path/to/file
		Rotation struct {
			MaxSize    int  `yaml:"max_size"`    // Megabytes
			MaxBackups int  `yaml:"max_backups"` // Number of old files to keep
			MaxAge     int  `yaml:"max_age"`     // Days to keep
			Compress   bool `yaml:"compress"`
		} `yaml:"rotation"`
	} `yaml:"log"`

	Server struct {
		Port             int           `yaml:"port"`
		ConcurrencyLimit int           `yaml:"concurrency_limit"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxBodySize      int64         `yaml:"max_body_size"`
	} `yaml:"server"`

	Data DataConfig `yaml:"data"`

	Pagination PaginationConfig `yaml:"pagination"`

	Audit AuditConfig `yaml:"audit"`
}

// GetLogLevel returns the slog.Level based on Log.Level string
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from a .env file, a YAML file and
// environment variables, in increasing priority.
func LoadConfig() *Config {
	// Best effort; the service runs fine without a .env file.
	_ = godotenv.Load()

	cfg := &Config{}

	// Set defaults before loading
	cfg.Log.Level = "INFO"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"
	cfg.Log.Rotation.MaxSize = 100
	cfg.Log.Rotation.MaxBackups = 10
	cfg.Log.Rotation.MaxAge = 7
	cfg.Log.Rotation.Compress = true

	cfg.Server.Port = 8080
	cfg.Server.ConcurrencyLimit = 64
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.MaxBodySize = DefaultMaxBodySize

	cfg.Data.ReviewsDir = "data/movies"
	cfg.Data.MoviesFile = "data/movies.json"
	cfg.Data.BookmarksFile = "data/bookmarks.json"

	cfg.Pagination.DefaultLimit = 50
	cfg.Pagination.MaxLimit = 200

	cfg.Audit.Driver = "sqlite"
	cfg.Audit.DSN = "data/audit.db"
	cfg.Audit.Timeout = 5 * time.Second

	// Try to load from YAML
	configPath := getEnv("CONFIG_PATH", DefaultConfigPath)
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Error("unmarshal config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", configPath)
	} else {
		if !os.IsNotExist(err) {
			slog.Error("read config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config not found, using defaults", "path", configPath)
	}

	// Environment overrides for deployment-specific items
	if envPort := getEnvInt("PORT", 0); envPort != 0 {
		cfg.Server.Port = envPort
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		cfg.Log.Output = v
	}
	if v := os.Getenv("MOVIE_DATA_PATH"); v != "" {
		cfg.Data.ReviewsDir = v
	}
	if v := os.Getenv("MOVIES_JSON_PATH"); v != "" {
		cfg.Data.MoviesFile = v
	}
	if v := os.Getenv("BOOKMARKS_PATH"); v != "" {
		cfg.Data.BookmarksFile = v
	}
	if v := os.Getenv("AUDIT_DRIVER"); v != "" {
		cfg.Audit.Driver = v
	}
	if v := os.Getenv("AUDIT_DSN"); v != "" {
		cfg.Audit.DSN = v
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}
	if c.Data.ReviewsDir == "" {
		errs = append(errs, "data.reviews_dir is required")
	}
	if c.Pagination.DefaultLimit < 1 {
		errs = append(errs, fmt.Sprintf("invalid pagination.default_limit: %d", c.Pagination.DefaultLimit))
	}
	if c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		errs = append(errs, "pagination.max_limit must be >= pagination.default_limit")
	}
	if c.Audit.Driver != "" && c.Audit.Driver != "sqlite" {
		errs = append(errs, fmt.Sprintf("unknown audit driver: %s", c.Audit.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
