// Package config provides application configuration management with
// support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davidMcneil/glance/internal/validation"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Catalog  CatalogConfig
	Extract  ExtractConfig
	Import   ImportConfig
	Organize OrganizeConfig
	Watch    WatchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `json:"environment" validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `json:"log_level" validate:"required,oneof=debug info warn error"`
}

// CatalogConfig holds catalog storage configuration.
type CatalogConfig struct {
	// Path is the catalog database file.
	Path string `json:"db" validate:"required"`
}

// ExtractConfig holds the per-file extraction options applied during
// indexing passes.
type ExtractConfig struct {
	Hash                       bool   `json:"hash"`
	FilterByMedia              bool   `json:"filter_by_media"`
	MetadataFallbackForCreated bool   `json:"metadata_fallback_for_created"`
	CalculateNearestCity       bool   `json:"calculate_nearest_city"`
	UseExiftool                bool   `json:"use_exiftool"`
	ExiftoolPath               string `json:"exiftool_path"`
}

// ImportConfig holds cross-catalog import configuration.
type ImportConfig struct {
	DryRun bool `json:"dry_run"`
}

// OrganizeConfig holds naming standardization configuration.
type OrganizeConfig struct {
	// Daily selects day-granular folders instead of monthly ones.
	Daily bool `json:"daily"`
}

// WatchConfig holds watch mode configuration.
type WatchConfig struct {
	// SettleDelay is how long the tree must stay quiet before a pass runs.
	SettleDelay time.Duration `json:"settle_delay" validate:"gte=0"`
}

// Load builds configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// Flag parsing stops at the first non-flag argument; the remaining
// arguments (command and positionals) are returned for the caller to
// dispatch.
func Load(args []string) (*Config, []string, error) {
	fs := flag.NewFlagSet("glance", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dbPath := fs.String("db", "", "Catalog database file (default: glance.db)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	hash := fs.String("hash", "", "Enable content hashing and dedup (default: true)")
	filterByMedia := fs.String("filter-by-media", "", "Drop non-image files during indexing (default: true)")
	createdFallback := fs.String("created-fallback", "", "Fall back to modification time for capture time (default: true)")
	nearestCity := fs.String("nearest-city", "", "Resolve GPS coordinates to a place name (default: false)")
	useExiftool := fs.String("use-exiftool", "", "Use the exiftool subprocess as a capture-time fallback (default: false)")
	exiftoolPath := fs.String("exiftool-path", "", "Path to the exiftool binary (default: exiftool)")

	dryRun := fs.String("dry-run", "", "Count without mutating during import (default: false)")
	daily := fs.String("daily", "", "Organize into day-granular folders (default: false)")
	settleDelay := fs.String("settle-delay", "", "Quiet period before a watch pass runs (default: 2s)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Catalog: CatalogConfig{
			Path: getConfigValue(*dbPath, "GLANCE_DB", "glance.db"),
		},
		Extract: ExtractConfig{
			Hash:                       getBoolConfigValue(*hash, "GLANCE_HASH", true),
			FilterByMedia:              getBoolConfigValue(*filterByMedia, "GLANCE_FILTER_BY_MEDIA", true),
			MetadataFallbackForCreated: getBoolConfigValue(*createdFallback, "GLANCE_CREATED_FALLBACK", true),
			CalculateNearestCity:       getBoolConfigValue(*nearestCity, "GLANCE_NEAREST_CITY", false),
			UseExiftool:                getBoolConfigValue(*useExiftool, "GLANCE_USE_EXIFTOOL", false),
			ExiftoolPath:               getConfigValue(*exiftoolPath, "GLANCE_EXIFTOOL_PATH", "exiftool"),
		},
		Import: ImportConfig{
			DryRun: getBoolConfigValue(*dryRun, "GLANCE_DRY_RUN", false),
		},
		Organize: OrganizeConfig{
			Daily: getBoolConfigValue(*daily, "GLANCE_DAILY", false),
		},
	}

	settleStr := getConfigValue(*settleDelay, "GLANCE_SETTLE_DELAY", "2s")
	settle, err := time.ParseDuration(settleStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid settle delay %q: %w", settleStr, err)
	}
	cfg.Watch.SettleDelay = settle

	if err := cfg.expandCatalogPath(); err != nil {
		return nil, nil, fmt.Errorf("invalid catalog path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, fs.Args(), nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	c.Logger.Level = strings.ToLower(c.Logger.Level)
	return validation.New().Validate(c)
}

// expandCatalogPath expands ~ and makes the catalog path absolute.
func (c *Config) expandCatalogPath() error {
	expanded, err := expandPath(c.Catalog.Path, "")
	if err != nil {
		return err
	}
	c.Catalog.Path = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns a value with flag > env > default precedence.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)

		// Existing environment variables win over the .env file.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}
