// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverBadger   = "badger"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Storage  StorageConfig
	Server   ServerConfig
	Auth     AuthConfig
	Listings ListingsConfig
	Share    ShareConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataPath    string // Base directory for local state (default: ~/Favorites)
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig selects and configures the store adapter.
type StorageConfig struct {
	Driver      string // badger, sqlite, postgres or memory (default: badger)
	Path        string // Database path for badger and sqlite (default: {data}/favorites.{db,sqlite})
	DatabaseURL string // PostgreSQL connection string
	MaxConns    int32  // PostgreSQL pool size (default: pgx default)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	PublicURL      string        // Base URL of share links (default: http://localhost:{port})
	AllowedOrigins []string      // CORS origins (default: *)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 0, the event stream is long-lived)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	RequestTimeout time.Duration // Per-request handler timeout (default: 30s)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	KeyPath       string        // PASETO v4 symmetric key file (default: {data}/auth.key)
	TokenDuration time.Duration // Bearer token lifetime (default: 24h)
}

// ListingsConfig says where listing details come from. ServiceURL wins
// over CatalogFile; with neither, filters see no categories.
type ListingsConfig struct {
	ServiceURL  string
	CatalogFile string
	Timeout     time.Duration // Listings service timeout (default: 5s)
}

// ShareConfig throttles anonymous share-link requests per client address.
type ShareConfig struct {
	RequestsPerMinute int // 0 disables throttling (default: 60)
	Burst             int // default: 20
}

// LoadConfig loads configuration from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("favorites", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for local state")

	// Storage flags
	storageDriver := fs.String("storage", "", "Storage driver: badger, sqlite, postgres, memory (default: badger)")
	storagePath := fs.String("storage-path", "", "Database path for badger or sqlite")
	databaseURL := fs.String("database-url", "", "PostgreSQL connection string")
	maxConns := fs.String("database-max-conns", "", "PostgreSQL pool size")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	publicURL := fs.String("public-url", "", "Base URL of share links")
	allowedOrigins := fs.String("allowed-origins", "", "Comma-separated CORS origins (default: *)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	requestTimeout := fs.String("request-timeout", "", "Per-request handler timeout (default: 30s)")

	// Auth flags
	keyPath := fs.String("auth-key-path", "", "Path to the token key file")
	tokenDuration := fs.String("token-duration", "", "Bearer token lifetime (e.g., 24h)")

	// Listings flags
	listingsURL := fs.String("listings-url", "", "Listings service base URL")
	catalogFile := fs.String("catalog-file", "", "JSON file of listings used instead of the service")

	// Share flags
	shareRPM := fs.String("share-rate", "", "Share-link requests per minute per client, 0 disables (default: 60)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			DataPath:    getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(getConfigValue(*storageDriver, "STORAGE_DRIVER", DriverBadger)),
			Path:        getConfigValue(*storagePath, "STORAGE_PATH", ""),
			DatabaseURL: getConfigValue(*databaseURL, "DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			PublicURL:      getConfigValue(*publicURL, "PUBLIC_URL", ""),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "")),
		},
		Auth: AuthConfig{
			KeyPath: getConfigValue(*keyPath, "AUTH_KEY_PATH", ""),
		},
		Listings: ListingsConfig{
			ServiceURL:  getConfigValue(*listingsURL, "LISTINGS_URL", ""),
			CatalogFile: getConfigValue(*catalogFile, "CATALOG_FILE", ""),
		},
	}

	var err error
	if cfg.Storage.MaxConns, err = getInt32ConfigValue(*maxConns, "DATABASE_MAX_CONNS", 0); err != nil {
		return nil, err
	}
	if cfg.Share.RequestsPerMinute, err = getIntConfigValue(*shareRPM, "SHARE_RATE", 60); err != nil {
		return nil, err
	}
	if cfg.Share.Burst, err = getIntConfigValue("", "SHARE_BURST", 20); err != nil {
		return nil, err
	}

	durations := []struct {
		flagValue, envKey, def string
		dst                    *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*requestTimeout, "SERVER_REQUEST_TIMEOUT", "30s", &cfg.Server.RequestTimeout},
		{*tokenDuration, "TOKEN_DURATION", "24h", &cfg.Auth.TokenDuration},
		{"", "LISTINGS_TIMEOUT", "5s", &cfg.Listings.Timeout},
	}
	for _, d := range durations {
		value := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), value, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:" + cfg.Server.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Storage.Driver {
	case DriverBadger, DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage path cannot be empty after expansion")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid storage driver: %s (must be badger, sqlite, postgres, or memory)", c.Storage.Driver)
	}

	if c.Auth.TokenDuration <= 0 {
		return errors.New("token duration must be positive")
	}
	if c.Share.RequestsPerMinute < 0 || c.Share.Burst < 1 {
		return errors.New("share rate must be >= 0 and share burst >= 1")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandPaths resolves the data directory and the paths derived from it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.App.DataPath, err = expandPath(c.App.DataPath, filepath.Join(homeDir, "Favorites")); err != nil {
		return err
	}

	var defaultStorage string
	switch c.Storage.Driver {
	case DriverBadger:
		defaultStorage = filepath.Join(c.App.DataPath, "favorites.db")
	case DriverSQLite:
		defaultStorage = filepath.Join(c.App.DataPath, "favorites.sqlite")
	}
	if c.Storage.Path, err = expandPath(c.Storage.Path, defaultStorage); err != nil {
		return err
	}

	if c.Auth.KeyPath, err = expandPath(c.Auth.KeyPath, filepath.Join(c.App.DataPath, "auth.key")); err != nil {
		return err
	}

	if c.Listings.CatalogFile, err = expandPath(c.Listings.CatalogFile, ""); err != nil {
		return err
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) (int, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), strValue, err)
	}
	return n, nil
}

func getInt32ConfigValue(flagValue, envKey string, defaultValue int32) (int32, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(strValue, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), strValue, err)
	}
	return int32(n), nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
