package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"ENV", "LOG_LEVEL", "DATA_PATH",
	"STORAGE_DRIVER", "STORAGE_PATH", "DATABASE_URL", "DATABASE_MAX_CONNS",
	"SERVER_PORT", "PUBLIC_URL", "ALLOWED_ORIGINS",
	"SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT", "SERVER_REQUEST_TIMEOUT",
	"AUTH_KEY_PATH", "TOKEN_DURATION",
	"LISTINGS_URL", "CATALOG_FILE", "LISTINGS_TIMEOUT",
	"SHARE_RATE", "SHARE_BURST",
}

// cleanEnv unsets every variable Load reads and points HOME at a temp dir.
// t.Setenv restores the previous values after the test.
func cleanEnv(t *testing.T) string {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func noEnvFile(t *testing.T) string {
	return "-env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{Driver: DriverBadger, Path: "/data/favorites.db"},
		Auth:    AuthConfig{TokenDuration: time.Hour},
		Share:   ShareConfig{RequestsPerMinute: 60, Burst: 20},
	}
}

func TestLoad_Defaults(t *testing.T) {
	home := cleanEnv(t)

	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)

	dataPath := filepath.Join(home, "Favorites")
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, dataPath, cfg.App.DataPath)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, DriverBadger, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(dataPath, "favorites.db"), cfg.Storage.Path)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicURL)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, filepath.Join(dataPath, "auth.key"), cfg.Auth.KeyPath)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, 5*time.Second, cfg.Listings.Timeout)
	assert.Empty(t, cfg.Listings.CatalogFile)
	assert.Equal(t, 60, cfg.Share.RequestsPerMinute)
	assert.Equal(t, 20, cfg.Share.Burst)
}

func TestLoad_Precedence(t *testing.T) {
	cleanEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"# local settings\nSERVER_PORT=7000\nLOG_LEVEL=debug\nSTORAGE_DRIVER=sqlite\nSHARE_RATE=5\n",
	), 0o600))

	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load([]string{"-env-file=" + envFile, "-port=9000"})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port, "flag beats .env")
	assert.Equal(t, "warn", cfg.Logger.Level, "environment beats .env")
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver, ".env beats default")
	assert.Equal(t, 5, cfg.Share.RequestsPerMinute)
	assert.Equal(t, "favorites.sqlite", filepath.Base(cfg.Storage.Path))
}

func TestLoad_Lists(t *testing.T) {
	cleanEnv(t)
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load([]string{noEnvFile(t), "-public-url=https://market.example"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://market.example", cfg.Server.PublicURL)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"duration", "TOKEN_DURATION", "forever"},
		{"int", "SHARE_RATE", "many"},
		{"int32", "DATABASE_MAX_CONNS", "99999999999"},
		{"driver", "STORAGE_DRIVER", "mongo"},
		{"postgres without url", "STORAGE_DRIVER", "postgres"},
		{"environment", "ENV", "test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load([]string{noEnvFile(t)})
			assert.Error(t, err)
		})
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	cleanEnv(t)
	_, err := Load([]string{"-no-such-flag"})
	assert.Error(t, err)
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Storage(t *testing.T) {
	tests := []struct {
		name    string
		storage StorageConfig
		valid   bool
	}{
		{"badger", StorageConfig{Driver: DriverBadger, Path: "/d"}, true},
		{"badger without path", StorageConfig{Driver: DriverBadger}, false},
		{"sqlite", StorageConfig{Driver: DriverSQLite, Path: "/d"}, true},
		{"postgres", StorageConfig{Driver: DriverPostgres, DatabaseURL: "postgres://localhost/fav"}, true},
		{"postgres without url", StorageConfig{Driver: DriverPostgres}, false},
		{"memory", StorageConfig{Driver: DriverMemory}, true},
		{"unknown", StorageConfig{Driver: "bolt", Path: "/d"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Storage = tt.storage

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_ShareAndAuth(t *testing.T) {
	cfg := validConfig()
	cfg.Share.RequestsPerMinute = 0
	assert.NoError(t, cfg.Validate(), "zero disables throttling")

	cfg = validConfig()
	cfg.Share.Burst = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Auth.TokenDuration = 0
	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("~/data", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data"), got)

	got, err = expandPath("/a/b/../c", "")
	require.NoError(t, err)
	assert.Equal(t, "/a/c", got)

	got, err = expandPath("rel", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}
