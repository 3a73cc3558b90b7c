package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "rankgrid.db", cfg.Store.Path)
	assert.Equal(t, 50, cfg.DataForSEO.Depth)
	assert.Equal(t, "desktop", cfg.DataForSEO.Device)
	assert.Equal(t, "en", cfg.DataForSEO.LanguageCode)
	assert.InDelta(t, 12, cfg.DataForSEO.RatePerSec, 0.001)
	assert.Equal(t, 5, cfg.Grid.Size)
	assert.InDelta(t, 804.672, cfg.Grid.SpacingMeters, 0.001)
	assert.Equal(t, "15z", cfg.Grid.Zoom)
	assert.Equal(t, 2200, cfg.Poll.IntervalMS)
	assert.Equal(t, 2500, cfg.Poll.ErrorIntervalMS)
	assert.Equal(t, 0, cfg.Poll.MaxAttempts)
	assert.Equal(t, 8, cfg.Poll.Concurrency)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/rankgrid
grid:
  size: 7
  spacing_meters: 400
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/rankgrid", cfg.Store.DatabaseURL)
	assert.Equal(t, 7, cfg.Grid.Size)
	assert.InDelta(t, 400, cfg.Grid.SpacingMeters, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 2200, cfg.Poll.IntervalMS)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
log:
  level: debug
grid:
  size: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RANKGRID_LOG_LEVEL", "warn")
	t.Setenv("RANKGRID_GRID_SIZE", "9")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 9, cfg.Grid.Size)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("RANKGRID_DATAFORSEO_LOGIN", "login@example.com")
	t.Setenv("RANKGRID_DATAFORSEO_PASSWORD", "secret")
	t.Setenv("RANKGRID_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "login@example.com", cfg.DataForSEO.Login)
	assert.Equal(t, "secret", cfg.DataForSEO.Password)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Store: StoreConfig{Driver: "sqlite", Path: "rankgrid.db"},
		DataForSEO: DataForSEOConfig{
			Login:    "login@example.com",
			Password: "secret",
		},
		Places: PlacesConfig{Key: "places-key"},
		Server: ServerConfig{Port: 8080},
	}
}

func TestValidateRun_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_MissingCredentials(t *testing.T) {
	cfg := validDefaults()
	cfg.DataForSEO.Login = ""
	cfg.DataForSEO.Password = ""

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataforseo.login")
	assert.Contains(t, err.Error(), "dataforseo.password")
}

func TestValidateResolve_MissingKey(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("resolve"))

	cfg.Places.Key = ""
	err := cfg.Validate("resolve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "places.key")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate("serve"))
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("store"))

	cfg.Store = StoreConfig{Driver: "postgres"}
	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")

	cfg.Store = StoreConfig{Driver: "redis"}
	assert.Error(t, cfg.Validate("store"))

	cfg.Store = StoreConfig{Driver: "sqlite"}
	err = cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("enrichment")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown validation mode")
}
