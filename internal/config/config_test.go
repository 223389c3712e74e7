package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 0.25, cfg.Server.MaxBBoxDegrees, 0.001)
	assert.Equal(t, "https://api.ratings.food.gov.uk", cfg.FHRS.BaseURL)
	assert.Equal(t, 60, cfg.FHRS.TimeoutSecs)
	assert.Equal(t, 3, cfg.FHRS.MaxRetries)
	assert.InDelta(t, 2.0, cfg.FHRS.RequestsPerSecond, 0.001)
	assert.Equal(t, 2, cfg.OSM.Workers)
	assert.Equal(t, "LAD21", cfg.Boundary.FieldPrefix)
	assert.InDelta(t, 250, cfg.Reconcile.DistantMeters, 0.001)
	assert.InDelta(t, 250, cfg.Suggest.RadiusMeters, 0.001)
	assert.Equal(t, 5, cfg.Suggest.Limit)
	assert.Equal(t, "stats.db", cfg.Store.StatsDB)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	raw, err := yaml.Marshal(map[string]any{
		"store":   map[string]any{"database_url": "postgres://localhost/fhrs"},
		"log":     map[string]any{"level": "debug", "format": "console"},
		"server":  map[string]any{"port": 9090},
		"suggest": map[string]any{"radius_meters": 500},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), raw, 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/fhrs", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 500, cfg.Suggest.RadiusMeters, 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Suggest.Limit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("FHRS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("FHRS_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

// validDefaults returns a Config with the defaults validation expects.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.DatabaseURL = "postgres://localhost/fhrs"
	cfg.Store.StatsDB = "stats.db"
	cfg.Server.Port = 8080
	cfg.Server.MaxBBoxDegrees = 0.25
	cfg.Suggest.RadiusMeters = 250
	cfg.Suggest.Limit = 5
	cfg.FHRS.BaseURL = "https://api.ratings.food.gov.uk"
	return cfg
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_MissingDB(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateImportOSM(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("import-osm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "osm.pbf_path is required")

	cfg.OSM.PBFPath = "/data/england.osm.pbf"
	assert.NoError(t, cfg.Validate("import-osm"))
}

func TestValidateBoundaries(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("boundaries")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boundary.shapefile_path is required")

	cfg.Boundary.ShapefilePath = "/data/districts.shp"
	assert.NoError(t, cfg.Validate("boundaries"))
}

func TestValidateImportNames(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("import-names")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gazetteer.dir is required")

	cfg.Gazetteer.Dir = "/data/opname_csv_gb"
	assert.NoError(t, cfg.Validate("import-names"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
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
