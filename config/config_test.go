package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfigForTest()
	t.Cleanup(ResetConfigForTest)

	t.Setenv("APPENV", "test")
	t.Setenv("APPNAME", "carewell-test")
	t.Setenv("GEOCODE_PROVIDER", "")
	t.Setenv("SEED_SAMPLE_DATA", "")

	cfg := LoadConfig()
	assert.Equal(t, "test", cfg.AppEnv)
	assert.Equal(t, "carewell-test", cfg.AppName)
	assert.Equal(t, "nominatim", cfg.DefaultGeocodeProvider)
	assert.False(t, cfg.SeedSampleData)
}

func TestLoadConfig_ReadsGeocodeSettings(t *testing.T) {
	ResetConfigForTest()
	t.Cleanup(ResetConfigForTest)

	t.Setenv("APPENV", "test")
	t.Setenv("GEOCODE_PROVIDER", "google")
	t.Setenv("GOOGLE_MAPS_API_KEY", "test-key")
	t.Setenv("SEED_SAMPLE_DATA", "true")

	cfg := LoadConfig()
	assert.Equal(t, "google", cfg.DefaultGeocodeProvider)
	assert.Equal(t, "test-key", cfg.GoogleMapsAPIKey)
	assert.True(t, cfg.SeedSampleData)
}

func TestLoadConfig_IsSingleton(t *testing.T) {
	ResetConfigForTest()
	t.Cleanup(ResetConfigForTest)

	t.Setenv("APPENV", "test")
	t.Setenv("APPNAME", "first")
	first := LoadConfig()

	t.Setenv("APPNAME", "second")
	again := LoadConfig()

	assert.Same(t, first, again)
	assert.Equal(t, "first", again.AppName)
}

func TestConnectMySQL_TestEnvironmentUsesSQLite(t *testing.T) {
	ResetConfigForTest()
	t.Cleanup(ResetConfigForTest)

	t.Setenv("APPENV", "test")

	db, err := ConnectMySQL()
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", db.Dialector.Name())

	// Each call opens an isolated database.
	other, err := ConnectMySQL()
	assert.NoError(t, err)
	assert.NotSame(t, db, other)
}
