package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv populates the minimal environment for a successful load.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHANNEL_SECRET", "secret")
	t.Setenv("CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("MAPS_API_KEY", "maps-key")
	t.Setenv("WEATHER_API_KEY", "weather-key")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "wakeroute", cfg.Service)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://api.line.me", cfg.Messaging.BaseURL)
	assert.Equal(t, "Asia/Taipei", cfg.Planner.Timezone)
	assert.InDelta(t, 25.0478, cfg.Planner.FallbackLat, 1e-9)
	assert.InDelta(t, 121.5319, cfg.Planner.FallbackLon, 1e-9)
	assert.Equal(t, 30, cfg.Planner.RainDemotionThreshold)
	assert.Equal(t, 10*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
}

func TestLoadConfig_SecretsAreRedacted(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "***REDACTED***", cfg.Messaging.ChannelSecret.String())
	assert.Equal(t, "secret", cfg.Messaging.ChannelSecret.Unmask())
	assert.Equal(t, "maps-key", cfg.Providers.MapsAPIKey.Unmask())
}

func TestLoadConfig_MissingRequiredValue(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHANNEL_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrValidation, cfgErr.Type)
}

func TestLoadConfig_InvalidEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "sandbox")

	_, err := LoadConfig()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrValidation, cfgErr.Type)
}

func TestLoadConfig_InvalidThreshold(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RAIN_DEMOTION_THRESHOLD", "150")

	_, err := LoadConfig()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrValidation, cfgErr.Type)
}

func TestLoadConfig_UnknownTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PLANNER_TIMEZONE", "Mars/Olympus")

	_, err := LoadConfig()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrTimezone, cfgErr.Type)
}

func TestPlannerConfig_Location(t *testing.T) {
	loc, err := PlannerConfig{Timezone: "Asia/Taipei"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Taipei", loc.String())
}
