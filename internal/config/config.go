// Package config defines the global configuration structure for the WakeRoute
// service. Configuration is loaded once at process initialization and is
// immutable thereafter, following 12-Factor principles: values come from the
// OS environment, optionally seeded from a .env file for local development.
//
// Any missing required value or invalid format aborts startup (fail fast).
package config

import (
	"time"

	"wakeroute/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of credentials.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the WakeRoute service.
// Sub-components receive only the specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"wakeroute"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server    ServerConfig
	Messaging MessagingConfig
	Providers ProviderConfig
	Planner   PlannerConfig
	Session   SessionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// MessagingConfig holds the messaging platform webhook credentials and the
// reply API location.
type MessagingConfig struct {
	// ChannelSecret signs incoming webhook bodies (HMAC-SHA256).
	ChannelSecret SecretString `envconfig:"CHANNEL_SECRET" validate:"required"`
	// ChannelToken authorizes outbound reply calls.
	ChannelToken SecretString `envconfig:"CHANNEL_ACCESS_TOKEN" validate:"required"`
	// BaseURL of the messaging platform API (overridable for testing).
	BaseURL string `envconfig:"MESSAGING_API_URL" default:"https://api.line.me" validate:"url"`
}

// ProviderConfig holds credentials and endpoints for the external geocoding,
// weather, directions, and transit providers.
type ProviderConfig struct {
	MapsAPIKey    SecretString `envconfig:"MAPS_API_KEY" validate:"required"`
	WeatherAPIKey SecretString `envconfig:"WEATHER_API_KEY" validate:"required"`

	// Transit realtime credentials (client-credentials grant). Optional: the
	// bus arrival command degrades to an unavailable reply without them.
	TransitClientID     string       `envconfig:"TDX_CLIENT_ID"`
	TransitClientSecret SecretString `envconfig:"TDX_CLIENT_SECRET"`

	// Base URLs, overridable for testing against httptest servers.
	GeocodeBaseURL    string `envconfig:"GEOCODE_API_URL" default:"https://maps.googleapis.com" validate:"url"`
	DirectionsBaseURL string `envconfig:"DIRECTIONS_API_URL" default:"https://maps.googleapis.com" validate:"url"`
	WeatherBaseURL    string `envconfig:"WEATHER_API_URL" default:"https://api.openweathermap.org" validate:"url"`
	TransitBaseURL    string `envconfig:"TRANSIT_API_URL" default:"https://tdx.transportdata.tw" validate:"url"`

	// Timeout bounds every single outbound provider call. A call exceeding it
	// is downgraded to an unavailable result, never a hang.
	Timeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`
}

// PlannerConfig holds trip-planning behavior settings.
type PlannerConfig struct {
	// Timezone interprets bare and date+time specs ("today at 08:00").
	Timezone string `envconfig:"PLANNER_TIMEZONE" default:"Asia/Taipei" validate:"required"`

	// Fallback coordinate used when geocoding the destination fails; the
	// recommendation proceeds best-effort instead of aborting.
	FallbackLat float64 `envconfig:"FALLBACK_LAT" default:"25.0478"`
	FallbackLon float64 `envconfig:"FALLBACK_LON" default:"121.5319"`

	// RainDemotionThreshold is the precipitation probability (percent) at or
	// above which cycling is demoted from best-mode selection.
	RainDemotionThreshold int `envconfig:"RAIN_DEMOTION_THRESHOLD" default:"30" validate:"min=0,max=100"`
}

// SessionConfig controls the lifecycle of per-conversation itinerary handles.
type SessionConfig struct {
	IdleTimeout   time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrTimezone indicates the configured planner timezone is unknown.
	ErrTimezone ConfigErrorType = "TIMEZONE_INVALID"
)
