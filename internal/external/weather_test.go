package external

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wakeroute/internal/types"
)

func TestWeatherClient_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.NotEmpty(t, r.URL.Query().Get("lat"))
		assert.NotEmpty(t, r.URL.Query().Get("lon"))

		fmt.Fprint(w, `{
			"weather": [{"description": "light rain"}],
			"main": {"temp": 24.5}
		}`)
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.Client(), WeatherClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	current, err := c.Current(context.Background(), types.Coordinate{Lat: 25.0478, Lon: 121.517})
	require.NoError(t, err)
	assert.Equal(t, "light rain", current.Description)
	assert.InDelta(t, 24.5, current.TemperatureC, 1e-9)
}

func TestWeatherClient_ForecastNear_PicksNearestEntry(t *testing.T) {
	target := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	entry := func(offset time.Duration, pop float64, desc string) string {
		return fmt.Sprintf(`{"dt": %d, "pop": %g, "weather": [{"description": %q}]}`,
			target.Add(offset).Unix(), pop, desc)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/forecast", r.URL.Path)
		fmt.Fprintf(w, `{"list": [%s, %s, %s]}`,
			entry(-5*time.Hour, 0.1, "clear sky"),
			entry(-30*time.Minute, 0.4, "light rain"),
			entry(3*time.Hour, 0.9, "heavy rain"),
		)
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.Client(), WeatherClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	sample, err := c.ForecastNear(context.Background(), types.Coordinate{Lat: 25, Lon: 121.5}, target)
	require.NoError(t, err)
	assert.Equal(t, "light rain", sample.Description)
	assert.Equal(t, 40, sample.RainProbability)
}

func TestWeatherClient_ForecastNear_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"list": []}`)
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.Client(), WeatherClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	_, err := c.ForecastNear(context.Background(), types.Coordinate{}, time.Now())
	require.Error(t, err)
}
