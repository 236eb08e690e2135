package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wakeroute/internal/types"
)

// WeatherClientConfig holds the configuration for creating a WeatherClient.
type WeatherClientConfig struct {
	APIKey  string
	BaseURL string // override for testing
	Logger  *slog.Logger
}

// WeatherClient queries the OpenWeather REST API for current conditions and
// for the forecast entry nearest a target timestamp.
type WeatherClient struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewWeatherClient creates a WeatherClient routed through a BaseClient.
func NewWeatherClient(httpClient *http.Client, cfg WeatherClientConfig) *WeatherClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org"
	}
	return &WeatherClient{
		base:    NewBaseClient(httpClient, "weather", types.ErrCodeUpstreamWeather, DefaultRetryPolicy()),
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

type currentResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

type forecastResponse struct {
	List []struct {
		Dt      int64   `json:"dt"`
		Pop     float64 `json:"pop"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// Current returns the present conditions at a coordinate.
func (c *WeatherClient) Current(ctx context.Context, coord types.Coordinate) (types.CurrentConditions, error) {
	var payload currentResponse
	if err := c.get(ctx, "/data/2.5/weather", coord, &payload); err != nil {
		return types.CurrentConditions{}, err
	}
	if len(payload.Weather) == 0 {
		return types.CurrentConditions{}, types.NewAppError(types.ErrCodeUpstreamWeather,
			"weather response carried no conditions", nil)
	}
	return types.CurrentConditions{
		Description:  payload.Weather[0].Description,
		TemperatureC: payload.Main.Temp,
	}, nil
}

// ForecastNear returns the forecast entry whose timestamp is closest
// (absolute difference) to target. The sample may be stale by up to the
// provider's sampling interval.
func (c *WeatherClient) ForecastNear(ctx context.Context, coord types.Coordinate, target time.Time) (types.ForecastSample, error) {
	var payload forecastResponse
	if err := c.get(ctx, "/data/2.5/forecast", coord, &payload); err != nil {
		return types.ForecastSample{}, err
	}
	if len(payload.List) == 0 {
		return types.ForecastSample{}, types.NewAppError(types.ErrCodeUpstreamWeather,
			"forecast response carried no entries", nil)
	}

	nearest := payload.List[0]
	best := math.Abs(target.Sub(time.Unix(nearest.Dt, 0)).Seconds())
	for _, entry := range payload.List[1:] {
		diff := math.Abs(target.Sub(time.Unix(entry.Dt, 0)).Seconds())
		if diff < best {
			best = diff
			nearest = entry
		}
	}

	sample := types.ForecastSample{
		RainProbability: int(nearest.Pop * 100),
	}
	if len(nearest.Weather) > 0 {
		sample.Description = nearest.Weather[0].Description
	}
	return sample, nil
}

func (c *WeatherClient) get(ctx context.Context, path string, coord types.Coordinate, dst any) error {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to build weather request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(types.ErrCodeUpstreamWeather,
			fmt.Sprintf("weather request returned %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamWeather,
			"failed to decode weather response", err)
	}
	return nil
}
