package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"wakeroute/internal/types"
)

// GeocoderClientConfig holds the configuration for creating a GeocoderClient.
type GeocoderClientConfig struct {
	APIKey  string
	BaseURL string // override for testing
	Logger  *slog.Logger
}

// GeocoderClient resolves free-text place names to coordinates through the
// Google Geocoding REST API. One request per call, no application-level
// retries beyond what BaseClient provides.
type GeocoderClient struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewGeocoderClient creates a GeocoderClient routed through a BaseClient.
func NewGeocoderClient(httpClient *http.Client, cfg GeocoderClientConfig) *GeocoderClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	return &GeocoderClient{
		base:    NewBaseClient(httpClient, "geocoder", types.ErrCodeUpstreamGeocoder, DefaultRetryPolicy()),
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// geocodeResponse mirrors the subset of the provider payload we consume.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve returns the coordinate for a place name. A place the provider does
// not know yields a not_found_place AppError; transport failures yield
// upstream_geocoder_unavailable.
func (c *GeocoderClient) Resolve(ctx context.Context, place string) (types.Coordinate, error) {
	q := url.Values{}
	q.Set("address", place)
	q.Set("key", c.apiKey)

	endpoint := fmt.Sprintf("%s/maps/api/geocode/json?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.Coordinate{}, types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to build geocode request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return types.Coordinate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Coordinate{}, types.NewAppError(types.ErrCodeUpstreamGeocoder,
			fmt.Sprintf("geocode request returned %d", resp.StatusCode), nil)
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return types.Coordinate{}, types.NewAppError(types.ErrCodeUpstreamGeocoder,
			"failed to decode geocode response", err)
	}

	if payload.Status != "OK" || len(payload.Results) == 0 {
		c.logger.DebugContext(ctx, "geocode returned no results",
			"place", place, "status", payload.Status)
		return types.Coordinate{}, types.NewAppError(types.ErrCodeNotFoundPlace,
			fmt.Sprintf("no location found for %q", place), nil)
	}

	loc := payload.Results[0].Geometry.Location
	return types.Coordinate{Lat: loc.Lat, Lon: loc.Lng}, nil
}
