package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wakeroute/internal/types"
)

// DirectionsClientConfig holds the configuration for creating a DirectionsClient.
type DirectionsClientConfig struct {
	APIKey  string
	BaseURL string // override for testing
	Logger  *slog.Logger
}

// DirectionsClient queries the Google Directions REST API for one travel mode
// at a time. Transit sub-modes (bus, rail) are expressed through the
// provider's transit_mode parameter.
type DirectionsClient struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewDirectionsClient creates a DirectionsClient routed through a BaseClient.
func NewDirectionsClient(httpClient *http.Client, cfg DirectionsClientConfig) *DirectionsClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	return &DirectionsClient{
		base:    NewBaseClient(httpClient, "directions", types.ErrCodeUpstreamDirections, DefaultRetryPolicy()),
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// providerMode maps a TravelMode to the provider's mode and transit_mode
// query parameters.
func providerMode(mode types.TravelMode) (string, string) {
	switch mode {
	case types.ModeDriving:
		return "driving", ""
	case types.ModeWalking:
		return "walking", ""
	case types.ModeCycling:
		return "bicycling", ""
	case types.ModeBus:
		return "transit", "bus"
	case types.ModeTransit:
		return "transit", "rail"
	default:
		return "transit", ""
	}
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Legs []struct {
			Duration struct {
				Text  string `json:"text"`
				Value int    `json:"value"` // seconds
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// Route issues one directions query for one mode at the given departure time.
// No route between the points yields a not_found_route AppError; transport
// failures yield upstream_directions_unavailable.
func (c *DirectionsClient) Route(ctx context.Context, origin, destination string, mode types.TravelMode, departure time.Time) (types.RouteLeg, error) {
	gmode, tmode := providerMode(mode)

	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("mode", gmode)
	if tmode != "" {
		q.Set("transit_mode", tmode)
	}
	q.Set("departure_time", strconv.FormatInt(departure.Unix(), 10))
	q.Set("key", c.apiKey)

	endpoint := fmt.Sprintf("%s/maps/api/directions/json?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.RouteLeg{}, types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to build directions request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return types.RouteLeg{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.RouteLeg{}, types.NewAppError(types.ErrCodeUpstreamDirections,
			fmt.Sprintf("directions request returned %d", resp.StatusCode), nil)
	}

	var payload directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return types.RouteLeg{}, types.NewAppError(types.ErrCodeUpstreamDirections,
			"failed to decode directions response", err)
	}

	if payload.Status != "OK" || len(payload.Routes) == 0 || len(payload.Routes[0].Legs) == 0 {
		c.logger.DebugContext(ctx, "directions returned no route",
			"mode", string(mode), "status", payload.Status)
		return types.RouteLeg{}, types.NewAppError(types.ErrCodeNotFoundRoute,
			fmt.Sprintf("no %s route between %q and %q", mode.Label(), origin, destination), nil)
	}

	leg := payload.Routes[0].Legs[0]
	return types.RouteLeg{
		DurationText:    leg.Duration.Text,
		DurationSeconds: leg.Duration.Value,
	}, nil
}
