package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"wakeroute/internal/types"
)

// TransitClientConfig holds the configuration for creating a TransitClient.
type TransitClientConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // override for testing
	Logger       *slog.Logger
	Clock        types.Clock
}

// TransitClient queries the transit open-data platform for realtime bus
// arrival estimates. Access is authorized via a client-credentials token
// that is fetched lazily and cached until shortly before expiry.
type TransitClient struct {
	base         *BaseClient
	clientID     string
	clientSecret string
	baseURL      string
	logger       *slog.Logger
	clock        types.Clock

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewTransitClient creates a TransitClient routed through a BaseClient.
func NewTransitClient(httpClient *http.Client, cfg TransitClientConfig) *TransitClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://tdx.transportdata.tw"
	}
	return &TransitClient{
		base:         NewBaseClient(httpClient, "transit", types.ErrCodeUpstreamTransit, DefaultRetryPolicy()),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		logger:       logger,
		clock:        clock,
	}
}

// tokenExpirySlack renews the cached token this long before it expires.
const tokenExpirySlack = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached token or fetches a fresh one.
func (c *TransitClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.clock.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", types.NewAppError(types.ErrCodeUpstreamTransit,
			"transit credentials are not configured", nil)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	endpoint := c.baseURL + "/auth/realms/TDXConnect/protocol/openid-connect/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to build transit token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", types.NewAppError(types.ErrCodeUpstreamTransit,
			fmt.Sprintf("transit token request returned %d", resp.StatusCode), nil)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamTransit,
			"failed to decode transit token response", err)
	}
	if payload.AccessToken == "" {
		return "", types.NewAppError(types.ErrCodeUpstreamTransit,
			"transit token response carried no token", nil)
	}

	c.token = payload.AccessToken
	c.tokenExpiry = c.clock.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - tokenExpirySlack)
	return c.token, nil
}

type busEstimateEntry struct {
	StopName struct {
		ZhTw string `json:"Zh_tw"`
	} `json:"StopName"`
	Direction    int    `json:"Direction"`
	EstimateTime *int   `json:"EstimateTime"` // seconds; nil when unavailable
	NextBusTime  string `json:"NextBusTime"`  // RFC3339-ish; empty when unavailable
}

// BusArrivals returns per-stop realtime arrival estimates for one bus route
// in one city.
func (c *TransitClient) BusArrivals(ctx context.Context, city, route string) ([]types.BusArrival, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(
		"%s/api/basic/v2/Bus/EstimatedTimeOfArrival/City/%s/%s?%s",
		c.baseURL, url.PathEscape(city), url.PathEscape(route),
		url.Values{"$top": {"100"}, "$format": {"JSON"}}.Encode(),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected,
			"failed to build bus estimate request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(types.ErrCodeUpstreamTransit,
			fmt.Sprintf("bus estimate request returned %d", resp.StatusCode), nil)
	}

	var entries []busEstimateEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamTransit,
			"failed to decode bus estimate response", err)
	}

	arrivals := make([]types.BusArrival, 0, len(entries))
	for _, entry := range entries {
		arrival := types.BusArrival{
			StopName:     entry.StopName.ZhTw,
			Outbound:     entry.Direction == 0,
			EstimateMins: -1,
		}
		if entry.EstimateTime != nil {
			arrival.EstimateMins = *entry.EstimateTime / 60
		} else if entry.NextBusTime != "" {
			if t, err := time.Parse(time.RFC3339, entry.NextBusTime); err == nil {
				arrival.NextBusTime = t
			}
		}
		arrivals = append(arrivals, arrival)
	}
	return arrivals, nil
}
