package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wakeroute/internal/types"
)

func TestDirectionsClient_Route(t *testing.T) {
	departure := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/directions/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Home", q.Get("origin"))
		assert.Equal(t, "Office", q.Get("destination"))
		assert.Equal(t, "driving", q.Get("mode"))
		assert.Empty(t, q.Get("transit_mode"))
		assert.Equal(t, strconv.FormatInt(departure.Unix(), 10), q.Get("departure_time"))

		fmt.Fprint(w, `{
			"status": "OK",
			"routes": [{"legs": [{"duration": {"text": "40 mins", "value": 2400}}]}]
		}`)
	}))
	defer srv.Close()

	c := NewDirectionsClient(srv.Client(), DirectionsClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	leg, err := c.Route(context.Background(), "Home", "Office", types.ModeDriving, departure)
	require.NoError(t, err)
	assert.Equal(t, "40 mins", leg.DurationText)
	assert.Equal(t, 2400, leg.DurationSeconds)
}

func TestDirectionsClient_Route_ModeMapping(t *testing.T) {
	tests := []struct {
		mode        types.TravelMode
		wantMode    string
		wantTransit string
	}{
		{types.ModeDriving, "driving", ""},
		{types.ModeWalking, "walking", ""},
		{types.ModeCycling, "bicycling", ""},
		{types.ModeBus, "transit", "bus"},
		{types.ModeTransit, "transit", "rail"},
		{types.ModeTransitGeneric, "transit", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				assert.Equal(t, tt.wantMode, q.Get("mode"))
				assert.Equal(t, tt.wantTransit, q.Get("transit_mode"))
				fmt.Fprint(w, `{
					"status": "OK",
					"routes": [{"legs": [{"duration": {"text": "1 min", "value": 60}}]}]
				}`)
			}))
			defer srv.Close()

			c := NewDirectionsClient(srv.Client(), DirectionsClientConfig{
				APIKey:  "test-key",
				BaseURL: srv.URL,
				Logger:  discardLogger(),
			})

			_, err := c.Route(context.Background(), "A", "B", tt.mode, time.Now())
			require.NoError(t, err)
		})
	}
}

func TestDirectionsClient_Route_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "routes": []}`)
	}))
	defer srv.Close()

	c := NewDirectionsClient(srv.Client(), DirectionsClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	_, err := c.Route(context.Background(), "A", "B", types.ModeCycling, time.Now())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundRoute, appErr.Code)
}
