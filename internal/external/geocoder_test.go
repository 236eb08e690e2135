package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wakeroute/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGeocoderClient_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "Taipei Main Station", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		fmt.Fprint(w, `{
			"status": "OK",
			"results": [{"geometry": {"location": {"lat": 25.0478, "lng": 121.517}}}]
		}`)
	}))
	defer srv.Close()

	c := NewGeocoderClient(srv.Client(), GeocoderClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	coord, err := c.Resolve(context.Background(), "Taipei Main Station")
	require.NoError(t, err)
	assert.InDelta(t, 25.0478, coord.Lat, 1e-9)
	assert.InDelta(t, 121.517, coord.Lon, 1e-9)
}

func TestGeocoderClient_Resolve_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "results": []}`)
	}))
	defer srv.Close()

	c := NewGeocoderClient(srv.Client(), GeocoderClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	_, err := c.Resolve(context.Background(), "Atlantis")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundPlace, appErr.Code)
	assert.Contains(t, appErr.Message, "Atlantis")
}

func TestGeocoderClient_Resolve_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{not json`)
	}))
	defer srv.Close()

	c := NewGeocoderClient(srv.Client(), GeocoderClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Logger:  discardLogger(),
	})

	_, err := c.Resolve(context.Background(), "anywhere")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamGeocoder, appErr.Code)
}
