// Package main is the entry point for the WakeRoute API server.
//
// It loads configuration, builds the external provider clients, wires the
// planner and conversational layer, mounts the HTTP chassis, and starts
// listening for webhook traffic.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"wakeroute/internal/bot"
	"wakeroute/internal/config"
	"wakeroute/internal/core"
	"wakeroute/internal/external"
	"wakeroute/internal/planner"
	"wakeroute/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("wakeroute API starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	location, err := cfg.Planner.Location()
	if err != nil {
		return fmt.Errorf("resolving planner timezone: %w", err)
	}

	// One shared HTTP client for every provider; the per-call deadline comes
	// from here, while retries and circuit breaking live in each client.
	httpClient := &http.Client{Timeout: cfg.Providers.Timeout}

	geocoder := external.NewGeocoderClient(httpClient, external.GeocoderClientConfig{
		APIKey:  cfg.Providers.MapsAPIKey.Unmask(),
		BaseURL: cfg.Providers.GeocodeBaseURL,
		Logger:  logger,
	})
	weather := external.NewWeatherClient(httpClient, external.WeatherClientConfig{
		APIKey:  cfg.Providers.WeatherAPIKey.Unmask(),
		BaseURL: cfg.Providers.WeatherBaseURL,
		Logger:  logger,
	})
	directions := external.NewDirectionsClient(httpClient, external.DirectionsClientConfig{
		APIKey:  cfg.Providers.MapsAPIKey.Unmask(),
		BaseURL: cfg.Providers.DirectionsBaseURL,
		Logger:  logger,
	})
	transit := external.NewTransitClient(httpClient, external.TransitClientConfig{
		ClientID:     cfg.Providers.TransitClientID,
		ClientSecret: cfg.Providers.TransitClientSecret.Unmask(),
		BaseURL:      cfg.Providers.TransitBaseURL,
		Logger:       logger,
	})
	messaging := external.NewMessagingClient(httpClient, external.MessagingClientConfig{
		ChannelToken: cfg.Messaging.ChannelToken.Unmask(),
		BaseURL:      cfg.Messaging.BaseURL,
		Logger:       logger,
	})

	tripPlanner := planner.NewPlanner(geocoder, weather, directions, planner.PlannerConfig{
		Fallback: types.Coordinate{Lat: cfg.Planner.FallbackLat, Lon: cfg.Planner.FallbackLon},
		Location: location,
		DemotionRules: []planner.DemotionRule{
			planner.RainCyclingRule(cfg.Planner.RainDemotionThreshold),
		},
		Logger: logger,
	})

	registry := bot.NewRegistry(cfg.Session.IdleTimeout, nil, logger)
	sweeper := registry.StartSweeper(cfg.Session.SweepInterval)
	defer sweeper.Stop()

	router := bot.NewRouter(bot.RouterConfig{
		Planner:  tripPlanner,
		Geocoder: geocoder,
		Weather:  weather,
		Transit:  transit,
		Registry: registry,
		Logger:   logger,
	})
	webhook := bot.NewWebhookHandler(cfg.Messaging.ChannelSecret.Unmask(), router, messaging, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.RouteRegistrars = append(srv.RouteRegistrars, func(r chi.Router) {
		webhook.RegisterRoutes(r)
	})
	srv.HealthProbes = []core.HealthProbe{
		newReachabilityProbe("geocoder", cfg.Providers.GeocodeBaseURL, httpClient),
		newReachabilityProbe("weather", cfg.Providers.WeatherBaseURL, httpClient),
		newReachabilityProbe("messaging", cfg.Messaging.BaseURL, httpClient),
	}
	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// reachabilityProbe reports whether a provider endpoint answers at all. Any
// HTTP response counts as reachable; auth and routing errors are a handler
// concern, not a connectivity one.
type reachabilityProbe struct {
	name   string
	url    string
	client *http.Client
}

func newReachabilityProbe(name, url string, client *http.Client) *reachabilityProbe {
	return &reachabilityProbe{name: name, url: url, client: client}
}

func (p *reachabilityProbe) Name() string { return p.name }

func (p *reachabilityProbe) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
