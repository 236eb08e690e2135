// Package core provides the HTTP chassis for the trip-planning service.
// It owns the chi router and the cross-cutting concerns -- panic recovery,
// request correlation, logging, and error rendering -- so that the webhook
// and health handlers only deal with their own semantics.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wakeroute/internal/config"
)

// RouteRegistrar mounts one feature's routes onto the router. The indirection
// keeps core free of imports on handler packages.
type RouteRegistrar func(r chi.Router)

// Server encapsulates the router and its dependencies, allowing injection
// during testing and distinct configuration per environment.
type Server struct {
	Config          *config.Config
	Logger          *slog.Logger
	HealthProbes    []HealthProbe
	RouteRegistrars []RouteRegistrar

	router *chi.Mux
}

// NewServer initializes the server and prepares it for route mounting. The
// caller mounts routes via MountRoutes after construction; the separation
// lets tests customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	s.Logger.Info("server shutdown complete")
	return nil
}
