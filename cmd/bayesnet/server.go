package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Server hosts the JSON API and the metrics endpoint.
type Server struct {
	config     *Config
	logger     *slog.Logger
	networkAPI *NetworkAPI
	serverAPI  *ServerAPI
	apiMux     *http.ServeMux
}

// NewServer wires the API handlers for sampler into a single mux.
func NewServer(config *Config, logger *slog.Logger, sampler *Sampler) *Server {
	server := &Server{
		config:     config,
		logger:     logger,
		networkAPI: NewNetworkAPI(sampler, config.Sampler.Steps, config.Server.HistoryLimit, logger),
		serverAPI:  NewServerAPI(sampler),
		apiMux:     http.NewServeMux(),
	}

	server.networkAPI.RegisterRoutes(server.apiMux)
	server.serverAPI.RegisterRoutes(server.apiMux)
	server.apiMux.Handle("/metrics", promhttp.Handler())
	return server
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.apiMux
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// the HTTP server down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Server.ApiAddr,
		Handler:           s.apiMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting api server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Stopping api server...")
		timeout := time.Duration(s.config.Server.ShutdownTimeoutSec) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.logger.Info("HTTP server stopped.")
	return err
}
