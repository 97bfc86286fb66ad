// Package metrics provides the standalone HTTP server that exposes
// Prometheus collectors on /metrics, started alongside each service's main
// API listener.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server serves /metrics on its own port, independent of a component's
// primary API server, so scraping never competes with request traffic.
type Server struct {
	httpServer *http.Server
	logger     *logrus.Logger
}

// NewServer builds a metrics server bound to addr (e.g. ":9090").
func NewServer(addr string, logger *logrus.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// StartAsync starts serving in a background goroutine, logging (not
// panicking) on unexpected shutdown.
func (s *Server) StartAsync() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("metrics server stopped unexpectedly")
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
