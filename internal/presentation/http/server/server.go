// Package server owns the listening HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/AtRiskMedia/siteshell-go/internal/application/container"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/presentation/http/routes"
	"github.com/AtRiskMedia/siteshell-go/pkg/config"
)

// Server pairs the routed gin engine with its http.Server
type Server struct {
	httpServer *http.Server
	logger     *logging.ChanneledLogger
}

// New routes every handler in c and applies the configured timeouts
func New(port string, c *container.Container) *Server {
	return newServer(":"+port, routes.SetupRoutes(c), c.Logger)
}

func newServer(addr string, handler http.Handler, logger *logging.ChanneledLogger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  config.ServerReadTimeout,
			WriteTimeout: config.ServerWriteTimeout,
			IdleTimeout:  config.ServerIdleTimeout,
		},
		logger: logger,
	}
}

// Addr is the address the server listens on
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start blocks serving requests. A clean Stop is not an error.
func (s *Server) Start() error {
	s.logger.System().Info("Listening", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains open requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Shutdown().Info("Shutting down HTTP server", "address", s.httpServer.Addr)
	return s.httpServer.Shutdown(ctx)
}
