package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/yeesearch/internal/logging"
	"github.com/muurk/yeesearch/internal/search"
)

// shutdownTimeout bounds how long Start waits for in-flight requests on exit
const shutdownTimeout = 10 * time.Second

// Lights is the part of search.Search the API needs
type Lights interface {
	Lights() []search.Device
	LightByID(id string) (search.Device, bool)
	Refresh()
	OnFound(f func(search.Device))
}

// Config holds the server configuration
type Config struct {
	Addr string // Listen address, e.g. "127.0.0.1:8982"
}

// Server serves the light registry over HTTP and streams found events over WebSocket
type Server struct {
	config *Config
	lights Lights
	hub    *hub
	http   *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server and subscribes it to found events
func New(config *Config, lights Lights) *Server {
	s := &Server{
		config: config,
		lights: lights,
		hub:    newHub(),
	}
	s.http = &http.Server{
		Addr:              config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	lights.OnFound(s.publishFound)
	return s
}

// Start listens and serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logging.Info("API server listening", zap.String("addr", listener.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the bound listen address, once Start has bound it
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and closes every event stream
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")
	s.hub.closeAll()
	if err := s.http.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		return s.http.Close()
	}
	return nil
}

// Subscribers returns the number of connected event streams
func (s *Server) Subscribers() int {
	return s.hub.count()
}
