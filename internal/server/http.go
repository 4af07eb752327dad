package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ShutdownTimeout bounds how long Stop waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// HTTPService serves a handler on an already bound listener.
type HTTPService struct {
	srv    *http.Server
	ln     net.Listener
	logger *zap.Logger
}

// NewHTTPService binds addr and prepares to serve h on it.
//
// Precondition: h and logger must be non-nil.
// Postcondition: Returns a bound service, or a non-nil error when addr cannot be bound.
func NewHTTPService(addr string, h http.Handler, logger *zap.Logger) (*HTTPService, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return &HTTPService{
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger,
	}, nil
}

// Addr returns the bound address.
func (s *HTTPService) Addr() string { return s.ln.Addr().String() }

// Start serves until Stop is called.
func (s *HTTPService) Start() error {
	s.logger.Info("http listening", zap.String("addr", s.Addr()))
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *HTTPService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}
