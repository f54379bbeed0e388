package httphandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type HTTPServer struct {
	httpServer *http.Server
	ln         net.Listener
}

func NewHTTPServer(addr string, handler http.Handler) *HTTPServer {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	return &HTTPServer{httpServer: s}
}

// Listen binds the server address, so that a busy port fails the start
// instead of the run.
func (s *HTTPServer) Listen() error {
	const op = "HTTPServer.Listen"

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.ln = ln
	return nil
}

// Addr is the bound address, it differs from the configured one for
// port 0.
func (s *HTTPServer) Addr() string {
	if s.ln == nil {
		return s.httpServer.Addr
	}
	return s.ln.Addr().String()
}

// Run serves until Close. An unexpected stop is returned as an error.
func (s *HTTPServer) Run() error {
	const op = "HTTPServer.Run"
	log := slog.With("op", op)

	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	log.Info("listening", "addr", s.Addr())
	err := s.httpServer.Serve(s.ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("unexpected servers shutdown", "err", err)
		return err
	}
	return nil
}

func (s *HTTPServer) Close(ctx context.Context) {
	const op = "HTTPServer.Close"
	log := slog.With("op", op)

	log.Info("closing http server...")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		log.Error("failed to shutdown gracefully", "err", err)
	}
	log.Info("http server is closed")
}
