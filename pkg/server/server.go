// Package server wires the router into an HTTP server with logging,
// panic recovery, metrics and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/niels/page-server/pkg/config"
	"github.com/niels/page-server/pkg/logging"
	"github.com/niels/page-server/pkg/metrics"
	"github.com/niels/page-server/pkg/routes"
	"github.com/niels/page-server/pkg/storage"
	"github.com/rs/zerolog"
)

// Server serves the route table over HTTP
type Server struct {
	cfg     *config.Config
	handler http.Handler
	metrics *metrics.Collector
	log     zerolog.Logger
}

// New creates a server for cfg reading files from store
func New(cfg *config.Config, store storage.FileStore) *Server {
	s := &Server{
		cfg:     cfg,
		metrics: metrics.NewCollector(),
		log:     logging.WithComponent("server"),
	}

	router := routes.NewRouter(routes.NewTable(cfg), store, routes.WithRecorder(s.metrics))

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(s.accessLog)
	mux.Handle("/*", router)
	mux.NotFound(router.ServeHTTP)
	mux.MethodNotAllowed(router.ServeHTTP)

	s.handler = mux
	return s
}

// Handler returns the HTTP handler serving pages and files
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the collector the router reports to
func (s *Server) Metrics() *metrics.Collector {
	return s.metrics
}

// Run listens on the configured addresses and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}

	var metricsLn net.Listener
	if s.cfg.Server.MetricsAddr != "" {
		metricsLn, err = net.Listen("tcp", s.cfg.Server.MetricsAddr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.MetricsAddr, err)
		}
	}

	return s.Serve(ctx, ln, metricsLn)
}

// Serve serves on ln (and the metrics endpoint on metricsLn when not nil)
// until ctx is done, then shuts both down gracefully
func (s *Server) Serve(ctx context.Context, ln, metricsLn net.Listener) error {
	readHeaderTimeout := time.Duration(s.cfg.Server.ReadHeaderTimeout) * time.Second
	servers := []*http.Server{{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}}
	listeners := []net.Listener{ln}

	if metricsLn != nil {
		metricsMux := chi.NewRouter()
		metricsMux.Handle("/metrics", s.metrics.Handler())
		servers = append(servers, &http.Server{
			Handler:           metricsMux,
			ReadHeaderTimeout: readHeaderTimeout,
		})
		listeners = append(listeners, metricsLn)
		s.log.Info().Str("addr", metricsLn.Addr().String()).Msg("Serving metrics")
	}

	errCh := make(chan error, len(servers))
	for i, srv := range servers {
		go func(srv *http.Server, l net.Listener) {
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv, listeners[i])
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("Server running")

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		s.log.Error().Err(serveErr).Msg("Server failed")
	}

	timeout := time.Duration(s.cfg.Server.ShutdownTimeout) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info().Dur("timeout", timeout).Msg("Shutting down")
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
			serveErr = fmt.Errorf("failed to shut down: %w", err)
		}
	}

	return serveErr
}

// accessLog logs one line per request and counts the bytes written
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logging.WithRequestID(r.Context(), requestID)))

		s.metrics.AddBytes(ww.BytesWritten())
		if !s.cfg.Logging.AccessLog {
			return
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("Request")
	})
}
