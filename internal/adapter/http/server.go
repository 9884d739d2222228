package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/nem12-statistics/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Converter runs a NEM12 conversion.
type Converter interface {
	Convert(ctx context.Context, src pipeline.RecordSource, sink pipeline.RowSink, opts pipeline.Options) (pipeline.Summary, error)
}

// ImportStore persists the rows and summary of one conversion.
type ImportStore interface {
	pipeline.RowSink
	RecordImport(ctx context.Context, summary pipeline.Summary) error
}

// ConvertSettings are the request-independent conversion parameters.
type ConvertSettings struct {
	StatisticID           string
	DefaultIntervalLength int
	MaxUploadBytes        int64

	// NewStore, when set, returns a store that receives every converted row.
	NewStore func(importID string) ImportStore
}

// Server exposes health, readiness, metrics and conversion HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /v1/convert routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, conv Converter, settings ConvertSettings, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("POST /v1/convert", &convertHandler{conv: conv, settings: settings, logger: logger})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
