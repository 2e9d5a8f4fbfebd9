// Package web serves the Home and Prediction pages, the JSON prediction
// API, and the health and metrics endpoints.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"credit-risk/internal/collector"
	"credit-risk/internal/common/config"
	"credit-risk/internal/common/logger"
	"credit-risk/internal/dataset"
	"credit-risk/internal/scoring"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxHeaderBytes = 1 << 20

var (
	//go:embed templates/*.html static/*
	embedFS embed.FS

	templates = template.Must(template.New("").Funcs(template.FuncMap{
		"num": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	}).ParseFS(embedFS, "templates/*.html"))
)

// Check is a named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Options struct {
	Config     config.ServerConfig
	Pipeline   *scoring.Pipeline
	Collector  *collector.Collector
	Dataset    dataset.Source
	SampleRows int
	Checks     []Check
	Logger     logger.Logger
}

type Server struct {
	cfg        config.ServerConfig
	pipeline   *scoring.Pipeline
	collector  *collector.Collector
	dataset    dataset.Source
	sampleRows int
	checks     []Check
	logger     logger.Logger
	mux        *http.ServeMux
}

func NewServer(opts Options) (*Server, error) {
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("scoring pipeline is required")
	}
	if opts.Dataset == nil {
		return nil, fmt.Errorf("dataset source is required")
	}
	if opts.Collector == nil {
		opts.Collector = collector.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.SampleRows <= 0 {
		opts.SampleRows = 5
	}

	s := &Server{
		cfg:        opts.Config,
		pipeline:   opts.Pipeline,
		collector:  opts.Collector,
		dataset:    opts.Dataset,
		sampleRows: opts.SampleRows,
		checks:     opts.Checks,
		logger:     opts.Logger,
	}
	s.mux = s.routes()
	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.FileServerFS(embedFS))

	// Pages
	mux.HandleFunc("GET /{$}", s.homeHandler)
	mux.HandleFunc("GET /predict", s.predictPageHandler)
	mux.HandleFunc("POST /predict", s.predictPageHandler)

	// API
	mux.HandleFunc("POST /api/v1/predictions", s.predictAPIHandler)
	mux.HandleFunc("GET /api/v1/schema", s.schemaAPIHandler)

	// Health & metrics
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:           s.cfg.Address,
		Handler:        s.mux,
		ReadTimeout:    config.GetDuration(s.cfg.ReadTimeout),
		WriteTimeout:   config.GetDuration(s.cfg.WriteTimeout),
		MaxHeaderBytes: maxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", map[string]interface{}{"address": s.cfg.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownTimeout := config.GetDuration(s.cfg.ShutdownTimeout)
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("HTTP server stopped", nil)
	return nil
}
