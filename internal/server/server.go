// Package server provides the HTTP API of the competency mapper.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/competency-mapper/internal/analysis"
	"github.com/jonathan/competency-mapper/internal/db"
	"github.com/jonathan/competency-mapper/internal/logging"
	"github.com/jonathan/competency-mapper/internal/narrative"
	"github.com/jonathan/competency-mapper/internal/scoring"
	"github.com/jonathan/competency-mapper/internal/server/ratelimit"
	"github.com/jonathan/competency-mapper/internal/types"
)

// Archive stores reports and their narratives. *db.DB implements it.
type Archive interface {
	SaveReport(ctx context.Context, r *types.ProfileReport) error
	GetReport(ctx context.Context, id uuid.UUID) (*types.ProfileReport, error)
	ListReports(ctx context.Context, limit int) ([]db.ReportSummary, error)
	SaveNarrative(ctx context.Context, reportID uuid.UUID, kind, source, text string) error
	GetNarratives(ctx context.Context, reportID uuid.UUID) ([]db.StoredNarrative, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	engine     *analysis.Engine
	profiles   *scoring.Registry
	archive    Archive
	narratives *narrative.Service
	limiter    *ratelimit.Limiter
	logger     *logging.Logger

	mu      sync.Mutex
	engines map[string]*analysis.Engine
}

// Config holds server configuration
type Config struct {
	Port int
	// Engine scores submissions under its default profile; other profiles
	// share its catalog and index.
	Engine     *analysis.Engine
	Profiles   *scoring.Registry
	Archive    Archive // optional
	Narratives *narrative.Service
	RateLimit  ratelimit.Config
	Logger     *logging.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("server requires an analysis engine")
	}
	if cfg.Profiles == nil {
		cfg.Profiles = scoring.NewRegistry()
	}
	if cfg.Narratives == nil {
		cfg.Narratives = narrative.NewService(nil, nil)
	}

	s := &Server{
		engine:     cfg.Engine,
		profiles:   cfg.Profiles,
		archive:    cfg.Archive,
		narratives: cfg.Narratives,
		limiter:    ratelimit.NewLimiter(cfg.RateLimit),
		logger:     cfg.Logger,
		engines:    map[string]*analysis.Engine{cfg.Engine.Profile().Name: cfg.Engine},
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // analyses call the embedding model
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /reports", s.handleListReports)
	mux.HandleFunc("GET /reports/{id}", s.handleGetReport)
	mux.HandleFunc("GET /profiles", s.handleProfiles)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// engineFor returns the engine for a profile name, the default one when name
// is empty. Engines are built once per profile and share the index.
func (s *Server) engineFor(name string) (*analysis.Engine, error) {
	if name == "" {
		return s.engine, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[name]; ok {
		return e, nil
	}
	p, err := s.profiles.Lookup(name)
	if err != nil {
		return nil, err
	}
	e, err := s.engine.WithProfile(p)
	if err != nil {
		return nil, err
	}
	s.engines[name] = e
	return e, nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their budget with 429
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		d := s.limiter.Allow(client, r.Method, r.URL.Path)
		if d.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		}
		if !d.Allowed {
			retry := int(d.RetryAfter.Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.logger.Warn("rate limit exceeded", "client", client, "path", r.URL.Path, "retry_after_s", retry)
			s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr,
			"status", rec.status, "duration", time.Since(start).String())
	})
}

// clientAddr is the client IP without port.
func clientAddr(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to its status and writes it.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	s.errorResponse(w, status, err.Error())
}
