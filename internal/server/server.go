// Package server exposes citation discovery over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matsen/citeas/internal/classify"
	"github.com/matsen/citeas/internal/metrics"
	"github.com/matsen/citeas/internal/product"
	"github.com/matsen/citeas/internal/step"
)

// Version is reported by the index route.
const Version = "0.1"

const productPrefix = "/product/"

// Resolver builds the bundle for one identifier.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (*product.Bundle, error)
}

// Server routes API requests.
type Server struct {
	resolver Resolver
	steps    map[string]step.Config
	logger   *zap.Logger
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server answering product requests with resolver and step
// documentation from reg.
func New(resolver Resolver, reg *step.Registry, opts ...Option) *Server {
	s := &Server{
		resolver: resolver,
		steps:    reg.Configs(),
		logger:   zap.NewNop(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /steps", s.handleSteps)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	return s
}

// Handler returns the root handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(cors(http.HandlerFunc(s.route)))
}

// route sends product requests around the mux, whose path cleaning would
// collapse the "//" inside URL identifiers.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, productPrefix) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleProduct(w, r)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":           Version,
		"documentation_url": "none yet",
		"msg":               "Don't panic",
	})
}

func (s *Server) handleSteps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.steps)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	identifier := identifierFromRequest(r)
	bundle, err := s.resolver.Resolve(r.Context(), identifier)
	if err != nil {
		var ue *classify.UnsupportedError
		if errors.As(err, &ue) {
			writeError(w, http.StatusBadRequest, ue.Message)
			return
		}
		s.logger.Error("resolution failed", zap.String("identifier", identifier), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// identifierFromRequest recovers the identifier from the path, repairing
// "http:/" collapsed by proxies and keeping any query string that belongs
// to a URL identifier.
func identifierFromRequest(r *http.Request) string {
	id := strings.TrimPrefix(r.URL.Path, productPrefix)
	for _, scheme := range []string{"http:/", "https:/"} {
		if strings.HasPrefix(id, scheme) && !strings.HasPrefix(id, scheme+"/") {
			id = scheme + "/" + strings.TrimPrefix(id, scheme)
		}
	}
	if r.URL.RawQuery != "" && (strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")) {
		id += "?" + r.URL.RawQuery
	}
	return id
}

type errorBody struct {
	StatusCode int    `json:"HTTP_status_code"`
	Message    string `json:"message"`
	Error      bool   `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{StatusCode: code, Message: msg, Error: true})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	_ = enc.Encode(v)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "origin, content-type, accept, x-requested-with")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for logging.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeLabel(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.code),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", clientIP(r)),
			zap.String("user_agent", r.UserAgent()))
	})
}

// routeLabel bounds metric cardinality to the known routes.
func routeLabel(path string) string {
	switch {
	case path == "/", path == "/steps", path == "/metrics":
		return path
	case strings.HasPrefix(path, productPrefix):
		return "/product"
	}
	return "other"
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}
