package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/coinsift/coinsift/internal/config"
	"github.com/coinsift/coinsift/internal/metrics"
	"github.com/coinsift/coinsift/internal/scan"
	"github.com/coinsift/coinsift/internal/scan/progress"
)

// Server is the read-only HTTP wrapper around the scan pipeline.
type Server struct {
	router  *mux.Router
	server  *http.Server
	cfg     config.ServerConfig
	orch    *scan.Orchestrator
	bus     *progress.Bus
	metrics *metrics.Registry
}

// NewServer creates the HTTP server and verifies the port is available.
func NewServer(cfg config.ServerConfig, orch *scan.Orchestrator, bus *progress.Bus, m *metrics.Registry) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("port %d is busy or unavailable: %w", cfg.Port, err)
	}
	listener.Close()

	if m == nil {
		m = metrics.Default()
	}

	s := &Server{
		router:  mux.NewRouter(),
		cfg:     cfg,
		orch:    orch,
		bus:     bus,
		metrics: m,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.corsMiddleware)

	s.router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/api/scan", s.handleScan).Methods("GET")
	api.HandleFunc("/api/results", s.handleResults).Methods("GET")

	s.router.NotFoundHandler = s.jsonContentTypeMiddleware(http.HandlerFunc(s.handleNotFound))
}

// requestIDMiddleware tags each request with a short unique ID.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		requestID, _ := r.Context().Value(requestIDKey{}).(string)
		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

// corsMiddleware allows local origins only; the server is not meant to be
// exposed publicly.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting http server")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down http server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
