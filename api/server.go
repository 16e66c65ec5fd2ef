// Package api exposes the HTTP control surface: start, stop and inspect
// simulations, subscribe to the live metrics feed, scrape Prometheus
// metrics. All simulation lifecycle calls go through the sim.Registry.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/papertrade/feed"
	"github.com/rustyeddy/papertrade/sim"
	"github.com/rustyeddy/papertrade/store"
)

// Server is the HTTP front of the simulation service.
type Server struct {
	registry *sim.Registry
	st       store.Store
	hub      *feed.Hub
	gatherer prometheus.Gatherer
	log      zerolog.Logger

	router *mux.Router
	server *http.Server
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewServer(cfg ServerConfig, registry *sim.Registry, st store.Store, hub *feed.Hub, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	s := &Server{
		registry: registry,
		st:       st,
		hub:      hub,
		gatherer: gatherer,
		log:      logger.With().Str("component", "api").Logger(),
		router:   mux.NewRouter(),
	}
	s.routes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/simulations", s.handleStart).Methods(http.MethodPost)
	s.router.HandleFunc("/simulations", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/simulations/{id}", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/simulations/{id}", s.handleStop).Methods(http.MethodDelete)
	s.router.HandleFunc("/simulations/{id}/trades", s.handleTrades).Methods(http.MethodGet)

	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
