// Package server exposes zone computation and mission storage over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/flightzone/internal/config"
	"github.com/sells-group/flightzone/internal/geo"
	"github.com/sells-group/flightzone/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

// Server holds the dependencies shared by the HTTP handlers.
type Server struct {
	store     store.Store
	settings  geo.ZoneSettings
	opts      []geo.ComposeOption
	cache     *ZoneCache
	metrics   *Metrics
	limiter   *rate.Limiter
	origins   []string
	startedAt time.Time
}

// New builds a server from cfg. st may be nil, in which case the mission
// endpoints answer 503. A nil reg registers metrics on a private registry.
func New(cfg *config.Config, st store.Store, reg prometheus.Registerer) (*Server, error) {
	settings, err := cfg.Zones.Settings()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Zones.Options()
	if err != nil {
		return nil, err
	}

	cache := NewZoneCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	metrics, err := NewMetrics(reg, cache)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Server.RateLimit > 0 {
		burst := cfg.Server.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), burst)
	}

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		store:     st,
		settings:  settings,
		opts:      opts,
		cache:     cache,
		metrics:   metrics,
		limiter:   limiter,
		origins:   origins,
		startedAt: time.Now(),
	}, nil
}

// Cache returns the server's zone cache.
func (s *Server) Cache() *ZoneCache { return s.cache }

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Cache"},
		MaxAge:         300,
	}))
	r.Use(s.metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimit(s.limiter, s.metrics))

		r.Post("/zones", s.handleZones)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Delete("/cache", s.handleCachePurge)

		r.Route("/missions", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleListMissions)
			r.Post("/", s.handleCreateMission)
			r.Get("/{id}", s.handleGetMission)
			r.Put("/{id}", s.handleUpdateMission)
			r.Delete("/{id}", s.handleDeleteMission)
			r.Get("/{id}/zones", s.handleMissionZones)
		})
	})
	return r
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			writeError(w, http.StatusServiceUnavailable, "mission store not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
