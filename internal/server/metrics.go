package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/flightzone/internal/geo"
)

// Metrics bundles the server's Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	Requests     *prometheus.CounterVec
	Durations    *prometheus.HistogramVec
	ZonesBuilt   *prometheus.CounterVec
	ZonesSkipped *prometheus.CounterVec
	RateLimited  prometheus.Counter
}

// NewMetrics registers the server collectors with reg. A nil reg gets a
// private registry.
func NewMetrics(reg prometheus.Registerer, cache *ZoneCache) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		gatherer: gatherer,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightzone_http_requests_total",
			Help: "Handled HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flightzone_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method"}),
		ZonesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightzone_zones_built_total",
			Help: "Zones built by label.",
		}, []string{"label"}),
		ZonesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightzone_zones_skipped_total",
			Help: "Zones skipped for invalid or degenerate geometry, by label.",
		}, []string{"label"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightzone_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}

	collectors := []prometheus.Collector{m.Requests, m.Durations, m.ZonesBuilt, m.ZonesSkipped, m.RateLimited}
	if cache != nil {
		collectors = append(collectors,
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "flightzone_cache_entries",
				Help: "Responses currently held in the zone cache.",
			}, func() float64 { return float64(cache.Stats().Entries) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "flightzone_cache_hits_total",
				Help: "Zone cache hits.",
			}, func() float64 { return float64(cache.Stats().Hits) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "flightzone_cache_misses_total",
				Help: "Zone cache misses.",
			}, func() float64 { return float64(cache.Stats().Misses) }),
		)
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, eris.Wrap(err, "server: register metrics")
		}
	}
	return m, nil
}

// ObserveResult counts the built and skipped zones of res.
func (m *Metrics) ObserveResult(res geo.Result) {
	for _, z := range res.Zones {
		m.ZonesBuilt.WithLabelValues(z.Label.String()).Inc()
	}
	for _, s := range res.Skipped {
		m.ZonesSkipped.WithLabelValues(s.Label.String()).Inc()
	}
}

// Middleware records request counts and durations by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.Durations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registered collectors for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
