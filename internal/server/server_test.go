package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/flightzone/internal/config"
	"github.com/sells-group/flightzone/internal/geo"
	"github.com/sells-group/flightzone/internal/store"
)

const eastRoute = `{"name":"survey","route":[{"lat":60,"lng":10},{"lat":60,"lng":10.004}]}`

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Zones.FlightGeographyM = 10
	cfg.Zones.ContingencyM = 50
	cfg.Zones.GroundRiskM = 100
	cfg.Zones.Mode = "auto"
	cfg.Zones.CapSegments = 8
	cfg.Cache.MaxEntries = 100
	cfg.Cache.TTL = time.Minute
	return cfg
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestServer(t *testing.T, cfg *config.Config, st store.Store) (*Server, http.Handler) {
	t.Helper()
	srv, err := New(cfg, st, prometheus.NewRegistry())
	require.NoError(t, err)
	return srv, srv.Handler()
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	w := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["store"])
}

func TestZones_GeoJSON(t *testing.T) {
	srv, h := newTestServer(t, testConfig(), nil)

	w := do(h, http.MethodPost, "/v1/zones", eastRoute)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	body := decodeBody(t, w)
	assert.Equal(t, "FeatureCollection", body["type"])
	assert.Equal(t, "corridor", body["mode"])
	features := body["features"].([]any)
	require.Len(t, features, 3)

	var labels []string
	for _, f := range features {
		props := f.(map[string]any)["properties"].(map[string]any)
		labels = append(labels, props["label"].(string))
	}
	assert.Equal(t, []string{"ground_risk_buffer", "contingency", "flight_geography"}, labels)
	assert.Empty(t, body["skipped"])

	assert.InDelta(t, 1, testutil.ToFloat64(srv.metrics.ZonesBuilt.WithLabelValues("flight_geography")), 0)

	// Same request is served from cache and not recomputed.
	w = do(h, http.MethodPost, "/v1/zones", eastRoute)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.InDelta(t, 1, testutil.ToFloat64(srv.metrics.ZonesBuilt.WithLabelValues("flight_geography")), 0)
}

func TestZones_SettingsChangeCacheKey(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	w := do(h, http.MethodPost, "/v1/zones", eastRoute)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	wider := `{"route":[{"lat":60,"lng":10},{"lat":60,"lng":10.004}],
		"zone_settings":{"flight_geography_m":20,"contingency_m":50,"ground_risk_m":100,"mode":"corridor"}}`
	w = do(h, http.MethodPost, "/v1/zones", wider)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	features := decodeBody(t, w)["features"].([]any)
	fg := features[2].(map[string]any)["properties"].(map[string]any)
	assert.InDelta(t, 20.0, fg["cumulative_distance_m"], 1e-9)
}

func TestZones_Formats(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	w := do(h, http.MethodPost, "/v1/zones?format=kml", eastRoute)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "kml")
	assert.Contains(t, w.Body.String(), "<Placemark>")
	assert.Contains(t, w.Body.String(), "survey")

	for format, prefix := range map[string]string{
		"wkt":      "POLYGON",
		"ewkb":     "0103000020e6100000",
		"polyline": "",
	} {
		t.Run(format, func(t *testing.T) {
			w := do(h, http.MethodPost, "/v1/zones?format="+format, eastRoute)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			body := decodeBody(t, w)
			assert.Equal(t, format, body["format"])
			zones := body["zones"].([]any)
			require.Len(t, zones, 3)
			first := zones[0].(map[string]any)
			assert.Equal(t, "ground_risk_buffer", first["label"])
			text := first["text"].(string)
			assert.NotEmpty(t, text)
			assert.True(t, strings.HasPrefix(text, prefix), text)
		})
	}
}

func TestZones_SkippedReported(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	w := do(h, http.MethodPost, "/v1/zones", `{"route":[{"lat":0,"lng":0},{"lat":0,"lng":0}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Empty(t, body["features"])
	skipped := body["skipped"].([]any)
	require.Len(t, skipped, 3)
	first := skipped[0].(map[string]any)
	assert.Equal(t, "ground_risk_buffer", first["label"])
	assert.Contains(t, first["reason"], "no usable points")
}

func TestZones_BadRequests(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"unknown format", "/v1/zones?format=svg", eastRoute},
		{"malformed body", "/v1/zones", `{"route": [`},
		{"no route", "/v1/zones", `{"name":"empty"}`},
		{"negative distance", "/v1/zones", `{"route":[{"lat":60,"lng":10}],"zone_settings":{"flight_geography_m":-1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
}

func TestMissions_NoStore(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	w := do(h, http.MethodGet, "/v1/missions", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMissions_CRUD(t *testing.T) {
	_, h := newTestServer(t, testConfig(), newTestStore(t))

	w := do(h, http.MethodPost, "/v1/missions", eastRoute)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody(t, w)
	id := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "/v1/missions/"+id, w.Header().Get("Location"))
	assert.Equal(t, "survey", created["name"])

	// Defaults from config fill in missing zone settings.
	settings := created["zone_settings"].(map[string]any)
	assert.InDelta(t, 50.0, settings["contingency_m"], 1e-9)

	w = do(h, http.MethodGet, "/v1/missions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decodeBody(t, w)["id"])

	w = do(h, http.MethodGet, "/v1/missions?name=surv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["missions"].([]any), 1)

	w = do(h, http.MethodGet, "/v1/missions/"+id+"/zones", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Len(t, decodeBody(t, w)["features"].([]any), 3)

	w = do(h, http.MethodGet, "/v1/missions/"+id+"/zones", "")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = do(h, http.MethodPut, "/v1/missions/"+id, `{"name":"resurvey","polyline":"_p~iF~ps|U_ulLnnqC"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "resurvey", decodeBody(t, w)["name"])

	// Updating the mission invalidates its cached zones.
	w = do(h, http.MethodGet, "/v1/missions/"+id+"/zones", "")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = do(h, http.MethodDelete, "/v1/missions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(h, http.MethodGet, "/v1/missions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(h, http.MethodDelete, "/v1/missions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(h, http.MethodGet, "/v1/missions/"+id+"/zones", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMissions_Validation(t *testing.T) {
	_, h := newTestServer(t, testConfig(), newTestStore(t))

	w := do(h, http.MethodPost, "/v1/missions", `{"route":[{"lat":60,"lng":10}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "name is required")

	w = do(h, http.MethodPut, "/v1/missions/missing", eastRoute)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(h, http.MethodGet, "/v1/missions?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(h, http.MethodGet, "/v1/missions?offset=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMissions_EmptyList(t *testing.T) {
	_, h := newTestServer(t, testConfig(), newTestStore(t))

	w := do(h, http.MethodGet, "/v1/missions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"missions":[],"limit":0,"offset":0}`, strings.TrimSpace(w.Body.String()))
}

func TestCacheEndpoints(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	do(h, http.MethodPost, "/v1/zones", eastRoute)
	do(h, http.MethodPost, "/v1/zones", eastRoute)

	w := do(h, http.MethodGet, "/v1/cache/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats CacheStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	w = do(h, http.MethodDelete, "/v1/cache", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(h, http.MethodPost, "/v1/zones", eastRoute)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 1
	srv, h := newTestServer(t, cfg, nil)

	w := do(h, http.MethodGet, "/v1/cache/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(h, http.MethodGet, "/v1/cache/stats", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.InDelta(t, 1, testutil.ToFloat64(srv.metrics.RateLimited), 0)

	// Health and metrics stay outside the limiter.
	w = do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	do(h, http.MethodGet, "/health", "")
	do(h, http.MethodPost, "/v1/zones", eastRoute)

	w := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `flightzone_http_requests_total{code="200",method="GET",route="/health"} 1`)
	assert.Contains(t, body, `route="/v1/zones"`)
	assert.Contains(t, body, `flightzone_zones_built_total{label="contingency"} 1`)
	assert.Contains(t, body, "flightzone_cache_entries 1")
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.Server.CORSOrigins = []string{"https://planner.example.com"}
	_, h := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodOptions, "/v1/zones", nil)
	req.Header.Set("Origin", "https://planner.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "https://planner.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Zones.Mode = "spiral"
	_, err := New(cfg, nil, nil)
	assert.ErrorIs(t, err, geo.ErrInvalidInput)

	cfg = testConfig()
	cfg.Zones.HullJoin = "square"
	_, err = New(cfg, nil, nil)
	assert.Error(t, err)
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(testConfig(), nil, reg)
	require.NoError(t, err)
	_, err = New(testConfig(), nil, reg)
	assert.Error(t, err)
}
