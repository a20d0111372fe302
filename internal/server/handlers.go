package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/flightzone/internal/geo"
	"github.com/sells-group/flightzone/internal/mission"
	"github.com/sells-group/flightzone/internal/route"
	"github.com/sells-group/flightzone/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"store":          s.store != nil,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCachePurge(w http.ResponseWriter, _ *http.Request) {
	s.cache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

// handleZones computes zones for the route document in the request body.
func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}
	points, _ := doc.Points()
	settings := doc.Settings(s.settings)

	fingerprint, err := json.Marshal(struct {
		Route    []geo.GeoPoint   `json:"route"`
		Settings geo.ZoneSettings `json:"settings"`
	}{points, settings})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	key := cacheKey([]byte("zones"), []byte(format), []byte(doc.Name), fingerprint)

	s.serveZones(w, r, key, format, doc.Name, func() geo.Result {
		return geo.Compose(points, settings, s.opts...)
	})
}

func (s *Server) handleMissionZones(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := s.store.GetMission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	key := cacheKey([]byte("mission"), []byte(format), []byte(m.ID), []byte(m.UpdatedAt.UTC().Format(time.RFC3339Nano)))

	s.serveZones(w, r, key, format, m.Name, func() geo.Result {
		return m.Zones(s.opts...)
	})
}

// serveZones writes the cached response for key, or computes, encodes and
// caches a new one.
func (s *Server) serveZones(w http.ResponseWriter, r *http.Request, key, format, name string, compute func() geo.Result) {
	if body, contentType, ok := s.cache.Get(key); ok {
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Content-Type", contentType)
		w.Write(body) //nolint:errcheck
		return
	}

	res := compute()
	s.metrics.ObserveResult(res)

	body, contentType, err := encodeZones(format, name, res)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.cache.Put(key, body, contentType)

	w.Header().Set("X-Cache", "MISS")
	w.Header().Set("Content-Type", contentType)
	w.Write(body) //nolint:errcheck
}

type missionPage struct {
	Missions []mission.Mission `json:"missions"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.MissionFilter{NameContains: q.Get("name")}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
	}

	missions, err := s.store.ListMissions(r.Context(), filter)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if missions == nil {
		missions = []mission.Mission{}
	}
	writeJSON(w, http.StatusOK, missionPage{Missions: missions, Limit: filter.Limit, Offset: filter.Offset})
}

func (s *Server) handleCreateMission(w http.ResponseWriter, r *http.Request) {
	m, ok := s.readMission(w, r)
	if !ok {
		return
	}
	created, err := s.store.CreateMission(r.Context(), m)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/missions/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetMission(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetMission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMission(w http.ResponseWriter, r *http.Request) {
	m, ok := s.readMission(w, r)
	if !ok {
		return
	}
	m.ID = chi.URLParam(r, "id")
	updated, err := s.store.UpdateMission(r.Context(), m)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMission(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMission(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readDocument parses the request body as a route document, answering 400
// on failure.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (*route.Document, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	doc, err := route.Parse(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return doc, true
}

func (s *Server) readMission(w http.ResponseWriter, r *http.Request) (mission.Mission, bool) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return mission.Mission{}, false
	}
	points, _ := doc.Points()
	m := mission.Mission{
		Name:     doc.Name,
		Route:    points,
		Settings: doc.Settings(s.settings),
	}
	if err := m.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return mission.Mission{}, false
	}
	return m, true
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "mission not found")
		return
	}
	s.internalError(w, r, err)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("server: request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}
