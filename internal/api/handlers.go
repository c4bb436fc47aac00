package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/atc-sim/internal/aircraft"
	"github.com/yegors/atc-sim/internal/atc"
	"github.com/yegors/atc-sim/internal/sim"
	"github.com/yegors/atc-sim/internal/storage/sqlite"
	"github.com/yegors/atc-sim/pkg/logger"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// Simulation is the read and control surface the API needs
type Simulation interface {
	Aircraft() []aircraft.Snapshot
	AircraftByName(name string) (aircraft.Snapshot, error)
	Airports() []atc.AirportSnapshot
	AirportByName(name string) (atc.AirportSnapshot, error)
	DeclareEmergency(name string, kind aircraft.Emergency) (bool, error)
}

// EventStore serves persisted controller events
type EventStore interface {
	GetRecentEvents(limit int) ([]*sqlite.EventRecord, error)
	GetEventsByActor(actor string, limit int) ([]*sqlite.EventRecord, error)
	GetEventsByTimeRange(start, end time.Time, limit int) ([]*sqlite.EventRecord, error)
}

// Handler serves the HTTP endpoints
type Handler struct {
	sim            Simulation
	events         EventStore
	snapshotPeriod time.Duration
	started        time.Time
	logger         *logger.Logger
}

// NewHandler creates a handler. events may be nil when persistence is off.
func NewHandler(s Simulation, events EventStore, snapshotPeriod time.Duration, log *logger.Logger) *Handler {
	return &Handler{
		sim:            s,
		events:         events,
		snapshotPeriod: snapshotPeriod,
		started:        time.Now(),
		logger:         log.Named("api-handler"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// GetHealth reports liveness and uptime
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// GetAllAircraft returns every aircraft
func (h *Handler) GetAllAircraft(w http.ResponseWriter, r *http.Request) {
	all := h.sim.Aircraft()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(all),
		"aircraft": all,
	})
}

// GetAircraftByName returns one aircraft
func (h *Handler) GetAircraftByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snap, err := h.sim.AircraftByName(name)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type emergencyRequest struct {
	Kind string `json:"kind"`
}

// DeclareEmergency raises an emergency on an airborne aircraft
func (h *Handler) DeclareEmergency(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req emergencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := aircraft.ParseEmergency(req.Kind)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "kind must be one of fuel, medical, engine_failure")
		return
	}

	applied, err := h.sim.DeclareEmergency(name, kind)
	switch {
	case errors.Is(err, sim.ErrUnknownAircraft):
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, sim.ErrNotAirborne):
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error("Failed to declare emergency", logger.String("aircraft", name), logger.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to declare emergency")
		return
	}

	h.logger.Info("Emergency declared through API",
		logger.String("aircraft", name),
		logger.Stringer("kind", kind),
		logger.Bool("applied", applied))

	snap, err := h.sim.AircraftByName(name)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied":  applied,
		"aircraft": snap,
	})
}

// GetAllAirports returns every airport with its tower and approach state
func (h *Handler) GetAllAirports(w http.ResponseWriter, r *http.Request) {
	all := h.sim.Airports()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(all),
		"airports": all,
	})
}

// GetAirportByName returns one airport
func (h *Handler) GetAirportByName(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sim.AirportByName(chi.URLParam(r, "name"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// parseLimit reads ?limit=N, falling back to the default and capping at the max
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultEventLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(limit, maxEventLimit), nil
}

// parseTimeRange reads ?since= and ?until= (RFC 3339). ok is false when
// neither is set. A missing since means the beginning, a missing until now.
func parseTimeRange(r *http.Request) (since, until time.Time, ok bool, err error) {
	q := r.URL.Query()
	rawSince, rawUntil := q.Get("since"), q.Get("until")
	if rawSince == "" && rawUntil == "" {
		return time.Time{}, time.Time{}, false, nil
	}

	until = time.Now()
	if rawSince != "" {
		if since, err = time.Parse(time.RFC3339Nano, rawSince); err != nil {
			return time.Time{}, time.Time{}, false, errors.New("since must be an RFC 3339 timestamp")
		}
	}
	if rawUntil != "" {
		if until, err = time.Parse(time.RFC3339Nano, rawUntil); err != nil {
			return time.Time{}, time.Time{}, false, errors.New("until must be an RFC 3339 timestamp")
		}
	}
	if until.Before(since) {
		return time.Time{}, time.Time{}, false, errors.New("until is before since")
	}
	return since, until, true, nil
}

// GetRecentEvents returns the newest persisted events, optionally restricted
// to a time window
func (h *Handler) GetRecentEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "event storage is disabled")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	since, until, windowed, err := parseTimeRange(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var records []*sqlite.EventRecord
	if windowed {
		records, err = h.events.GetEventsByTimeRange(since, until, limit)
	} else {
		records, err = h.events.GetRecentEvents(limit)
	}
	if err != nil {
		h.logger.Error("Failed to read events", logger.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to read events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(records),
		"events": records,
	})
}

// GetEventsByActor returns the newest events from one controller or actor
func (h *Handler) GetEventsByActor(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "event storage is disabled")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := chi.URLParam(r, "actor")
	records, err := h.events.GetEventsByActor(actor, limit)
	if err != nil {
		h.logger.Error("Failed to read events", logger.String("actor", actor), logger.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to read events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"actor":  actor,
		"count":  len(records),
		"events": records,
	})
}
