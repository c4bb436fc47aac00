package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runwayGrantsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atcsim_runway_grants_total",
			Help: "Runway clearances granted, by airport and operation.",
		},
		[]string{"airport", "operation"},
	)

	clearanceRefusalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atcsim_clearance_refusals_total",
			Help: "Runway clearances refused, by airport, operation and reason.",
		},
		[]string{"airport", "operation", "reason"},
	)

	flightPlansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atcsim_flight_plans_total",
			Help: "Flight plan admission decisions, by result.",
		},
		[]string{"result"},
	)

	conflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atcsim_conflicts_total",
			Help: "En-route separation conflicts resolved by the regional center.",
		},
	)

	handoffsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atcsim_handoffs_total",
			Help: "Aircraft handed from the regional center to an approach controller.",
		},
		[]string{"airport"},
	)

	emergenciesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atcsim_emergencies_total",
			Help: "Emergencies declared, by kind.",
		},
		[]string{"kind"},
	)

	retiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atcsim_aircraft_retired_total",
			Help: "Aircraft removed from the simulation, by reason.",
		},
		[]string{"reason"},
	)

	holdingAircraft = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "atcsim_holding_aircraft",
			Help: "Aircraft currently in an approach holding queue.",
		},
		[]string{"airport"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atcsim_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atcsim_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		runwayGrantsTotal,
		clearanceRefusalsTotal,
		flightPlansTotal,
		conflictsTotal,
		handoffsTotal,
		emergenciesTotal,
		retiredTotal,
		holdingAircraft,
		httpRequestsTotal,
		httpDurationSeconds,
	)
}

// RunwayGranted counts a runway seizure (landing, emergency_landing, takeoff)
func RunwayGranted(airport, operation string) {
	runwayGrantsTotal.WithLabelValues(airport, operation).Inc()
}

// ClearanceRefused counts a refused landing or takeoff
func ClearanceRefused(airport, operation, reason string) {
	clearanceRefusalsTotal.WithLabelValues(airport, operation, reason).Inc()
}

// FlightPlan counts an admission decision; result is "approved" or the
// refusal reason
func FlightPlan(result string) {
	flightPlansTotal.WithLabelValues(result).Inc()
}

func Conflict() {
	conflictsTotal.Inc()
}

func Handoff(airport string) {
	handoffsTotal.WithLabelValues(airport).Inc()
}

func Emergency(kind string) {
	emergenciesTotal.WithLabelValues(kind).Inc()
}

func Retired(reason string) {
	retiredTotal.WithLabelValues(reason).Inc()
}

// SetHolding publishes the current holding queue length of an airport
func SetHolding(airport string, n int) {
	holdingAircraft.WithLabelValues(airport).Set(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// normalizeRoute collapses per-entity paths so label cardinality stays
// bounded by the number of routes, not aircraft or airports.
func normalizeRoute(path string) string {
	switch path {
	case "/metrics", "/api/v1/health", "/api/v1/aircraft", "/api/v1/airports", "/api/v1/events", "/api/v1/ws":
		return path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "v1" {
		return "other"
	}
	switch {
	case parts[2] == "aircraft" && len(parts) == 4:
		return "/api/v1/aircraft/{name}"
	case parts[2] == "aircraft" && len(parts) == 5 && parts[4] == "emergency":
		return "/api/v1/aircraft/{name}/emergency"
	case parts[2] == "airports" && len(parts) == 4:
		return "/api/v1/airports/{name}"
	case parts[2] == "events" && len(parts) == 5 && parts[3] == "actor":
		return "/api/v1/events/actor/{actor}"
	}
	return "other"
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
