package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/metrics", "/metrics"},
		{"/api/v1/health", "/api/v1/health"},
		{"/api/v1/aircraft", "/api/v1/aircraft"},
		{"/api/v1/airports", "/api/v1/airports"},
		{"/api/v1/events", "/api/v1/events"},
		{"/api/v1/ws", "/api/v1/ws"},

		{"/api/v1/aircraft/AF123", "/api/v1/aircraft/{name}"},
		{"/api/v1/aircraft/BA9/emergency", "/api/v1/aircraft/{name}/emergency"},
		{"/api/v1/airports/LFPG", "/api/v1/airports/{name}"},
		{"/api/v1/events/actor/TWR", "/api/v1/events/actor/{actor}"},

		{"/wp-admin", "other"},
		{"/api/v2/aircraft/X", "other"},
		{"/api/v1/aircraft/X/unknown", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizeRoute(tt.path); got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(runwayGrantsTotal.WithLabelValues("TEST", "landing"))
	RunwayGranted("TEST", "landing")
	RunwayGranted("TEST", "landing")
	if got := testutil.ToFloat64(runwayGrantsTotal.WithLabelValues("TEST", "landing")); got != before+2 {
		t.Errorf("runway grants = %v, want %v", got, before+2)
	}

	SetHolding("TEST", 3)
	if got := testutil.ToFloat64(holdingAircraft.WithLabelValues("TEST")); got != 3 {
		t.Errorf("holding gauge = %v, want 3", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/aircraft/ZZ1", nil))

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	want := `atcsim_http_requests_total{code="418",method="GET",path="/api/v1/aircraft/{name}"}`
	if !strings.Contains(body, want) {
		t.Errorf("metrics output missing %s", want)
	}
}
