package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/atc-sim/internal/metrics"
	"github.com/yegors/atc-sim/pkg/logger"
)

// Router is the API router
type Router struct {
	handler        *Handler
	middleware     *Middleware
	allowedOrigins []string
	logger         *logger.Logger
}

// NewRouter creates a new API router. events may be nil.
func NewRouter(s Simulation, events EventStore, allowedOrigins []string, snapshotPeriod time.Duration, logger *logger.Logger) *Router {
	return &Router{
		handler:        NewHandler(s, events, snapshotPeriod, logger),
		middleware:     NewMiddleware(logger),
		allowedOrigins: allowedOrigins,
		logger:         logger.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.Metrics)
	router.Use(r.middleware.CORS(r.allowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		// Aircraft routes
		router.Get("/aircraft", r.handler.GetAllAircraft)
		router.Get("/aircraft/{name}", r.handler.GetAircraftByName)
		router.Post("/aircraft/{name}/emergency", r.handler.DeclareEmergency)

		// Airport routes
		router.Get("/airports", r.handler.GetAllAirports)
		router.Get("/airports/{name}", r.handler.GetAirportByName)

		// Event log routes
		router.Get("/events", r.handler.GetRecentEvents)
		router.Get("/events/actor/{actor}", r.handler.GetEventsByActor)

		// WebSocket route
		router.Handle("/ws", r.handler.HandleWebSocket())

		// Health check
		router.Get("/health", r.handler.GetHealth)
	})

	router.Handle("/metrics", metrics.Handler())

	return router
}
