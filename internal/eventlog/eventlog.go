package eventlog

import (
	"sync"
	"time"

	"github.com/yegors/atc-sim/pkg/logger"
)

// Actors used by the simulation core
const (
	ActorAircraft    = "AIRCRAFT"
	ActorTower       = "TWR"
	ActorApproach    = "APP"
	ActorCenter      = "CCR"
	ActorMaintenance = "MAINTENANCE"
)

// Sink receives simulation events. Implementations must be safe for
// concurrent use and must never block callers on failure.
type Sink interface {
	Log(actor, action, details string)
}

// Event is one recorded entry
type Event struct {
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Nop discards everything
type Nop struct{}

// Log implements Sink
func (Nop) Log(actor, action, details string) {}

// LoggerSink mirrors events to the structured application log
type LoggerSink struct {
	logger *logger.Logger
}

// NewLoggerSink creates a sink writing through the given logger
func NewLoggerSink(log *logger.Logger) *LoggerSink {
	return &LoggerSink{logger: log.Named("events")}
}

// Log implements Sink
func (s *LoggerSink) Log(actor, action, details string) {
	s.logger.Info(action,
		logger.String("actor", actor),
		logger.String("details", details),
	)
}

// Multi fans every event out to all of its sinks in order
type Multi []Sink

// Log implements Sink
func (m Multi) Log(actor, action, details string) {
	for _, s := range m {
		s.Log(actor, action, details)
	}
}

// Recorder keeps events in memory. Useful for tests and for short-lived tools.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Log implements Sink
func (r *Recorder) Log(actor, action, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{
		Actor:     actor,
		Action:    action,
		Details:   details,
		Timestamp: time.Now(),
	})
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Find returns the recorded events matching actor and action
func (r *Recorder) Find(actor, action string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Actor == actor && e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
