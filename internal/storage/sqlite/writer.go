package sqlite

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/yegors/atc-sim/pkg/logger"
)

// EventWriter persists events from a background goroutine so that logging
// never blocks a controller. When the buffer is full the event is dropped
// and counted.
type EventWriter struct {
	storage *EventStorage
	logger  *logger.Logger
	ch      chan *EventRecord
	done    chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewEventWriter starts the writer goroutine. Call Close to flush it.
func NewEventWriter(storage *EventStorage, buffer int, log *logger.Logger) *EventWriter {
	if buffer <= 0 {
		buffer = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	w := &EventWriter{
		storage: storage,
		logger:  log.Named("event-writer"),
		ch:      make(chan *EventRecord, buffer),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *EventWriter) run() {
	defer close(w.done)
	for rec := range w.ch {
		if _, err := w.storage.StoreEvent(rec); err != nil {
			w.logger.Error("Failed to store event",
				logger.String("actor", rec.Actor),
				logger.String("action", rec.Action),
				logger.Error(err))
		}
	}
}

// Log queues an event. Events logged after Close are ignored.
func (w *EventWriter) Log(actor, action, details string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	rec := &EventRecord{Actor: actor, Action: action, Details: details, Timestamp: time.Now()}
	select {
	case w.ch <- rec:
	default:
		if n := w.dropped.Add(1); n == 1 || n%1000 == 0 {
			w.logger.Warn("Event buffer full, dropping events", logger.Int64("dropped", n))
		}
	}
}

// Dropped is the number of events lost to a full buffer
func (w *EventWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Close stops accepting events and waits until the queued ones are stored
func (w *EventWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	w.mu.Unlock()

	<-w.done
	return nil
}
