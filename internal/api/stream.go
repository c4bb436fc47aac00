package api

import (
	"slices"
	"time"

	"golang.org/x/net/websocket"

	"github.com/yegors/atc-sim/internal/aircraft"
	"github.com/yegors/atc-sim/pkg/logger"
)

// Change types pushed on the websocket stream
const (
	ChangeAdded   = "added"
	ChangeUpdated = "updated"
	ChangeRemoved = "removed"
)

// AircraftChange is one entry of a stream update
type AircraftChange struct {
	Type     string             `json:"type"`
	Name     string             `json:"name"`
	Aircraft *aircraft.Snapshot `json:"aircraft,omitempty"`
}

// StreamMessage is one websocket frame
type StreamMessage struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Changes   []AircraftChange `json:"changes"`
}

// ChangeDetector tracks aircraft changes between snapshot cycles. It is
// owned by a single stream and is not safe for concurrent use.
type ChangeDetector struct {
	previous map[string]aircraft.Snapshot
}

func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{previous: make(map[string]aircraft.Snapshot)}
}

// DetectChanges compares current with the previous cycle. Changes come out
// in the order of current, removals last in name order.
func (cd *ChangeDetector) DetectChanges(current []aircraft.Snapshot) []AircraftChange {
	changes := []AircraftChange{}
	currentMap := make(map[string]aircraft.Snapshot, len(current))

	for i := range current {
		snap := current[i]
		currentMap[snap.Name] = snap

		previous, exists := cd.previous[snap.Name]
		switch {
		case !exists:
			changes = append(changes, AircraftChange{Type: ChangeAdded, Name: snap.Name, Aircraft: &snap})
		case hasAnyChanges(previous, snap):
			changes = append(changes, AircraftChange{Type: ChangeUpdated, Name: snap.Name, Aircraft: &snap})
		}
	}

	var removed []string
	for name := range cd.previous {
		if _, exists := currentMap[name]; !exists {
			removed = append(removed, name)
		}
	}
	slices.Sort(removed)
	for _, name := range removed {
		changes = append(changes, AircraftChange{Type: ChangeRemoved, Name: name})
	}

	cd.previous = currentMap
	return changes
}

// hasAnyChanges reports whether any visible field moved, no thresholds
func hasAnyChanges(previous, current aircraft.Snapshot) bool {
	return !previous.Position.Equal(current.Position) ||
		previous.State != current.State ||
		previous.Fuel != current.Fuel ||
		previous.Emergency != current.Emergency ||
		previous.Destination != current.Destination ||
		previous.Stand != current.Stand ||
		!slices.Equal(previous.Path, current.Path)
}

// HandleWebSocket streams aircraft changes. The first frame carries every
// aircraft as added; after that only changes are sent, one frame per
// snapshot period that has any.
func (h *Handler) HandleWebSocket() websocket.Handler {
	return func(ws *websocket.Conn) {
		defer ws.Close()

		log := h.logger.With(logger.String("remote_addr", ws.Request().RemoteAddr))
		log.Info("WebSocket client connected")
		defer log.Info("WebSocket client disconnected")

		// The client never sends anything useful; a read error means it left.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			var discard string
			for websocket.Message.Receive(ws, &discard) == nil {
			}
		}()

		detector := NewChangeDetector()
		ctx := ws.Request().Context()
		ticker := time.NewTicker(h.snapshotPeriod)
		defer ticker.Stop()

		send := func(msgType string) bool {
			changes := detector.DetectChanges(h.sim.Aircraft())
			if len(changes) == 0 && msgType != "snapshot" {
				return true
			}
			msg := StreamMessage{Type: msgType, Timestamp: time.Now().UTC(), Changes: changes}
			if err := websocket.JSON.Send(ws, msg); err != nil {
				log.Debug("WebSocket send failed", logger.Error(err))
				return false
			}
			return true
		}

		if !send("snapshot") {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-gone:
				return
			case <-ticker.C:
				if !send("changes") {
					return
				}
			}
		}
	}
}
