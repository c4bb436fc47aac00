package atc

import (
	"sync"
	"time"
)

// DefaultPlanSpacing is the minimum interval between two approvals on the
// same origin/destination pair
const DefaultPlanSpacing = 15 * time.Second

// Flight plan refusal reasons, also used as metric labels
const (
	RefusalSaturated = "destination_saturated"
	RefusalNoStand   = "no_stand"
	RefusalSpacing   = "spacing"
)

type route struct {
	origin, destination string
}

// FlightPlanTable remembers when each route was last approved. It is shared
// by every aircraft looking for a new destination.
type FlightPlanTable struct {
	spacing time.Duration
	now     func() time.Time

	mu   sync.Mutex
	last map[route]time.Time
}

// NewFlightPlanTable uses time.Now when now is nil
func NewFlightPlanTable(spacing time.Duration, now func() time.Time) *FlightPlanTable {
	if now == nil {
		now = time.Now
	}
	return &FlightPlanTable{
		spacing: spacing,
		now:     now,
		last:    make(map[route]time.Time),
	}
}

// Admit approves a flight from origin to destination and records the time,
// or returns the refusal reason. The destination must have an empty holding
// queue and a free stand.
func (t *FlightPlanTable) Admit(origin, destination *Airport) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if destination.Approach.HoldingCount() > 0 {
		return false, RefusalSaturated
	}
	if !destination.Tower.HasFreeStand() {
		return false, RefusalNoStand
	}

	key := route{origin.Name, destination.Name}
	now := t.now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.spacing {
		return false, RefusalSpacing
	}
	t.last[key] = now
	return true, ""
}
