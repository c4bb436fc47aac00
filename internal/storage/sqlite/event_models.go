package sqlite

import "time"

// EventRecord is one persisted controller or aircraft event
type EventRecord struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"actor"`   // AIRCRAFT, TWR, APP, CCR, MAINTENANCE
	Action    string    `json:"action"`  // e.g. "Takeoff", "Handoff", "MAYDAY"
	Details   string    `json:"details"` // free text
	Timestamp time.Time `json:"timestamp"`
}
