package aircraft

import "fmt"

// State is the lifecycle phase of an aircraft
type State int

const (
	// Stationed: parked at a stand
	Stationed State = iota
	// TaxiToRunway: left the stand, rolling to the runway threshold
	TaxiToRunway
	// HoldingForTakeoff: still at the stand, queued for departure
	HoldingForTakeoff
	// AtRunwayThreshold: lined up, waiting for the runway
	AtRunwayThreshold
	Takeoff
	Cruise
	Approach
	// HoldingForLanding: flying the holding loop around the destination
	HoldingForLanding
	Landing
	TaxiToParking
	// Retired is terminal (crash, disposal or shutdown)
	Retired
)

var stateNames = map[State]string{
	Stationed:         "STATIONED",
	TaxiToRunway:      "TAXI_TO_RUNWAY",
	HoldingForTakeoff: "HOLDING_FOR_TAKEOFF",
	AtRunwayThreshold: "AT_RUNWAY_THRESHOLD",
	Takeoff:           "TAKEOFF",
	Cruise:            "CRUISE",
	Approach:          "APPROACH",
	HoldingForLanding: "HOLDING_FOR_LANDING",
	Landing:           "LANDING",
	TaxiToParking:     "TAXI_TO_PARKING",
	Retired:           "RETIRED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(%d)", int(s))
}

// MarshalText renders the state name in JSON snapshots
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state: %q", text)
}

// OnGround reports whether the state is a ground phase
func (s State) OnGround() bool {
	switch s {
	case Stationed, TaxiToRunway, HoldingForTakeoff, AtRunwayThreshold, TaxiToParking:
		return true
	}
	return false
}

// Emergency is the kind of emergency an aircraft has declared
type Emergency int

const (
	EmergencyNone Emergency = iota
	EmergencyEngineFailure
	EmergencyMedical
	EmergencyFuel
)

var emergencyNames = map[Emergency]string{
	EmergencyNone:          "none",
	EmergencyEngineFailure: "engine_failure",
	EmergencyMedical:       "medical",
	EmergencyFuel:          "fuel",
}

func (e Emergency) String() string {
	if name, ok := emergencyNames[e]; ok {
		return name
	}
	return fmt.Sprintf("emergency(%d)", int(e))
}

// MarshalText renders the emergency kind in JSON snapshots
func (e Emergency) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Emergency) UnmarshalText(text []byte) error {
	for kind, name := range emergencyNames {
		if name == string(text) {
			*e = kind
			return nil
		}
	}
	return fmt.Errorf("unknown emergency kind: %q", text)
}

// ParseEmergency maps a name back to an emergency kind. "none" is rejected
// since an emergency can only be cleared by maintenance.
func ParseEmergency(s string) (Emergency, error) {
	for kind, name := range emergencyNames {
		if name == s && kind != EmergencyNone {
			return kind, nil
		}
	}
	return EmergencyNone, fmt.Errorf("unknown emergency kind: %q", s)
}
