package aircraft

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/internal/geo"
)

const (
	// FuelEmergencyLevel triggers an automatic fuel emergency
	FuelEmergencyLevel = 1000.0
	// MaintenanceFuel is the minimum fuel guaranteed after maintenance
	MaintenanceFuel = 10000.0
	// GroundBurnFactor scales the burn rate while taxiing
	GroundBurnFactor = 0.05
)

// ErrInvalidAircraft is returned when construction parameters are out of range
var ErrInvalidAircraft = errors.New("invalid aircraft")

// Params holds everything needed to build an aircraft
type Params struct {
	Name        string
	CruiseSpeed float64
	TaxiSpeed   float64
	Fuel        float64
	BurnRate    float64
	Turnaround  time.Duration
	Position    geo.Position
}

// Aircraft is shared between its driver and every controller that currently
// handles it. All mutable fields are guarded by mu. Exported methods take the
// lock; unexported helpers expect it to be held, so one method can build on
// another without locking twice.
type Aircraft struct {
	name        string
	cruiseSpeed float64
	taxiSpeed   float64
	burnRate    float64
	turnaround  time.Duration
	events      eventlog.Sink

	mu          sync.Mutex
	fuel        float64
	pos         geo.Position
	state       State
	stand       string
	destination string
	emergency   Emergency
	path        []geo.Position
}

// New validates p and creates a stationed aircraft
func New(p Params, events eventlog.Sink) (*Aircraft, error) {
	switch {
	case p.Name == "":
		return nil, fmt.Errorf("%w: empty name", ErrInvalidAircraft)
	case p.CruiseSpeed <= 0 || p.TaxiSpeed <= 0:
		return nil, fmt.Errorf("%w: %s: speeds must be positive", ErrInvalidAircraft, p.Name)
	case p.Fuel < 0:
		return nil, fmt.Errorf("%w: %s: negative fuel", ErrInvalidAircraft, p.Name)
	case p.BurnRate < 0:
		return nil, fmt.Errorf("%w: %s: negative burn rate", ErrInvalidAircraft, p.Name)
	case p.Turnaround < 0:
		return nil, fmt.Errorf("%w: %s: negative turnaround", ErrInvalidAircraft, p.Name)
	}
	if events == nil {
		events = eventlog.Nop{}
	}

	return &Aircraft{
		name:        p.Name,
		cruiseSpeed: p.CruiseSpeed,
		taxiSpeed:   p.TaxiSpeed,
		burnRate:    p.BurnRate,
		turnaround:  p.Turnaround,
		events:      events,
		fuel:        p.Fuel,
		pos:         p.Position,
		state:       Stationed,
	}, nil
}

// Name is immutable and can be read without locking
func (a *Aircraft) Name() string { return a.name }

func (a *Aircraft) CruiseSpeed() float64 { return a.cruiseSpeed }
func (a *Aircraft) TaxiSpeed() float64 { return a.taxiSpeed }
func (a *Aircraft) BurnRate() float64 { return a.burnRate }
func (a *Aircraft) Turnaround() time.Duration { return a.turnaround }

func (a *Aircraft) Fuel() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fuel
}

func (a *Aircraft) Position() geo.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos
}

func (a *Aircraft) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Stand is the name of the assigned parking stand, empty when none
func (a *Aircraft) Stand() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stand
}

// Destination is the name of the destination airport, empty when none
func (a *Aircraft) Destination() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.destination
}

func (a *Aircraft) Emergency() Emergency {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emergency
}

func (a *Aircraft) InEmergency() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emergency != EmergencyNone
}

// Path returns a copy of the remaining waypoints
func (a *Aircraft) Path() []geo.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.path)
}

// PathEmpty avoids copying the path when only its emptiness matters
func (a *Aircraft) PathEmpty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.path) == 0
}

func (a *Aircraft) SetPosition(p geo.Position) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos = p
}

// NudgeAltitude shifts the altitude by delta in one locked step
func (a *Aircraft) NudgeAltitude(delta float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos.Alt += delta
}

// SetPath replaces the pending waypoints
func (a *Aircraft) SetPath(path []geo.Position) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.path = slices.Clone(path)
}

// SetState moves the aircraft to s. Retired is terminal: once there, later
// calls are ignored and false is returned.
func (a *Aircraft) SetState(s State) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setState(s)
}

func (a *Aircraft) setState(s State) bool {
	if a.state == Retired {
		return false
	}
	a.state = s
	return true
}

func (a *Aircraft) SetStand(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stand = name
}

func (a *Aircraft) SetDestination(airport string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destination = airport
}

// AdvanceAirborne flies the aircraft for dt seconds along its path at cruise
// speed. Running out of fuel retires the aircraft.
func (a *Aircraft) AdvanceAirborne(dt float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.path) == 0 || a.state == Retired {
		return
	}

	burn := a.burnRate * dt
	if a.fuel < burn {
		a.fuel = 0
		a.setState(Retired)
		a.events.Log(eventlog.ActorAircraft, "CRASH", fmt.Sprintf("Aircraft %s crashed: out of fuel at %s", a.name, a.pos))
		return
	}

	a.moveTowardNext(a.cruiseSpeed * dt)
	a.fuel -= burn

	if a.fuel < FuelEmergencyLevel && a.emergency == EmergencyNone {
		a.declare(EmergencyFuel)
	}
}

// GroundResult reports what happened during a ground step
type GroundResult struct {
	// ReleasedStand is the stand vacated on reaching the runway threshold.
	// The caller hands it back to the owning tower.
	ReleasedStand string
	// Arrived is set when the last waypoint was reached
	Arrived bool
}

// AdvanceGround moves the aircraft for dt seconds at taxi speed, burning a
// fraction of its airborne rate.
func (a *Aircraft) AdvanceGround(dt float64) GroundResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	var res GroundResult
	if len(a.path) == 0 || a.state == Retired {
		return res
	}

	burn := a.burnRate * GroundBurnFactor * dt
	if a.fuel < burn {
		a.fuel = 0
		a.setState(Retired)
		a.events.Log(eventlog.ActorAircraft, "CRASH", fmt.Sprintf("Aircraft %s out of fuel on the ground", a.name))
		return res
	}

	if a.moveTowardNext(a.taxiSpeed*dt) && len(a.path) == 0 {
		res.Arrived = true
		switch a.state {
		case TaxiToRunway:
			a.state = AtRunwayThreshold
			res.ReleasedStand = a.stand
			a.stand = ""
		case TaxiToParking:
			a.state = Stationed
		}
	}

	a.fuel -= burn
	return res
}

// moveTowardNext moves up to dist toward the first waypoint and reports
// whether it was reached (and popped)
func (a *Aircraft) moveTowardNext(dist float64) bool {
	target := a.path[0]
	dir := target.Sub(a.pos)
	remaining := dir.Norm()

	if remaining <= dist {
		a.pos = target
		a.path = a.path[1:]
		return true
	}
	a.pos = a.pos.Add(dir.Scale(dist / remaining))
	return false
}

// DeclareEmergency raises kind unless an emergency is already active. It
// reports whether the declaration took effect.
func (a *Aircraft) DeclareEmergency(kind Emergency) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.emergency != EmergencyNone || kind == EmergencyNone {
		return false
	}
	a.declare(kind)
	return true
}

func (a *Aircraft) declare(kind Emergency) {
	a.emergency = kind
	a.events.Log(eventlog.ActorAircraft, "MAYDAY", fmt.Sprintf("Aircraft %s declares %s emergency", a.name, kind))
}

// PerformMaintenance refuels to at least MaintenanceFuel and clears any
// active emergency. Calling it twice is harmless. Retired aircraft are left
// untouched.
func (a *Aircraft) PerformMaintenance() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == Retired {
		return
	}
	if a.fuel < MaintenanceFuel {
		a.fuel = MaintenanceFuel
	}
	if a.emergency != EmergencyNone {
		a.events.Log(eventlog.ActorMaintenance, "Emergency resolved", fmt.Sprintf("Aircraft %s: %s emergency cleared", a.name, a.emergency))
		a.emergency = EmergencyNone
	}
}

// Snapshot is a read-only copy of an aircraft for presentation
type Snapshot struct {
	Name        string         `json:"name"`
	State       State          `json:"state"`
	Position    geo.Position   `json:"position"`
	Fuel        float64        `json:"fuel"`
	Emergency   Emergency      `json:"emergency"`
	Destination string         `json:"destination,omitempty"`
	Stand       string         `json:"stand,omitempty"`
	Path        []geo.Position `json:"path"`
}

// Snapshot copies the current state under a single lock
func (a *Aircraft) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Name:        a.name,
		State:       a.state,
		Position:    a.pos,
		Fuel:        a.fuel,
		Emergency:   a.emergency,
		Destination: a.destination,
		Stand:       a.stand,
		Path:        slices.Clone(a.path),
	}
}
