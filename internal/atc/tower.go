package atc

import (
	"fmt"
	"slices"
	"sync"

	"github.com/yegors/atc-sim/internal/aircraft"
	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/internal/geo"
	"github.com/yegors/atc-sim/internal/metrics"
	"github.com/yegors/atc-sim/pkg/logger"
)

const (
	// taxiwayOffset is the distance between the runway line and the taxiway
	taxiwayOffset = 200.0
	// takeoffRoll and climbOut shape the departure path
	takeoffRoll     = 1500.0
	climbOut        = 21500.0
	climbOutAlt     = 3000.0
	landingRollDist = 1500.0
)

// Turn alternates runway use between departures and arrivals
type Turn int

const (
	TurnTakeoff Turn = iota
	TurnLanding
)

func (t Turn) String() string {
	if t == TurnLanding {
		return "landing"
	}
	return "takeoff"
}

func (t Turn) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Tower owns one airport's runway and stands. It decides who uses the runway
// next and keeps the departure queue.
type Tower struct {
	airport string
	runway  geo.Position
	events  eventlog.Sink
	logger  *logger.Logger

	mu                  sync.Mutex
	runwayFree          bool
	stands              []*Stand
	departures          []*aircraft.Aircraft
	turn                Turn
	emergencyInProgress bool
	landingRequested    bool
}

func NewTower(airport string, stands []*Stand, runway geo.Position, events eventlog.Sink, log *logger.Logger) (*Tower, error) {
	if len(stands) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoStands, airport)
	}
	for _, s := range stands {
		if s == nil {
			return nil, fmt.Errorf("tower %s: %w", airport, ErrNilStand)
		}
	}
	if events == nil {
		events = eventlog.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Tower{
		airport:    airport,
		runway:     runway,
		events:     events,
		logger:     log,
		runwayFree: true,
		stands:     stands,
		turn:       TurnTakeoff,
	}, nil
}

func (t *Tower) Airport() string { return t.airport }

// RunwayPosition is fixed at construction and needs no lock
func (t *Tower) RunwayPosition() geo.Position { return t.runway }

// RequestLandingClearance grants the runway to ac when allowed and moves it
// to LANDING. Emergencies always win. Otherwise the runway must be free, a
// stand must be available, and on the takeoff turn an aircraft lined up at
// the threshold goes first.
func (t *Tower) RequestLandingClearance(ac *aircraft.Aircraft) bool {
	if ac == nil {
		t.logger.Error("Landing clearance requested for nil aircraft")
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if ac.InEmergency() {
		t.runwayFree = false
		ac.SetState(aircraft.Landing)
		t.events.Log(eventlog.ActorTower, "Emergency landing", fmt.Sprintf("Runway %s seized by %s", t.airport, ac.Name()))
		metrics.RunwayGranted(t.airport, "emergency_landing")
		return true
	}

	var reason string
	switch {
	case !t.runwayFree:
		reason = "runway_busy"
	case !t.hasFreeStand():
		reason = "no_stand"
	case t.turn == TurnTakeoff && t.departureLinedUp():
		reason = "takeoff_turn"
	}
	if reason != "" {
		t.logger.Debug("Landing refused",
			logger.String("aircraft", ac.Name()),
			logger.String("reason", reason))
		metrics.ClearanceRefused(t.airport, "landing", reason)
		return false
	}

	t.runwayFree = false
	t.turn = TurnTakeoff
	ac.SetState(aircraft.Landing)
	t.events.Log(eventlog.ActorTower, "Landing clearance", fmt.Sprintf("%s cleared to land at %s", ac.Name(), t.airport))
	metrics.RunwayGranted(t.airport, "landing")
	return true
}

// SelectForDeparture picks the departure to handle next. An aircraft already
// lined up is returned as is. Otherwise, when nobody is taxiing, the queued
// aircraft parked farthest from the runway starts its taxi and nil is
// returned.
func (t *Tower) SelectForDeparture() *aircraft.Aircraft {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.departures) == 0 {
		return nil
	}

	for _, ac := range t.departures {
		if ac.State() == aircraft.AtRunwayThreshold {
			return ac
		}
	}
	for _, ac := range t.departures {
		if ac.State() == aircraft.TaxiToRunway {
			return nil
		}
	}

	var (
		best      *aircraft.Aircraft
		bestStand *Stand
		maxDist   = -1.0
	)
	for _, ac := range t.departures {
		if ac.State() != aircraft.HoldingForTakeoff {
			continue
		}
		stand := t.standByName(ac.Stand())
		if stand == nil {
			continue
		}
		if d := stand.DistanceTo(t.runway); d > maxDist {
			best, bestStand, maxDist = ac, stand, d
		}
	}
	if best == nil {
		return nil
	}

	sp := bestStand.pos
	best.SetPath([]geo.Position{
		geo.New(sp.X, t.runway.Y+taxiwayOffset, 0),
		geo.New(t.runway.X, t.runway.Y+taxiwayOffset, 0),
		geo.New(t.runway.X, t.runway.Y, 0),
	})
	best.SetState(aircraft.TaxiToRunway)
	t.events.Log(eventlog.ActorTower, "Taxi to runway", fmt.Sprintf("%s leaves %s for the runway at %s", best.Name(), bestStand.name, t.airport))
	return nil
}

// AuthorizeDeparture clears ac for takeoff and gives it the climb-out path.
// Only an aircraft at the threshold qualifies, and only when the runway is
// free and no emergency is being handled. On the landing turn a pending
// arrival goes first, unless it would have nowhere to park.
func (t *Tower) AuthorizeDeparture(ac *aircraft.Aircraft) bool {
	if ac == nil {
		t.logger.Error("Takeoff clearance requested for nil aircraft")
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var reason string
	switch {
	case ac.State() != aircraft.AtRunwayThreshold:
		reason = "not_lined_up"
	case !t.runwayFree:
		reason = "runway_busy"
	case t.emergencyInProgress:
		reason = "emergency"
	case t.turn == TurnLanding && t.landingRequested && t.hasFreeStand():
		reason = "landing_turn"
	}
	if reason != "" {
		metrics.ClearanceRefused(t.airport, "takeoff", reason)
		return false
	}

	t.runwayFree = false
	t.turn = TurnLanding

	r := t.runway
	ac.SetPath([]geo.Position{
		geo.New(r.X+takeoffRoll, r.Y, 0),
		geo.New(r.X+climbOut, r.Y, climbOutAlt),
	})
	ac.SetState(aircraft.Takeoff)
	t.events.Log(eventlog.ActorTower, "Takeoff", fmt.Sprintf("%s cleared for takeoff from %s", ac.Name(), t.airport))
	metrics.RunwayGranted(t.airport, "takeoff")
	return true
}

// ClaimFreeStand finds a free stand and assigns it to ac in one step, so two
// arrivals can never pick the same stand. It returns a nil stand when every
// stand is taken.
func (t *Tower) ClaimFreeStand(ac *aircraft.Aircraft) (*Stand, error) {
	if ac == nil {
		return nil, ErrNilAircraft
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.stands {
		if !s.occupied {
			t.assignParking(ac, s)
			return s, nil
		}
	}
	return nil, nil
}

// AssignParking reserves stand for ac. When ac was the emergency being
// handled here, the airport's emergency flag is cleared.
func (t *Tower) AssignParking(ac *aircraft.Aircraft, stand *Stand) error {
	if ac == nil {
		return ErrNilAircraft
	}
	if stand == nil {
		return ErrNilStand
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !slices.Contains(t.stands, stand) {
		return fmt.Errorf("%w: %s", ErrUnknownStand, stand.name)
	}
	if stand.occupied {
		return fmt.Errorf("%w: %s", ErrStandOccupied, stand.name)
	}
	t.assignParking(ac, stand)
	return nil
}

func (t *Tower) assignParking(ac *aircraft.Aircraft, stand *Stand) {
	ac.SetStand(stand.name)
	stand.occupied = true
	if ac.InEmergency() {
		t.emergencyInProgress = false
	}
	t.events.Log(eventlog.ActorTower, "Parking", fmt.Sprintf("%s assigned stand %s", ac.Name(), stand.name))
}

// PlanTaxiToParking routes ac from the runway to stand along the taxiway
func (t *Tower) PlanTaxiToParking(ac *aircraft.Aircraft, stand *Stand) error {
	if ac == nil {
		return ErrNilAircraft
	}
	if stand == nil {
		return ErrNilStand
	}

	r := t.runway
	ac.SetPath([]geo.Position{
		geo.New(r.X, r.Y, 0),
		geo.New(r.X, r.Y+taxiwayOffset, 0),
		geo.New(stand.pos.X, r.Y+taxiwayOffset, 0),
		stand.pos,
	})
	ac.SetState(aircraft.TaxiToParking)
	return nil
}

// RegisterForDeparture queues ac for takeoff. Registering twice is a no-op.
func (t *Tower) RegisterForDeparture(ac *aircraft.Aircraft) error {
	if ac == nil {
		return ErrNilAircraft
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if slices.Contains(t.departures, ac) {
		return nil
	}
	t.departures = append(t.departures, ac)
	ac.SetState(aircraft.HoldingForTakeoff)
	t.logger.Debug("Departure queued",
		logger.String("aircraft", ac.Name()),
		logger.Int("queue", len(t.departures)))
	return nil
}

// RemoveFromDepartureQueue drops a departed aircraft and frees the runway
func (t *Tower) RemoveFromDepartureQueue(ac *aircraft.Aircraft) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := slices.Index(t.departures, ac)
	if i < 0 {
		return
	}
	t.departures = slices.Delete(t.departures, i, i+1)
	t.runwayFree = true
}

// Withdraw forgets ac after it was lost on the ground: it leaves the
// departure queue and its stand, if it holds one here, is freed. The runway
// flag is left alone.
func (t *Tower) Withdraw(ac *aircraft.Aircraft) {
	if ac == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if i := slices.Index(t.departures, ac); i >= 0 {
		t.departures = slices.Delete(t.departures, i, i+1)
	}
	if s := t.standByName(ac.Stand()); s != nil {
		s.occupied = false
	}
}

// ReleaseStand frees the named stand. It reports false for unknown names.
func (t *Tower) ReleaseStand(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.standByName(name)
	if s == nil {
		return false
	}
	s.occupied = false
	return true
}

func (t *Tower) ReleaseRunway() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runwayFree = true
}

func (t *Tower) RunwayFree() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runwayFree
}

// SetLandingRequested is refreshed by the approach controller on every tick
func (t *Tower) SetLandingRequested(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.landingRequested = v
}

func (t *Tower) SetEmergencyInProgress(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emergencyInProgress = v
}

func (t *Tower) EmergencyInProgress() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.emergencyInProgress
}

func (t *Tower) HasFreeStand() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasFreeStand()
}

func (t *Tower) hasFreeStand() bool {
	for _, s := range t.stands {
		if !s.occupied {
			return true
		}
	}
	return false
}

func (t *Tower) departureLinedUp() bool {
	for _, ac := range t.departures {
		if ac.State() == aircraft.AtRunwayThreshold {
			return true
		}
	}
	return false
}

func (t *Tower) standByName(name string) *Stand {
	if name == "" {
		return nil
	}
	for _, s := range t.stands {
		if s.name == name {
			return s
		}
	}
	return nil
}

// TowerSnapshot is a read-only view of a tower
type TowerSnapshot struct {
	RunwayFree          bool            `json:"runway_free"`
	Runway              geo.Position    `json:"runway"`
	Turn                Turn            `json:"turn"`
	EmergencyInProgress bool            `json:"emergency_in_progress"`
	LandingRequested    bool            `json:"landing_requested"`
	Departures          []string        `json:"departures"`
	Stands              []StandSnapshot `json:"stands"`
}

func (t *Tower) Snapshot() TowerSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := TowerSnapshot{
		RunwayFree:          t.runwayFree,
		Runway:              t.runway,
		Turn:                t.turn,
		EmergencyInProgress: t.emergencyInProgress,
		LandingRequested:    t.landingRequested,
		Departures:          make([]string, 0, len(t.departures)),
		Stands:              make([]StandSnapshot, 0, len(t.stands)),
	}
	for _, ac := range t.departures {
		snap.Departures = append(snap.Departures, ac.Name())
	}
	for _, s := range t.stands {
		snap.Stands = append(snap.Stands, StandSnapshot{Name: s.name, Position: s.pos, Occupied: s.occupied})
	}
	return snap
}
