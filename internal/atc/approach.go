package atc

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/yegors/atc-sim/internal/aircraft"
	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/internal/geo"
	"github.com/yegors/atc-sim/internal/metrics"
	"github.com/yegors/atc-sim/pkg/logger"
)

const (
	holdingTurns    = 5
	holdingStepDeg  = 10
	holdingAltitude = 2000.0
	emergencyAlt    = 1000.0
)

// approachFix is one waypoint of the standard arrival, relative to the runway
type approachFix struct {
	north, alt float64
}

var approachFixes = []approachFix{
	{20000, 4000},
	{10000, 2000},
	{3000, 1000},
	{1000, 500},
}

// Approach sequences arrivals inside one airport's control zone. Aircraft
// that cannot land right away fly a holding loop and wait in a FIFO queue.
type Approach struct {
	airport string
	radius  float64
	tower   *Tower
	events  eventlog.Sink
	logger  *logger.Logger

	mu      sync.Mutex
	zone    []*aircraft.Aircraft
	holding []*aircraft.Aircraft
}

func NewApproach(airport string, radius float64, tower *Tower, events eventlog.Sink, log *logger.Logger) *Approach {
	if events == nil {
		events = eventlog.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Approach{
		airport: airport,
		radius:  radius,
		tower:   tower,
		events:  events,
		logger:  log,
	}
}

func (a *Approach) Tower() *Tower { return a.tower }

// Admit adds ac to the control zone. Admitting twice is a no-op.
func (a *Approach) Admit(ac *aircraft.Aircraft) error {
	if ac == nil {
		return ErrNilAircraft
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !slices.Contains(a.zone, ac) {
		a.zone = append(a.zone, ac)
		a.logger.Info("Aircraft entered control zone", logger.String("aircraft", ac.Name()))
	}
	a.events.Log(eventlog.ActorApproach, "Taken in charge", fmt.Sprintf("%s in %s approach zone", ac.Name(), a.airport))
	return nil
}

// AssignApproachPath sends ac down the standard four-fix arrival
func (a *Approach) AssignApproachPath(ac *aircraft.Aircraft) error {
	if ac == nil {
		return ErrNilAircraft
	}

	r := a.tower.RunwayPosition()
	path := make([]geo.Position, 0, len(approachFixes))
	for _, f := range approachFixes {
		path = append(path, geo.New(r.X, r.Y+f.north, f.alt))
	}
	ac.SetPath(path)
	ac.SetState(aircraft.Approach)
	return nil
}

// Hold puts ac on the holding loop. It is queued for landing the first time
// only; later calls just refresh the loop. The state is re-read under the
// approach lock: an aircraft that Tick cleared to land, or that was sent
// down on an emergency path, is left alone.
func (a *Approach) Hold(ac *aircraft.Aircraft) error {
	if ac == nil {
		return ErrNilAircraft
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state := ac.State()
	switch {
	case state == aircraft.HoldingForLanding:
	case state == aircraft.Approach && ac.PathEmpty():
	default:
		a.logger.Debug("Hold ignored",
			logger.String("aircraft", ac.Name()),
			logger.Stringer("state", state))
		return nil
	}

	already := state == aircraft.HoldingForLanding
	ac.SetState(aircraft.HoldingForLanding)
	if !already && !slices.Contains(a.holding, ac) {
		a.holding = append(a.holding, ac)
		a.events.Log(eventlog.ActorApproach, "Holding", fmt.Sprintf("%s enters the %s holding pattern", ac.Name(), a.airport))
		metrics.SetHolding(a.airport, len(a.holding))
	}

	ac.SetPath(holdingLoop(a.tower.RunwayPosition(), a.radius))
	return nil
}

func holdingLoop(center geo.Position, radius float64) []geo.Position {
	loop := make([]geo.Position, 0, holdingTurns*360/holdingStepDeg)
	for i := 0; i < holdingTurns; i++ {
		for deg := 0; deg < 360; deg += holdingStepDeg {
			rad := float64(deg) * math.Pi / 180
			loop = append(loop, geo.New(
				center.X+radius*math.Cos(rad),
				center.Y+radius*math.Sin(rad),
				holdingAltitude,
			))
		}
	}
	return loop
}

// RequestLanding asks the tower for the runway. On success ac leaves the
// zone and gets the final landing path.
func (a *Approach) RequestLanding(ac *aircraft.Aircraft) bool {
	if ac == nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requestLanding(ac)
}

func (a *Approach) requestLanding(ac *aircraft.Aircraft) bool {
	if !a.tower.RequestLandingClearance(ac) {
		return false
	}

	r := a.tower.RunwayPosition()
	ac.SetPath([]geo.Position{geo.New(r.X+landingRollDist, r.Y, 0)})
	if i := slices.Index(a.zone, ac); i >= 0 {
		a.zone = slices.Delete(a.zone, i, i+1)
	}
	a.events.Log(eventlog.ActorApproach, "Landing clearance", fmt.Sprintf("%s cleared for final at %s", ac.Name(), a.airport))
	return true
}

// Tick runs one sequencing pass. At most one landing is cleared per pass.
// Emergencies already holding go first, then the head of the queue, then
// any aircraft that declared an emergency since the last pass is sent
// straight to the runway.
func (a *Approach) Tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.purgeRetired()
	a.tower.SetLandingRequested(len(a.holding) > 0)
	defer func() { metrics.SetHolding(a.airport, len(a.holding)) }()

	for _, ac := range slices.Clone(a.zone) {
		if ac.InEmergency() && ac.State() == aircraft.HoldingForLanding {
			if a.requestLanding(ac) {
				a.logger.Warn("Emergency given landing priority", logger.String("aircraft", ac.Name()))
				return
			}
		}
	}

	if len(a.holding) > 0 {
		front := a.holding[0]
		if front.State() != aircraft.HoldingForLanding {
			a.holding = a.holding[1:]
			return
		}
		if !a.tower.EmergencyInProgress() && a.requestLanding(front) {
			a.holding = a.holding[1:]
		}
	}

	for _, ac := range a.zone {
		if !ac.InEmergency() || a.tower.EmergencyInProgress() {
			continue
		}
		if st := ac.State(); st != aircraft.Landing && st != aircraft.Approach {
			a.HandleEmergency(ac)
		}
	}
}

// purgeRetired forgets aircraft that crashed inside the zone. A crashed
// emergency would otherwise keep the airport closed to departures forever.
func (a *Approach) purgeRetired() {
	a.zone = slices.DeleteFunc(a.zone, func(ac *aircraft.Aircraft) bool {
		if ac.State() != aircraft.Retired {
			return false
		}
		if ac.InEmergency() {
			a.tower.SetEmergencyInProgress(false)
		}
		a.logger.Warn("Retired aircraft dropped from zone", logger.String("aircraft", ac.Name()))
		return true
	})
	a.holding = slices.DeleteFunc(a.holding, func(ac *aircraft.Aircraft) bool {
		return ac.State() == aircraft.Retired
	})
}

// HandleEmergency flags the airport as handling an emergency and sends ac
// directly down to the runway. It touches no approach state, so it is safe
// to call with or without the approach lock held.
func (a *Approach) HandleEmergency(ac *aircraft.Aircraft) {
	if ac == nil {
		a.logger.Error("Emergency handling requested for nil aircraft")
		return
	}

	a.tower.SetEmergencyInProgress(true)

	r := a.tower.RunwayPosition()
	ac.SetPath([]geo.Position{geo.New(r.X, r.Y, emergencyAlt), r})
	ac.SetState(aircraft.Approach)
	a.events.Log(eventlog.ActorApproach, "Emergency", fmt.Sprintf("%s (%s) routed direct to %s runway", ac.Name(), ac.Emergency(), a.airport))
}

func (a *Approach) HoldingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.holding)
}

func (a *Approach) ZoneCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.zone)
}

// ApproachSnapshot lists aircraft names in the zone and the holding queue
type ApproachSnapshot struct {
	Zone    []string `json:"zone"`
	Holding []string `json:"holding"`
}

func (a *Approach) Snapshot() ApproachSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := ApproachSnapshot{
		Zone:    make([]string, 0, len(a.zone)),
		Holding: make([]string, 0, len(a.holding)),
	}
	for _, ac := range a.zone {
		snap.Zone = append(snap.Zone, ac.Name())
	}
	for _, ac := range a.holding {
		snap.Holding = append(snap.Holding, ac.Name())
	}
	return snap
}
