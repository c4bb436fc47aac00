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
	// Separation minima between en-route aircraft
	MinHorizontalSeparation = 20000.0
	MinVerticalSeparation   = 1000.0
	// ConflictNudge is the altitude change applied to each aircraft of a pair
	ConflictNudge = 500.0

	cruiseAltitude = 10000.0
	climbFraction  = 0.33
)

// Directory resolves airports by name
type Directory interface {
	Airport(name string) (*Airport, bool)
}

// Center is the single regional controller. It owns en-route aircraft until
// they reach the control zone of their destination.
type Center struct {
	airports Directory
	plans    *FlightPlanTable
	events   eventlog.Sink
	logger   *logger.Logger

	mu      sync.Mutex
	enRoute []*aircraft.Aircraft
}

func NewCenter(airports Directory, plans *FlightPlanTable, events eventlog.Sink, log *logger.Logger) *Center {
	if plans == nil {
		plans = NewFlightPlanTable(DefaultPlanSpacing, nil)
	}
	if events == nil {
		events = eventlog.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Center{
		airports: airports,
		plans:    plans,
		events:   events,
		logger:   log,
	}
}

// AdmitFlightPlan decides whether a flight from origin to destination may be
// filed now. Unknown airport names are an error.
func (c *Center) AdmitFlightPlan(origin, destination string) (bool, error) {
	from, ok := c.airports.Airport(origin)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownAirport, origin)
	}
	to, ok := c.airports.Airport(destination)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownAirport, destination)
	}

	approved, reason := c.plans.Admit(from, to)
	if !approved {
		c.logger.Debug("Flight plan refused",
			logger.String("origin", origin),
			logger.String("destination", destination),
			logger.String("reason", reason))
		metrics.FlightPlan(reason)
		return false, nil
	}

	c.events.Log(eventlog.ActorCenter, "Flight plan", fmt.Sprintf("%s -> %s approved", origin, destination))
	metrics.FlightPlan("approved")
	return true, nil
}

// TakeCharge adds ac to the en-route list, moves it to CRUISE and, when its
// destination is known, plans a climb to cruise altitude and a leg to the
// destination
func (c *Center) TakeCharge(ac *aircraft.Aircraft) error {
	if ac == nil {
		return ErrNilAircraft
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !slices.Contains(c.enRoute, ac) {
		c.enRoute = append(c.enRoute, ac)
	}
	ac.SetState(aircraft.Cruise)

	if dest, ok := c.airports.Airport(ac.Destination()); ok {
		from := ac.Position()
		climb := from.Add(dest.Position.Sub(from).Scale(climbFraction)).WithAlt(cruiseAltitude)
		ac.SetPath([]geo.Position{climb, dest.Position.WithAlt(cruiseAltitude)})
	}

	c.events.Log(eventlog.ActorCenter, "Taken in charge", fmt.Sprintf("%s en route to %s", ac.Name(), ac.Destination()))
	return nil
}

// HandoffToApproach transfers ac to app. An emergency is sent straight to
// the runway, anything else gets the standard approach.
func (c *Center) HandoffToApproach(ac *aircraft.Aircraft, app *Approach) error {
	if ac == nil {
		return ErrNilAircraft
	}
	if app == nil {
		return fmt.Errorf("handoff of %s: nil approach", ac.Name())
	}

	if err := app.Admit(ac); err != nil {
		return err
	}
	ac.SetState(aircraft.Approach)
	if ac.InEmergency() {
		app.HandleEmergency(ac)
	} else if err := app.AssignApproachPath(ac); err != nil {
		return err
	}

	c.events.Log(eventlog.ActorCenter, "Handoff", fmt.Sprintf("%s handed to %s approach", ac.Name(), app.airport))
	metrics.Handoff(app.airport)
	return nil
}

// Sweep resolves separation conflicts between en-route aircraft, then hands
// off every cruising aircraft that reached its destination zone or is in
// emergency. Retired aircraft are dropped.
func (c *Center) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < len(c.enRoute); i++ {
		for j := i + 1; j < len(c.enRoute); j++ {
			a1, a2 := c.enRoute[i], c.enRoute[j]
			p1, p2 := a1.Position(), a2.Position()
			if math.Abs(p1.Alt-p2.Alt) >= MinVerticalSeparation {
				continue
			}
			if p1.HorizontalDistance(p2) < MinHorizontalSeparation {
				a1.NudgeAltitude(ConflictNudge)
				a2.NudgeAltitude(-ConflictNudge)
				c.events.Log(eventlog.ActorCenter, "Conflict", fmt.Sprintf("%s / %s separated vertically", a1.Name(), a2.Name()))
				metrics.Conflict()
			}
		}
	}

	kept := c.enRoute[:0]
	for _, ac := range c.enRoute {
		state := ac.State()
		if state == aircraft.Retired {
			continue
		}
		dest, ok := c.airports.Airport(ac.Destination())
		if !ok || state != aircraft.Cruise {
			kept = append(kept, ac)
			continue
		}
		// Horizontal only: from cruise altitude a 3D check fires well inside the radius.
		if ac.InEmergency() || ac.Position().HorizontalDistance(dest.Position) <= dest.ControlRadius {
			if err := c.HandoffToApproach(ac, dest.Approach); err != nil {
				c.logger.Error("Handoff failed", logger.String("aircraft", ac.Name()), logger.Error(err))
				kept = append(kept, ac)
			}
			continue
		}
		kept = append(kept, ac)
	}
	clear(c.enRoute[len(kept):])
	c.enRoute = kept
}

// EnRoute lists the names of aircraft currently under center control
func (c *Center) EnRoute() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.enRoute))
	for _, ac := range c.enRoute {
		names = append(names, ac.Name())
	}
	return names
}
