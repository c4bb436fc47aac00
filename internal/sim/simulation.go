package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yegors/atc-sim/internal/aircraft"
	"github.com/yegors/atc-sim/internal/atc"
	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/pkg/logger"
)

var (
	ErrUnknownAircraft   = errors.New("unknown aircraft")
	ErrNotAirborne       = errors.New("aircraft is not airborne")
	ErrDuplicateAircraft = errors.New("duplicate aircraft name")
)

// Simulation runs one driver per aircraft plus the periodic passes of every
// tower, every approach controller and the regional center
type Simulation struct {
	airports *atc.Registry
	center   *atc.Center
	timing   Timing
	events   eventlog.Sink
	logger   *logger.Logger

	flights  []Flight
	aircraft map[string]*aircraft.Aircraft
}

func New(airports *atc.Registry, center *atc.Center, flights []Flight, timing Timing, events eventlog.Sink, log *logger.Logger) (*Simulation, error) {
	if airports == nil || center == nil {
		return nil, errors.New("simulation needs airports and a center")
	}
	if err := timing.Validate(); err != nil {
		return nil, err
	}
	if events == nil {
		events = eventlog.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := &Simulation{
		airports: airports,
		center:   center,
		timing:   timing,
		events:   events,
		logger:   log.Named("sim"),
		flights:  flights,
		aircraft: make(map[string]*aircraft.Aircraft, len(flights)),
	}
	for _, f := range flights {
		if f.Aircraft == nil {
			return nil, atc.ErrNilAircraft
		}
		name := f.Aircraft.Name()
		if _, dup := s.aircraft[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAircraft, name)
		}
		if _, ok := airports.Airport(f.Origin); !ok {
			return nil, fmt.Errorf("%s: %w: %q", name, atc.ErrUnknownAirport, f.Origin)
		}
		if _, ok := airports.Airport(f.Destination); !ok {
			return nil, fmt.Errorf("%s: %w: %q", name, atc.ErrUnknownAirport, f.Destination)
		}
		s.aircraft[name] = f.Aircraft
	}
	return s, nil
}

// Run blocks until ctx is cancelled or a unit fails. Cancellation retires
// every aircraft and returns nil.
func (s *Simulation) Run(ctx context.Context) error {
	s.logger.Info("Starting simulation",
		logger.Int("airports", s.airports.Len()),
		logger.Int("aircraft", len(s.flights)))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return every(ctx, s.timing.CenterPeriod, s.center.Sweep)
	})
	for _, ap := range s.airports.Airports() {
		tw, app := ap.Tower, ap.Approach
		g.Go(func() error {
			return every(ctx, s.timing.TowerPeriod, func() { towerPass(tw) })
		})
		g.Go(func() error {
			return every(ctx, s.timing.ApproachPeriod, app.Tick)
		})
	}

	g.Go(func() error {
		return s.spawn(ctx, g)
	})

	err := g.Wait()

	// Aircraft whose driver never started are still retired.
	for _, f := range s.flights {
		if f.Aircraft.State() != aircraft.Retired {
			f.Aircraft.SetState(aircraft.Retired)
		}
	}
	s.logger.Info("Simulation stopped")
	return err
}

// spawn releases parked aircraft at once and airborne ones one by one, each
// after a random delay
func (s *Simulation) spawn(ctx context.Context, g *errgroup.Group) error {
	for _, f := range s.flights {
		d, err := newDriver(f, s.center, s.airports, s.timing, s.events, s.logger.Named("driver"))
		if err != nil {
			return err
		}
		if !f.Parked {
			if err := sleep(ctx, s.spawnDelay()); err != nil {
				return nil
			}
		}
		g.Go(func() error {
			return d.run(ctx)
		})
	}
	return nil
}

func (s *Simulation) spawnDelay() time.Duration {
	delay := s.timing.SpawnDelayMin
	if spread := s.timing.SpawnDelayMax - s.timing.SpawnDelayMin; spread > 0 {
		delay += rand.N(spread)
	}
	return delay
}

// towerPass starts the next taxi or clears the lined-up departure
func towerPass(tw *atc.Tower) {
	ac := tw.SelectForDeparture()
	if ac != nil && !tw.EmergencyInProgress() {
		tw.AuthorizeDeparture(ac)
	}
}

// every calls fn each period until ctx is done
func every(ctx context.Context, period time.Duration, fn func()) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

// Aircraft returns a snapshot of every aircraft in configuration order
func (s *Simulation) Aircraft() []aircraft.Snapshot {
	out := make([]aircraft.Snapshot, 0, len(s.flights))
	for _, f := range s.flights {
		out = append(out, f.Aircraft.Snapshot())
	}
	return out
}

func (s *Simulation) AircraftByName(name string) (aircraft.Snapshot, error) {
	ac, ok := s.aircraft[name]
	if !ok {
		return aircraft.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownAircraft, name)
	}
	return ac.Snapshot(), nil
}

func (s *Simulation) Airports() []atc.AirportSnapshot {
	all := s.airports.Airports()
	out := make([]atc.AirportSnapshot, 0, len(all))
	for _, ap := range all {
		out = append(out, ap.Snapshot())
	}
	return out
}

func (s *Simulation) AirportByName(name string) (atc.AirportSnapshot, error) {
	ap, ok := s.airports.Airport(name)
	if !ok {
		return atc.AirportSnapshot{}, fmt.Errorf("%w: %s", atc.ErrUnknownAirport, name)
	}
	return ap.Snapshot(), nil
}

// DeclareEmergency raises an emergency on an airborne aircraft from outside
// the simulation. It reports whether the declaration took effect; an aircraft
// already in emergency keeps its current one.
func (s *Simulation) DeclareEmergency(name string, kind aircraft.Emergency) (bool, error) {
	ac, ok := s.aircraft[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownAircraft, name)
	}
	if st := ac.State(); st.OnGround() || st == aircraft.Retired {
		return false, fmt.Errorf("%w: %s is %s", ErrNotAirborne, name, st)
	}
	return ac.DeclareEmergency(kind), nil
}
