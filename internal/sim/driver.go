package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/yegors/atc-sim/internal/aircraft"
	"github.com/yegors/atc-sim/internal/atc"
	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/internal/geo"
	"github.com/yegors/atc-sim/internal/metrics"
	"github.com/yegors/atc-sim/pkg/logger"
)

const (
	// liftoffAltitude separates the takeoff roll from the climb
	liftoffAltitude = 10.0
	// handoffAltitude is where a departure leaves the tower for the center
	handoffAltitude = 1000.0
	// runwayClearance is the lateral distance after which a landed aircraft
	// no longer blocks the runway
	runwayClearance = 50.0
	// spawnOffset and spawnAltitude place airborne starts south of the origin
	spawnOffset   = 5000.0
	spawnAltitude = 10000.0
)

// Flight is the starting assignment of one aircraft
type Flight struct {
	Aircraft    *aircraft.Aircraft
	Origin      string
	Destination string
	// Parked starts the aircraft at a stand of its origin instead of in the
	// air south of it
	Parked bool
}

// driver runs the whole life of one aircraft: it moves it, asks controllers
// for clearances when a phase ends and turns it around at each arrival
type driver struct {
	ac       *aircraft.Aircraft
	center   *atc.Center
	airports *atc.Registry
	timing   Timing
	events   eventlog.Sink
	logger   *logger.Logger
	rng      *rand.Rand

	// from is the airport of the last departure, to the airport the aircraft
	// is heading for or parked at
	from, to *atc.Airport
	parked   bool
	// nextDestination overrides the first random pick after a parked start
	nextDestination string

	lastState      aircraft.State
	lastEmergency  aircraft.Emergency
	runwayReleased bool
	retireReason   string
}

func newDriver(f Flight, center *atc.Center, airports *atc.Registry, timing Timing, events eventlog.Sink, log *logger.Logger) (*driver, error) {
	origin, ok := airports.Airport(f.Origin)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", f.Aircraft.Name(), atc.ErrUnknownAirport, f.Origin)
	}
	dest, ok := airports.Airport(f.Destination)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", f.Aircraft.Name(), atc.ErrUnknownAirport, f.Destination)
	}

	if events == nil {
		events = eventlog.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	d := &driver{
		ac:        f.Aircraft,
		center:    center,
		airports:  airports,
		timing:    timing,
		events:    events,
		logger:    log.WithAircraft(f.Aircraft.Name()),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		from:      origin,
		to:        dest,
		parked:    f.Parked,
		lastState: f.Aircraft.State(),
	}
	if f.Parked {
		d.to = origin
		d.nextDestination = dest.Name
	}
	return d, nil
}

// run drives the aircraft until it retires or ctx is cancelled. Cancellation
// retires the aircraft and is not an error.
func (d *driver) run(ctx context.Context) error {
	if err := d.start(); err != nil {
		return d.stop(ctx, err)
	}

	for {
		state := d.ac.State()
		if state == aircraft.Retired {
			d.retired()
			return nil
		}
		if state != d.lastState {
			d.lastState = state
			d.runwayReleased = false
		}

		d.move(state)
		if err := d.react(ctx, state); err != nil {
			return d.stop(ctx, err)
		}
		d.randomEmergency(state)
		d.trackEmergency()

		if err := sleep(ctx, d.timing.StepInterval); err != nil {
			return d.stop(ctx, err)
		}
	}
}

// start puts the aircraft either on a stand of its origin or in the air
// south of it, under center control
func (d *driver) start() error {
	if d.parked {
		stand, err := d.to.Tower.ClaimFreeStand(d.ac)
		if err != nil {
			return err
		}
		if stand != nil {
			d.ac.SetPosition(stand.Position())
			d.ac.SetState(aircraft.Stationed)
			d.lastState = aircraft.Stationed
			d.logger.Info("Parked at start", logger.String("stand", stand.Name()))
			return nil
		}
		d.logger.Warn("No free stand at origin, starting airborne")
		d.to, _ = d.airports.Airport(d.nextDestination)
		d.nextDestination = ""
	}

	o := d.from.Position
	d.ac.SetPosition(geo.New(o.X, o.Y-spawnOffset, spawnAltitude))
	d.ac.SetDestination(d.to.Name)
	d.logger.Info("Spawned airborne", logger.String("destination", d.to.Name))
	return d.center.TakeCharge(d.ac)
}

func (d *driver) move(state aircraft.State) {
	dt := d.timing.DT

	switch state {
	case aircraft.TaxiToRunway:
		if res := d.ac.AdvanceGround(dt); res.ReleasedStand != "" {
			d.from.Tower.ReleaseStand(res.ReleasedStand)
		}
	case aircraft.TaxiToParking:
		d.ac.AdvanceGround(dt)
		d.clearRunwayAfterLanding()
	case aircraft.Takeoff:
		if d.ac.Position().Alt < liftoffAltitude {
			d.ac.AdvanceGround(dt * d.timing.TakeoffRollGain)
		} else {
			d.ac.AdvanceAirborne(dt)
		}
	case aircraft.Stationed, aircraft.HoldingForTakeoff, aircraft.AtRunwayThreshold, aircraft.Retired:
	default:
		d.ac.AdvanceAirborne(dt)
	}
}

// clearRunwayAfterLanding frees the arrival runway once the aircraft has
// taxied off its axis, or at the latest when it reaches the stand
func (d *driver) clearRunwayAfterLanding() {
	if d.runwayReleased {
		return
	}
	tw := d.to.Tower
	offAxis := math.Abs(d.ac.Position().Y-tw.RunwayPosition().Y) > runwayClearance
	if offAxis || d.ac.State() == aircraft.Stationed {
		tw.ReleaseRunway()
		d.runwayReleased = true
	}
}

func (d *driver) react(ctx context.Context, state aircraft.State) error {
	switch state {
	case aircraft.Approach:
		if d.ac.PathEmpty() && !d.to.Approach.RequestLanding(d.ac) {
			return d.to.Approach.Hold(d.ac)
		}
	case aircraft.HoldingForLanding:
		if d.ac.PathEmpty() {
			return d.to.Approach.Hold(d.ac)
		}
	case aircraft.Landing:
		if d.ac.PathEmpty() {
			return d.park(ctx)
		}
	case aircraft.Stationed:
		return d.turnaround(ctx)
	case aircraft.Takeoff:
		if d.ac.Position().Alt > handoffAltitude {
			d.from.Tower.RemoveFromDepartureQueue(d.ac)
			d.logger.Info("Leaving the departure zone", logger.String("destination", d.to.Name))
			return d.center.TakeCharge(d.ac)
		}
	}
	return nil
}

// park claims a stand after touchdown. With none left the aircraft clears
// the runway and is taken out of the simulation.
func (d *driver) park(ctx context.Context) error {
	tw := d.to.Tower
	stand, err := tw.ClaimFreeStand(d.ac)
	if err != nil {
		return err
	}
	if stand != nil {
		return tw.PlanTaxiToParking(d.ac, stand)
	}

	tw.ReleaseRunway()
	d.runwayReleased = true
	d.events.Log(eventlog.ActorTower, "Discarded", fmt.Sprintf("%s landed at %s with no free stand", d.ac.Name(), d.to.Name))
	if err := sleep(ctx, d.timing.DiscardDelay); err != nil {
		return err
	}
	d.retireReason = "no_stand"
	d.ac.SetState(aircraft.Retired)
	return nil
}

// turnaround services a parked aircraft, files its next flight plan and
// waits until the tower starts its taxi
func (d *driver) turnaround(ctx context.Context) error {
	if err := sleep(ctx, d.ac.Turnaround()); err != nil {
		return err
	}

	switch d.ac.Emergency() {
	case aircraft.EmergencyEngineFailure:
		d.events.Log(eventlog.ActorMaintenance, "Repair", "Engine repair in progress on "+d.ac.Name())
		if err := sleep(ctx, d.timing.EngineRepair); err != nil {
			return err
		}
	case aircraft.EmergencyMedical:
		d.events.Log(eventlog.ActorMaintenance, "Evacuation", "Sick passenger disembarked from "+d.ac.Name())
		if err := sleep(ctx, d.timing.MedicalEvacuation); err != nil {
			return err
		}
	}
	d.ac.PerformMaintenance()

	here := d.to
	next, err := d.fileFlightPlan(ctx, here)
	if err != nil {
		return err
	}
	d.from, d.to = here, next
	d.ac.SetDestination(next.Name)
	d.logger.Info("New flight plan", logger.String("origin", here.Name), logger.String("destination", next.Name))

	if err := here.Tower.RegisterForDeparture(d.ac); err != nil {
		return err
	}
	for d.ac.State() == aircraft.HoldingForTakeoff {
		if err := sleep(ctx, d.timing.TakeoffWaitPoll); err != nil {
			return err
		}
	}
	return nil
}

// fileFlightPlan keeps proposing destinations until the center accepts one
func (d *driver) fileFlightPlan(ctx context.Context, here *atc.Airport) (*atc.Airport, error) {
	for {
		next := d.pickDestination(here)
		ok, err := d.center.AdmitFlightPlan(here.Name, next.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			return next, nil
		}
		d.logger.Debug("Flight plan refused, retrying", logger.String("destination", next.Name))
		if err := sleep(ctx, d.timing.FlightPlanRetry); err != nil {
			return nil, err
		}
	}
}

func (d *driver) pickDestination(here *atc.Airport) *atc.Airport {
	if d.nextDestination != "" {
		name := d.nextDestination
		d.nextDestination = ""
		if a, ok := d.airports.Airport(name); ok && a != here {
			return a
		}
	}

	all := d.airports.Airports()
	for {
		if a := all[d.rng.IntN(len(all))]; a != here {
			return a
		}
	}
}

func (d *driver) randomEmergency(state aircraft.State) {
	if d.timing.EmergencyOdds <= 0 {
		return
	}
	if state != aircraft.Cruise && state != aircraft.Approach {
		return
	}
	if d.ac.InEmergency() || d.rng.IntN(d.timing.EmergencyOdds) != 0 {
		return
	}

	kind := aircraft.EmergencyMedical
	if d.rng.IntN(2) == 1 {
		kind = aircraft.EmergencyEngineFailure
	}
	d.ac.DeclareEmergency(kind)
}

// trackEmergency counts every new emergency, whoever declared it
func (d *driver) trackEmergency() {
	e := d.ac.Emergency()
	if e == d.lastEmergency {
		return
	}
	if e != aircraft.EmergencyNone {
		metrics.Emergency(e.String())
		d.logger.Warn("Emergency declared", logger.Stringer("kind", e))
	}
	d.lastEmergency = e
}

// retired releases whatever the aircraft still held when it was lost
func (d *driver) retired() {
	reason := d.retireReason
	if reason == "" {
		reason = "crash"
		switch d.lastState {
		case aircraft.TaxiToRunway, aircraft.HoldingForTakeoff, aircraft.AtRunwayThreshold:
			d.from.Tower.Withdraw(d.ac)
		case aircraft.Takeoff:
			d.from.Tower.RemoveFromDepartureQueue(d.ac)
		case aircraft.Landing:
			d.to.Tower.ReleaseRunway()
			if d.ac.InEmergency() {
				d.to.Tower.SetEmergencyInProgress(false)
			}
		case aircraft.TaxiToParking:
			d.to.Tower.Withdraw(d.ac)
			if !d.runwayReleased {
				d.to.Tower.ReleaseRunway()
			}
		}
	}
	metrics.Retired(reason)
	d.logger.Info("Aircraft retired", logger.String("reason", reason))
}

// stop turns a cancellation into a clean shutdown of the aircraft. Any other
// error is returned as is.
func (d *driver) stop(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	d.ac.SetState(aircraft.Retired)
	return nil
}

// sleep waits for dur or until ctx is done
func sleep(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(dur)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
