package atc

import (
	"errors"
	"math"
	"testing"

	"github.com/yegors/atc-sim/internal/aircraft"
	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/internal/geo"
)

func TestAssignApproachPath(t *testing.T) {
	ap := newAirport(t, "LFPG", 1000, -500, nil)
	ac := newAircraft(t, "AF1", geo.New(1000, 30000, 10000), nil)

	if err := ap.Approach.AssignApproachPath(ac); err != nil {
		t.Fatal(err)
	}
	want := []geo.Position{
		geo.New(1000, 19500, 4000),
		geo.New(1000, 9500, 2000),
		geo.New(1000, 2500, 1000),
		geo.New(1000, 500, 500),
	}
	path := ac.Path()
	if len(path) != len(want) {
		t.Fatalf("path = %v", path)
	}
	for i := range want {
		if !path[i].Equal(want[i]) {
			t.Errorf("fix %d = %v, want %v", i, path[i], want[i])
		}
	}
	if ac.State() != aircraft.Approach {
		t.Errorf("state = %v, want APPROACH", ac.State())
	}
	if err := ap.Approach.AssignApproachPath(nil); !errors.Is(err, ErrNilAircraft) {
		t.Errorf("nil aircraft: got %v", err)
	}
}

func TestHoldQueuesOnce(t *testing.T) {
	rec := eventlog.NewRecorder()
	ap := newAirport(t, "LFPG", 0, 0, rec)
	ac := newAircraft(t, "AF1", geo.New(0, 1000, 500), rec)

	ac.SetState(aircraft.Approach)
	for i := 0; i < 3; i++ {
		if err := ap.Approach.Hold(ac); err != nil {
			t.Fatal(err)
		}
	}
	if got := ap.Approach.HoldingCount(); got != 1 {
		t.Errorf("holding count = %d, want 1", got)
	}
	if n := len(rec.Find(eventlog.ActorApproach, "Holding")); n != 1 {
		t.Errorf("logged %d holding events, want 1", n)
	}
	if ac.State() != aircraft.HoldingForLanding {
		t.Errorf("state = %v, want HOLDING_FOR_LANDING", ac.State())
	}

	loop := ac.Path()
	if len(loop) != 5*36 {
		t.Fatalf("holding loop has %d points, want 180", len(loop))
	}
	for _, p := range loop {
		if p.Alt != 2000 {
			t.Fatalf("holding altitude %v, want 2000", p.Alt)
		}
		if r := math.Hypot(p.X, p.Y); math.Abs(r-20000) > 1e-6 {
			t.Fatalf("holding point %v off the control radius", p)
		}
	}
}

func TestRequestLandingLeavesZone(t *testing.T) {
	ap := newAirport(t, "LFPG", 0, 0, nil)
	ac := newAircraft(t, "AF1", geo.New(0, 1000, 500), nil)
	ap.Approach.Admit(ac)
	ap.Approach.Admit(ac)
	if ap.Approach.ZoneCount() != 1 {
		t.Fatalf("zone count = %d, want 1", ap.Approach.ZoneCount())
	}

	if !ap.Approach.RequestLanding(ac) {
		t.Fatal("landing should be cleared")
	}
	if ap.Approach.ZoneCount() != 0 {
		t.Error("cleared aircraft should leave the zone")
	}
	if path := ac.Path(); len(path) != 1 || !path[0].Equal(geo.New(1500, 0, 0)) {
		t.Errorf("final path = %v", path)
	}
	if ap.Approach.RequestLanding(nil) {
		t.Error("nil aircraft must not be cleared")
	}
}

func TestTickServesQueueInOrder(t *testing.T) {
	ap := newAirport(t, "LFPG", 0, 0, nil)
	first := newAircraft(t, "FIRST", geo.Position{}, nil)
	second := newAircraft(t, "SECOND", geo.Position{}, nil)
	for _, ac := range []*aircraft.Aircraft{first, second} {
		ap.Approach.Admit(ac)
		holdAircraft(t, ap.Approach, ac)
	}

	ap.Approach.Tick()
	if first.State() != aircraft.Landing {
		t.Fatalf("head of the queue state = %v, want LANDING", first.State())
	}
	if second.State() != aircraft.HoldingForLanding {
		t.Fatalf("second state = %v, want still holding", second.State())
	}
	if !ap.Tower.Snapshot().LandingRequested {
		t.Error("tower should know landings are pending")
	}

	ap.Approach.Tick()
	if second.State() != aircraft.HoldingForLanding {
		t.Fatal("runway busy: second aircraft must keep holding")
	}

	ap.Tower.ReleaseRunway()
	ap.Approach.Tick()
	if second.State() != aircraft.Landing {
		t.Fatalf("second state = %v, want LANDING once the runway is free", second.State())
	}
	if ap.Approach.HoldingCount() != 0 {
		t.Errorf("queue length = %d, want 0", ap.Approach.HoldingCount())
	}

	ap.Approach.Tick()
	if ap.Tower.Snapshot().LandingRequested {
		t.Error("landing request flag should clear with an empty queue")
	}
}

func TestTickEmergencyJumpsQueue(t *testing.T) {
	ap := newAirport(t, "LFPG", 0, 0, nil)
	first := newAircraft(t, "FIRST", geo.Position{}, nil)
	sick := newAircraft(t, "SICK", geo.Position{}, nil)
	for _, ac := range []*aircraft.Aircraft{first, sick} {
		ap.Approach.Admit(ac)
		holdAircraft(t, ap.Approach, ac)
	}
	sick.DeclareEmergency(aircraft.EmergencyMedical)

	ap.Approach.Tick()
	if sick.State() != aircraft.Landing {
		t.Fatalf("emergency state = %v, want LANDING", sick.State())
	}
	if first.State() != aircraft.HoldingForLanding {
		t.Errorf("first state = %v, want still holding", first.State())
	}

	// The emergency left the holding state, so its queue slot is dropped
	// later without action. The head is still FIRST.
	if got := ap.Approach.Snapshot().Holding; len(got) != 2 || got[0] != "FIRST" {
		t.Errorf("holding queue = %v", got)
	}
}

func TestTickDropsStaleHead(t *testing.T) {
	ap := newAirport(t, "LFPG", 0, 0, nil)
	gone := newAircraft(t, "GONE", geo.Position{}, nil)
	next := newAircraft(t, "NEXT", geo.Position{}, nil)
	holdAircraft(t, ap.Approach, gone)
	holdAircraft(t, ap.Approach, next)
	gone.SetState(aircraft.Cruise)

	ap.Approach.Tick()
	if got := ap.Approach.Snapshot().Holding; len(got) != 1 || got[0] != "NEXT" {
		t.Fatalf("holding queue = %v, want [NEXT]", got)
	}
	if next.State() != aircraft.HoldingForLanding {
		t.Error("dropping a stale head takes the whole tick")
	}

	ap.Approach.Tick()
	if next.State() != aircraft.Landing {
		t.Errorf("next state = %v, want LANDING", next.State())
	}
}

func TestTickWaitsDuringEmergency(t *testing.T) {
	ap := newAirport(t, "LFPG", 0, 0, nil)
	ac := newAircraft(t, "AF1", geo.Position{}, nil)
	holdAircraft(t, ap.Approach, ac)
	ap.Tower.SetEmergencyInProgress(true)

	ap.Approach.Tick()
	if ac.State() != aircraft.HoldingForLanding {
		t.Error("queue must not be served while an emergency is handled")
	}
}

func TestHandleEmergency(t *testing.T) {
	ap := newAirport(t, "LFPG", 0, 0, nil)
	ac := newAircraft(t, "AF1", geo.New(5000, 5000, 2000), nil)
	ac.DeclareEmergency(aircraft.EmergencyEngineFailure)

	ap.Approach.HandleEmergency(ac)
	if !ap.Tower.EmergencyInProgress() {
		t.Error("tower should be in emergency mode")
	}
	if ac.State() != aircraft.Approach {
		t.Errorf("state = %v, want APPROACH", ac.State())
	}
	path := ac.Path()
	if len(path) != 2 || !path[0].Equal(geo.New(0, 0, 1000)) || !path[1].Equal(geo.New(0, 0, 0)) {
		t.Errorf("emergency path = %v", path)
	}
}

func TestTickForgetsCrashedEmergency(t *testing.T) {
	ap := newAirport(t, "LFPG", 0, 0, nil)
	ac, err := aircraft.New(aircraft.Params{Name: "DOOMED", CruiseSpeed: 100, TaxiSpeed: 1, Fuel: 1, BurnRate: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ap.Approach.Admit(ac)
	ac.DeclareEmergency(aircraft.EmergencyEngineFailure)
	ap.Approach.HandleEmergency(ac)

	ac.AdvanceAirborne(1)
	if ac.State() != aircraft.Retired {
		t.Fatalf("state = %v, want RETIRED", ac.State())
	}

	ap.Approach.Tick()
	if ap.Approach.ZoneCount() != 0 {
		t.Error("crashed aircraft should leave the zone")
	}
	if ap.Tower.EmergencyInProgress() {
		t.Error("airport emergency should end with the crash")
	}
}

func TestHoldAfterClearanceKeepsLanding(t *testing.T) {
	ap := newAirport(t, "LFPG", 0, 0, nil)
	ac := newAircraft(t, "AF1", geo.New(20000, 0, 2000), nil)
	ap.Approach.Admit(ac)
	holdAircraft(t, ap.Approach, ac)
	ac.SetPath(nil)

	ap.Approach.Tick()
	if ac.State() != aircraft.Landing {
		t.Fatalf("state = %v, want LANDING", ac.State())
	}

	// The driver saw an exhausted loop just before the clearance.
	if err := ap.Approach.Hold(ac); err != nil {
		t.Fatal(err)
	}
	if ac.State() != aircraft.Landing {
		t.Errorf("state = %v after late Hold, want LANDING", ac.State())
	}
	if path := ac.Path(); len(path) != 1 || !path[0].Equal(geo.New(1500, 0, 0)) {
		t.Errorf("final path replaced by %d points", len(path))
	}
	if got := ap.Approach.HoldingCount(); got != 0 {
		t.Errorf("holding count = %d, want 0", got)
	}

	for i := 0; i < 5; i++ {
		ap.Approach.Tick()
	}
	if ac.State() != aircraft.Landing || ap.Tower.RunwayFree() {
		t.Errorf("state = %v, runway free = %v; want LANDING on a seized runway", ac.State(), ap.Tower.RunwayFree())
	}
}

func TestHoldLeavesEmergencyPath(t *testing.T) {
	ap := newAirport(t, "LFPG", 0, 0, nil)
	ac := newAircraft(t, "AF1", geo.New(5000, 5000, 2000), nil)
	ac.SetState(aircraft.Approach)
	ac.DeclareEmergency(aircraft.EmergencyMedical)
	ap.Approach.HandleEmergency(ac)

	if err := ap.Approach.Hold(ac); err != nil {
		t.Fatal(err)
	}
	if ac.State() != aircraft.Approach || len(ac.Path()) != 2 {
		t.Errorf("state = %v with %d waypoints, want the emergency descent", ac.State(), len(ac.Path()))
	}
}

func TestHoldIgnoresGroundAircraft(t *testing.T) {
	ap := newAirport(t, "LFPG", 0, 0, nil)
	ac := newAircraft(t, "AF1", geo.Position{}, nil)
	ac.SetState(aircraft.TaxiToParking)

	if err := ap.Approach.Hold(ac); err != nil {
		t.Fatal(err)
	}
	if ac.State() != aircraft.TaxiToParking || ap.Approach.HoldingCount() != 0 {
		t.Errorf("state = %v, holding = %d; Hold must not touch a taxiing aircraft", ac.State(), ap.Approach.HoldingCount())
	}
}
