package aircraft

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/internal/geo"
)

func newTestAircraft(t *testing.T, fuel, burn float64) (*Aircraft, *eventlog.Recorder) {
	t.Helper()
	rec := eventlog.NewRecorder()
	ac, err := New(Params{
		Name:        "AF123",
		CruiseSpeed: 200,
		TaxiSpeed:   10,
		Fuel:        fuel,
		BurnRate:    burn,
	}, rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ac, rec
}

func TestNewValidation(t *testing.T) {
	valid := Params{Name: "X", CruiseSpeed: 1, TaxiSpeed: 1, Fuel: 0, BurnRate: 0}

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"empty name", func(p *Params) { p.Name = "" }},
		{"zero cruise speed", func(p *Params) { p.CruiseSpeed = 0 }},
		{"negative taxi speed", func(p *Params) { p.TaxiSpeed = -1 }},
		{"negative fuel", func(p *Params) { p.Fuel = -0.1 }},
		{"negative burn rate", func(p *Params) { p.BurnRate = -2 }},
		{"negative turnaround", func(p *Params) { p.Turnaround = -1 }},
	}

	if _, err := New(valid, nil); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := New(p, nil)
			if !errors.Is(err, ErrInvalidAircraft) {
				t.Errorf("got %v, want ErrInvalidAircraft", err)
			}
		})
	}
}

func TestAdvanceAirborneMovesAndSnaps(t *testing.T) {
	ac, _ := newTestAircraft(t, 50000, 1)
	ac.SetState(Cruise)
	ac.SetPath([]geo.Position{geo.New(500, 0, 0), geo.New(500, 100, 0)})

	ac.AdvanceAirborne(1)
	if got := ac.Position(); !got.Equal(geo.New(200, 0, 0)) {
		t.Fatalf("after first step position = %v, want (200,0,0)", got)
	}

	ac.AdvanceAirborne(1) // (400,0,0)
	ac.AdvanceAirborne(1) // 100 left, snaps
	path := ac.Path()
	if len(path) != 1 {
		t.Fatalf("path length = %d, want 1 after reaching the first waypoint", len(path))
	}
	if got := ac.Position(); !got.Equal(geo.New(500, 0, 0)) {
		t.Errorf("position = %v, want snapped to (500,0,0)", got)
	}
	if got := ac.Fuel(); got != 50000-3 {
		t.Errorf("fuel = %v, want %v", got, 50000-3)
	}
}

func TestAdvanceAirborneWithoutPathIsNoop(t *testing.T) {
	ac, _ := newTestAircraft(t, 100, 50)
	ac.SetState(Cruise)
	ac.AdvanceAirborne(10)
	if ac.Fuel() != 100 || ac.State() != Cruise {
		t.Errorf("aircraft without a path should not move or burn fuel")
	}
}

func TestFuelEmergencyRaisedAfterMotion(t *testing.T) {
	ac, rec := newTestAircraft(t, 900, 1)
	ac.SetState(Cruise)
	ac.SetPath([]geo.Position{geo.New(100000, 0, 10000)})

	if ac.InEmergency() {
		t.Fatal("no emergency expected before moving")
	}
	ac.AdvanceAirborne(1)

	if got := ac.Emergency(); got != EmergencyFuel {
		t.Errorf("emergency = %v, want fuel", got)
	}
	if len(rec.Find(eventlog.ActorAircraft, "MAYDAY")) != 1 {
		t.Error("fuel emergency should be logged")
	}
}

func TestFuelEmergencyDoesNotOverwrite(t *testing.T) {
	ac, _ := newTestAircraft(t, 900, 1)
	ac.SetState(Cruise)
	ac.SetPath([]geo.Position{geo.New(100000, 0, 10000)})
	ac.DeclareEmergency(EmergencyMedical)

	ac.AdvanceAirborne(1)
	if got := ac.Emergency(); got != EmergencyMedical {
		t.Errorf("emergency = %v, want medical to stay active", got)
	}
}

func TestCrashOnFuelExhaustion(t *testing.T) {
	ac, rec := newTestAircraft(t, 5, 10)
	ac.SetState(Cruise)
	ac.SetPath([]geo.Position{geo.New(100000, 0, 10000)})

	ac.AdvanceAirborne(1)

	if ac.Fuel() != 0 {
		t.Errorf("fuel = %v, want 0", ac.Fuel())
	}
	if ac.State() != Retired {
		t.Errorf("state = %v, want RETIRED", ac.State())
	}
	if len(rec.Find(eventlog.ActorAircraft, "CRASH")) != 1 {
		t.Error("crash should be logged")
	}

	if ac.SetState(Cruise) {
		t.Error("SetState should refuse to leave RETIRED")
	}
	ac.PerformMaintenance()
	ac.AdvanceAirborne(1)
	if ac.State() != Retired || ac.Fuel() != 0 {
		t.Errorf("retired aircraft came back: state=%v fuel=%v", ac.State(), ac.Fuel())
	}
}

func TestGroundFuelExhaustion(t *testing.T) {
	ac, _ := newTestAircraft(t, 0.1, 10)
	ac.SetState(TaxiToRunway)
	ac.SetPath([]geo.Position{geo.New(100, 0, 0)})

	ac.AdvanceGround(1) // needs 0.5
	if ac.State() != Retired || ac.Fuel() != 0 {
		t.Errorf("state=%v fuel=%v, want RETIRED with no fuel", ac.State(), ac.Fuel())
	}
}

func TestAdvanceGroundReachesThreshold(t *testing.T) {
	ac, _ := newTestAircraft(t, 1000, 20)
	ac.SetState(TaxiToRunway)
	ac.SetStand("LFPG-P3")
	ac.SetPath([]geo.Position{geo.New(5, 0, 0), geo.New(15, 0, 0)})

	res := ac.AdvanceGround(1)
	if res.Arrived || res.ReleasedStand != "" {
		t.Fatalf("first waypoint should not complete the taxi: %+v", res)
	}
	if ac.State() != TaxiToRunway {
		t.Fatalf("state = %v, want TAXI_TO_RUNWAY", ac.State())
	}

	res = ac.AdvanceGround(1)
	if !res.Arrived || res.ReleasedStand != "LFPG-P3" {
		t.Fatalf("expected arrival releasing LFPG-P3, got %+v", res)
	}
	if ac.State() != AtRunwayThreshold {
		t.Errorf("state = %v, want AT_RUNWAY_THRESHOLD", ac.State())
	}
	if ac.Stand() != "" {
		t.Errorf("stand still held: %q", ac.Stand())
	}
	if got, want := ac.Fuel(), 1000-2*20*GroundBurnFactor; got != want {
		t.Errorf("fuel = %v, want %v", got, want)
	}
}

func TestAdvanceGroundReachesStand(t *testing.T) {
	ac, _ := newTestAircraft(t, 1000, 1)
	ac.SetState(TaxiToParking)
	ac.SetStand("EGLL-P1")
	ac.SetPath([]geo.Position{geo.New(3, 4, 0)})

	res := ac.AdvanceGround(1)
	if !res.Arrived || res.ReleasedStand != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if ac.State() != Stationed {
		t.Errorf("state = %v, want STATIONED", ac.State())
	}
	if ac.Stand() != "EGLL-P1" {
		t.Errorf("stand = %q, want EGLL-P1 kept", ac.Stand())
	}
}

func TestDeclareEmergency(t *testing.T) {
	ac, rec := newTestAircraft(t, 20000, 1)

	if ac.DeclareEmergency(EmergencyNone) {
		t.Error("declaring none should be ignored")
	}
	if !ac.DeclareEmergency(EmergencyEngineFailure) {
		t.Fatal("first declaration should take effect")
	}
	if ac.DeclareEmergency(EmergencyMedical) {
		t.Error("second declaration should be a no-op")
	}
	if got := ac.Emergency(); got != EmergencyEngineFailure {
		t.Errorf("emergency = %v, want engine_failure", got)
	}
	if n := len(rec.Find(eventlog.ActorAircraft, "MAYDAY")); n != 1 {
		t.Errorf("logged %d alerts, want 1", n)
	}
}

func TestPerformMaintenance(t *testing.T) {
	ac, _ := newTestAircraft(t, 300, 1)
	ac.DeclareEmergency(EmergencyFuel)

	ac.PerformMaintenance()
	if ac.Fuel() != MaintenanceFuel {
		t.Errorf("fuel = %v, want %v", ac.Fuel(), MaintenanceFuel)
	}
	if ac.InEmergency() {
		t.Error("maintenance should clear the emergency")
	}

	ac.PerformMaintenance()
	if ac.Fuel() != MaintenanceFuel || ac.InEmergency() {
		t.Error("maintenance should be idempotent")
	}

	full, _ := newTestAircraft(t, 50000, 1)
	full.PerformMaintenance()
	if full.Fuel() != 50000 {
		t.Errorf("maintenance should never reduce fuel, got %v", full.Fuel())
	}
}

func TestConcurrentAccess(t *testing.T) {
	ac, _ := newTestAircraft(t, 1e9, 1)
	ac.SetState(Cruise)
	ac.SetPath([]geo.Position{geo.New(1e7, 0, 10000)})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			ac.AdvanceAirborne(0.1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			ac.NudgeAltitude(1)
			_ = ac.Snapshot()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = ac.Fuel() >= 0
			_ = ac.Path()
		}
	}()
	wg.Wait()

	if ac.Fuel() < 0 {
		t.Errorf("fuel went negative: %v", ac.Fuel())
	}
}

func TestParseEmergency(t *testing.T) {
	for _, kind := range []Emergency{EmergencyEngineFailure, EmergencyMedical, EmergencyFuel} {
		got, err := ParseEmergency(kind.String())
		if err != nil || got != kind {
			t.Errorf("ParseEmergency(%q) = %v, %v", kind.String(), got, err)
		}
	}
	if _, err := ParseEmergency("none"); err == nil {
		t.Error("none should not parse")
	}
	if _, err := ParseEmergency("alien"); err == nil {
		t.Error("unknown kind should not parse")
	}
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	ac, _ := newTestAircraft(t, 5000, 1)
	ac.SetState(Cruise)
	ac.DeclareEmergency(EmergencyMedical)

	data, err := json.Marshal(ac.Snapshot())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var back Snapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back.State != Cruise || back.Emergency != EmergencyMedical {
		t.Errorf("expected CRUISE/medical, got %s/%s", back.State, back.Emergency)
	}

	var s State
	if err := s.UnmarshalText([]byte("TAKING_A_NAP")); err == nil {
		t.Error("expected an error for an unknown state")
	}
}
