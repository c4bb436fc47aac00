package atc

import (
	"testing"
	"time"

	"github.com/yegors/atc-sim/internal/aircraft"
	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/internal/geo"
)

func newAirport(t *testing.T, name string, x, y float64, rec eventlog.Sink) *Airport {
	t.Helper()
	a, err := NewAirport(name, geo.New(x, y, 0), 20000, 5, rec, nil)
	if err != nil {
		t.Fatalf("NewAirport(%s): %v", name, err)
	}
	return a
}

func newAircraft(t *testing.T, name string, pos geo.Position, rec eventlog.Sink) *aircraft.Aircraft {
	t.Helper()
	ac, err := aircraft.New(aircraft.Params{
		Name:        name,
		CruiseSpeed: 250,
		TaxiSpeed:   10,
		Fuel:        50000,
		BurnRate:    1,
		Turnaround:  time.Second,
		Position:    pos,
	}, rec)
	if err != nil {
		t.Fatalf("aircraft.New(%s): %v", name, err)
	}
	return ac
}

// parkAndQueue claims a stand for ac and registers it for departure
func parkAndQueue(t *testing.T, tw *Tower, ac *aircraft.Aircraft, stand *Stand) {
	t.Helper()
	if err := tw.AssignParking(ac, stand); err != nil {
		t.Fatalf("AssignParking: %v", err)
	}
	ac.SetPosition(stand.Position())
	if err := tw.RegisterForDeparture(ac); err != nil {
		t.Fatalf("RegisterForDeparture: %v", err)
	}
}

// holdAircraft puts ac on approach and then into the holding pattern
func holdAircraft(t *testing.T, app *Approach, ac *aircraft.Aircraft) {
	t.Helper()
	ac.SetPath(nil)
	ac.SetState(aircraft.Approach)
	if err := app.Hold(ac); err != nil {
		t.Fatalf("Hold(%s): %v", ac.Name(), err)
	}
	if ac.State() != aircraft.HoldingForLanding {
		t.Fatalf("%s state = %v after Hold, want HOLDING_FOR_LANDING", ac.Name(), ac.State())
	}
}

// fakeClock is a manually advanced time source
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
