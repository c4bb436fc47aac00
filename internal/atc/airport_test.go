package atc

import (
	"errors"
	"testing"

	"github.com/yegors/atc-sim/internal/geo"
)

func TestNewAirportLayout(t *testing.T) {
	a := newAirport(t, "LFPG", 1000, 2000, nil)

	if len(a.Stands) != 5 {
		t.Fatalf("stands = %d, want 5", len(a.Stands))
	}
	wantX := []float64{1100, 1300, 1500, 1700, 1900}
	for i, s := range a.Stands {
		want := geo.New(wantX[i], 2400, 0)
		if !s.Position().Equal(want) {
			t.Errorf("stand %d at %v, want %v", i, s.Position(), want)
		}
	}
	if a.Stands[2].Name() != "LFPG-P3" {
		t.Errorf("third stand name = %q, want LFPG-P3", a.Stands[2].Name())
	}
	if a.Stand("LFPG-P5") != a.Stands[4] {
		t.Error("Stand lookup by name failed")
	}
	if a.Stand("EGLL-P1") != nil {
		t.Error("foreign stand name should not resolve")
	}
	if got := a.Tower.RunwayPosition(); !got.Equal(geo.New(1000, 2000, 0)) {
		t.Errorf("runway at %v", got)
	}
}

func TestNewAirportValidation(t *testing.T) {
	if _, err := NewAirport("", geo.Position{}, 100, 5, nil, nil); !errors.Is(err, ErrInvalidAirport) {
		t.Errorf("empty name: got %v", err)
	}
	if _, err := NewAirport("X", geo.Position{}, 0, 5, nil, nil); !errors.Is(err, ErrInvalidAirport) {
		t.Errorf("zero radius: got %v", err)
	}
	if _, err := NewAirport("X", geo.Position{}, 100, 0, nil, nil); !errors.Is(err, ErrNoStands) {
		t.Errorf("no stands: got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	a := newAirport(t, "A", 0, 0, nil)
	b := newAirport(t, "B", 50000, 0, nil)

	r, err := NewRegistry(b, a)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := r.Airports(); len(got) != 2 || got[0] != b || got[1] != a {
		t.Errorf("Airports() = %v, want registration order [B A]", got)
	}
	if got, ok := r.Airport("A"); !ok || got != a {
		t.Error("lookup of A failed")
	}
	if _, ok := r.Airport("C"); ok {
		t.Error("unknown airport resolved")
	}

	if _, err := NewRegistry(a, a); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate: got %v, want ErrDuplicateName", err)
	}
}
