package atc

import (
	"fmt"

	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/internal/geo"
	"github.com/yegors/atc-sim/pkg/logger"
)

const (
	// standSpacing separates consecutive stands along the apron
	standSpacing = 200.0
	// apronOffset is the distance between the runway line and the stands
	apronOffset = 400.0
)

// Airport groups a runway, its stands and the two controllers that own them.
// Airports are built once at startup and never change shape afterwards.
type Airport struct {
	Name          string
	Position      geo.Position
	ControlRadius float64
	Stands        []*Stand
	Tower         *Tower
	Approach      *Approach
}

// NewAirport lays out standCount stands north of the runway and wires a tower
// and an approach controller for them
func NewAirport(name string, pos geo.Position, radius float64, standCount int, events eventlog.Sink, log *logger.Logger) (*Airport, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty airport name", ErrInvalidAirport)
	}
	if radius <= 0 {
		return nil, fmt.Errorf("%w: %s: control radius must be positive", ErrInvalidAirport, name)
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithAirport(name)

	stands := make([]*Stand, 0, standCount)
	for i := 0; i < standCount; i++ {
		offset := geo.New(100+standSpacing*float64(i), apronOffset, 0)
		stands = append(stands, NewStand(fmt.Sprintf("%s-P%d", name, i+1), pos.Add(offset)))
	}

	runway := geo.New(pos.X, pos.Y, 0)
	tower, err := NewTower(name, stands, runway, events, log.Named("tower"))
	if err != nil {
		return nil, err
	}

	return &Airport{
		Name:          name,
		Position:      pos,
		ControlRadius: radius,
		Stands:        stands,
		Tower:         tower,
		Approach:      NewApproach(name, radius, tower, events, log.Named("approach")),
	}, nil
}

// Stand finds one of the airport's stands by name
func (a *Airport) Stand(name string) *Stand {
	for _, s := range a.Stands {
		if s.name == name {
			return s
		}
	}
	return nil
}

// AirportSnapshot is a read-only view of an airport and its controllers
type AirportSnapshot struct {
	Name          string           `json:"name"`
	Position      geo.Position     `json:"position"`
	ControlRadius float64          `json:"control_radius"`
	Tower         TowerSnapshot    `json:"tower"`
	Approach      ApproachSnapshot `json:"approach"`
}

func (a *Airport) Snapshot() AirportSnapshot {
	return AirportSnapshot{
		Name:          a.Name,
		Position:      a.Position,
		ControlRadius: a.ControlRadius,
		Tower:         a.Tower.Snapshot(),
		Approach:      a.Approach.Snapshot(),
	}
}
