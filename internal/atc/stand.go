package atc

import "github.com/yegors/atc-sim/internal/geo"

// Stand is a parking position owned by one airport. Its occupancy flag is
// only read and written under the owning tower's lock.
type Stand struct {
	name     string
	pos      geo.Position
	occupied bool
}

func NewStand(name string, pos geo.Position) *Stand {
	return &Stand{name: name, pos: pos}
}

func (s *Stand) Name() string           { return s.name }
func (s *Stand) Position() geo.Position { return s.pos }

// DistanceTo is the straight-line distance from the stand to p
func (s *Stand) DistanceTo(p geo.Position) float64 {
	return s.pos.Distance(p)
}

// StandSnapshot is a read-only copy of a stand
type StandSnapshot struct {
	Name     string       `json:"name"`
	Position geo.Position `json:"position"`
	Occupied bool         `json:"occupied"`
}
