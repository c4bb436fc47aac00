package main

import (
	"fmt"

	"github.com/yegors/atc-sim/internal/aircraft"
	"github.com/yegors/atc-sim/internal/atc"
	"github.com/yegors/atc-sim/internal/config"
	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/internal/geo"
	"github.com/yegors/atc-sim/internal/sim"
	"github.com/yegors/atc-sim/pkg/logger"
)

// buildSimulation turns the configured airports and aircraft into a ready
// simulation
func buildSimulation(cfg *config.Config, events eventlog.Sink, log *logger.Logger) (*sim.Simulation, error) {
	airports := make([]*atc.Airport, 0, len(cfg.Airports))
	for _, a := range cfg.Airports {
		ap, err := atc.NewAirport(a.Name, geo.New(a.X, a.Y, 0), a.ControlRadius, cfg.Simulation.StandCount, events, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create airport %s: %w", a.Name, err)
		}
		airports = append(airports, ap)
	}

	registry, err := atc.NewRegistry(airports...)
	if err != nil {
		return nil, err
	}

	plans := atc.NewFlightPlanTable(cfg.Simulation.FlightPlanSpacing(), nil)
	center := atc.NewCenter(registry, plans, events, log.Named("center"))

	flights := make([]sim.Flight, 0, len(cfg.Aircraft))
	for _, a := range cfg.Aircraft {
		origin, _ := registry.Airport(a.Origin)
		var pos geo.Position
		if origin != nil {
			pos = origin.Position
		}

		ac, err := aircraft.New(aircraft.Params{
			Name:        a.Name,
			CruiseSpeed: a.CruiseSpeed,
			TaxiSpeed:   a.TaxiSpeed,
			Fuel:        a.Fuel,
			BurnRate:    a.BurnRate,
			Turnaround:  a.Turnaround(),
			Position:    pos,
		}, events)
		if err != nil {
			return nil, fmt.Errorf("failed to create aircraft %s: %w", a.Name, err)
		}

		flights = append(flights, sim.Flight{
			Aircraft:    ac,
			Origin:      a.Origin,
			Destination: a.Destination,
			Parked:      a.Start == config.StartParked,
		})
	}

	return sim.New(registry, center, flights, cfg.Simulation.Timing(), events, log)
}
