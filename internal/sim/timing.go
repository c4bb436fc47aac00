package sim

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTiming = errors.New("invalid timing")

// Timing collects every period and delay the simulation waits on. Each driver
// step sleeps StepInterval and advances its aircraft by DT simulated seconds;
// every other value is wall-clock time.
type Timing struct {
	StepInterval    time.Duration
	DT              float64
	TakeoffRollGain float64

	TowerPeriod    time.Duration
	ApproachPeriod time.Duration
	CenterPeriod   time.Duration

	FlightPlanRetry   time.Duration
	TakeoffWaitPoll   time.Duration
	DiscardDelay      time.Duration
	EngineRepair      time.Duration
	MedicalEvacuation time.Duration

	SpawnDelayMin time.Duration
	SpawnDelayMax time.Duration

	// EmergencyOdds gives a 1 in EmergencyOdds chance per step of a random
	// emergency while cruising or on approach. Zero disables them.
	EmergencyOdds int
}

// DefaultTiming is the stock pacing: 75ms steps, half-second tower and
// approach passes, a center sweep every 50ms
func DefaultTiming() Timing {
	return Timing{
		StepInterval:      75 * time.Millisecond,
		DT:                1,
		TakeoffRollGain:   15,
		TowerPeriod:       500 * time.Millisecond,
		ApproachPeriod:    500 * time.Millisecond,
		CenterPeriod:      50 * time.Millisecond,
		FlightPlanRetry:   time.Second,
		TakeoffWaitPoll:   200 * time.Millisecond,
		DiscardDelay:      3 * time.Second,
		EngineRepair:      5 * time.Second,
		MedicalEvacuation: 2 * time.Second,
		SpawnDelayMin:     500 * time.Millisecond,
		SpawnDelayMax:     1500 * time.Millisecond,
		EmergencyOdds:     1500,
	}
}

// Validate rejects periods that would stall or spin the simulation
func (t Timing) Validate() error {
	positive := map[string]time.Duration{
		"step interval":   t.StepInterval,
		"tower period":    t.TowerPeriod,
		"approach period": t.ApproachPeriod,
		"center period":   t.CenterPeriod,
		"takeoff poll":    t.TakeoffWaitPoll,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidTiming, name)
		}
	}

	switch {
	case t.DT <= 0:
		return fmt.Errorf("%w: dt must be positive", ErrInvalidTiming)
	case t.TakeoffRollGain <= 0:
		return fmt.Errorf("%w: takeoff roll gain must be positive", ErrInvalidTiming)
	case t.FlightPlanRetry < 0 || t.DiscardDelay < 0 || t.EngineRepair < 0 || t.MedicalEvacuation < 0:
		return fmt.Errorf("%w: delays cannot be negative", ErrInvalidTiming)
	case t.SpawnDelayMin < 0 || t.SpawnDelayMax < t.SpawnDelayMin:
		return fmt.Errorf("%w: spawn delay range [%s, %s]", ErrInvalidTiming, t.SpawnDelayMin, t.SpawnDelayMax)
	case t.EmergencyOdds < 0:
		return fmt.Errorf("%w: emergency odds cannot be negative", ErrInvalidTiming)
	}
	return nil
}
