package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yegors/atc-sim/internal/sim"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Aircraft start modes
const (
	StartAirborne = "airborne"
	StartParked   = "parked"
)

// Config is the full application configuration
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
	Storage    StorageConfig    `toml:"storage"`
	Simulation SimulationConfig `toml:"simulation"`
	Airports   []AirportConfig  `toml:"airports"`
	Aircraft   []AircraftConfig `toml:"aircraft"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host                string   `toml:"host"`
	Port                int      `toml:"port"`
	CORSAllowedOrigins  []string `toml:"cors_allowed_origins"`
	ReadTimeoutSeconds  int      `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `toml:"write_timeout_seconds"`
}

// Addr is the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level      string `toml:"level"`  // debug, info, warn, error
	Format     string `toml:"format"` // json, console
	File       string `toml:"file"`   // optional rotated JSON copy
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// StorageConfig configures event persistence. An empty path keeps events in
// the log only.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path"`
	EventBuffer int    `toml:"event_buffer"`
}

// SimulationConfig holds the pacing of the simulation
type SimulationConfig struct {
	StepMS                   int     `toml:"step_ms"`
	DT                       float64 `toml:"dt"`
	TakeoffRollGain          float64 `toml:"takeoff_roll_gain"`
	TowerPeriodMS            int     `toml:"tower_period_ms"`
	ApproachPeriodMS         int     `toml:"approach_period_ms"`
	CenterPeriodMS           int     `toml:"center_period_ms"`
	FlightPlanSpacingSeconds float64 `toml:"flight_plan_spacing_seconds"`
	EmergencyOdds            int     `toml:"emergency_odds"`
	StandCount               int     `toml:"stand_count"`
	SnapshotPeriodMS         int     `toml:"snapshot_period_ms"`
	FlightPlanRetryMS        int     `toml:"flight_plan_retry_ms"`
	TakeoffWaitPollMS        int     `toml:"takeoff_wait_poll_ms"`
	DiscardDelayMS           int     `toml:"discard_delay_ms"`
	EngineRepairMS           int     `toml:"engine_repair_ms"`
	MedicalEvacuationMS      int     `toml:"medical_evacuation_ms"`
	SpawnDelayMinMS          int     `toml:"spawn_delay_min_ms"`
	SpawnDelayMaxMS          int     `toml:"spawn_delay_max_ms"`
}

// AirportConfig describes one airport
type AirportConfig struct {
	Name          string  `toml:"name"`
	X             float64 `toml:"x"`
	Y             float64 `toml:"y"`
	ControlRadius float64 `toml:"control_radius"`
}

// AircraftConfig describes one aircraft and its first flight
type AircraftConfig struct {
	Name              string  `toml:"name"`
	CruiseSpeed       float64 `toml:"cruise_speed"`
	TaxiSpeed         float64 `toml:"taxi_speed"`
	Fuel              float64 `toml:"fuel"`
	BurnRate          float64 `toml:"burn_rate"`
	TurnaroundSeconds float64 `toml:"turnaround_seconds"`
	Origin            string  `toml:"origin"`
	Destination       string  `toml:"destination"`
	Start             string  `toml:"start"`
}

// Turnaround is the stand pause as a duration
func (a AircraftConfig) Turnaround() time.Duration {
	return time.Duration(a.TurnaroundSeconds * float64(time.Second))
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Timing converts the millisecond settings into simulation timing
func (s SimulationConfig) Timing() sim.Timing {
	return sim.Timing{
		StepInterval:      ms(s.StepMS),
		DT:                s.DT,
		TakeoffRollGain:   s.TakeoffRollGain,
		TowerPeriod:       ms(s.TowerPeriodMS),
		ApproachPeriod:    ms(s.ApproachPeriodMS),
		CenterPeriod:      ms(s.CenterPeriodMS),
		FlightPlanRetry:   ms(s.FlightPlanRetryMS),
		TakeoffWaitPoll:   ms(s.TakeoffWaitPollMS),
		DiscardDelay:      ms(s.DiscardDelayMS),
		EngineRepair:      ms(s.EngineRepairMS),
		MedicalEvacuation: ms(s.MedicalEvacuationMS),
		SpawnDelayMin:     ms(s.SpawnDelayMinMS),
		SpawnDelayMax:     ms(s.SpawnDelayMaxMS),
		EmergencyOdds:     s.EmergencyOdds,
	}
}

// FlightPlanSpacing is the minimum interval between approvals on a route
func (s SimulationConfig) FlightPlanSpacing() time.Duration {
	return time.Duration(s.FlightPlanSpacingSeconds * float64(time.Second))
}

// SnapshotPeriod is how often the websocket stream looks for changes
func (s SimulationConfig) SnapshotPeriod() time.Duration {
	return ms(s.SnapshotPeriodMS)
}

// Default returns a runnable two-airport scenario
func Default() *Config {
	timing := sim.DefaultTiming()
	return &Config{
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 15,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Storage: StorageConfig{
			SQLitePath:  "atcsim.db",
			EventBuffer: 1024,
		},
		Simulation: SimulationConfig{
			StepMS:                   int(timing.StepInterval / time.Millisecond),
			DT:                       timing.DT,
			TakeoffRollGain:          timing.TakeoffRollGain,
			TowerPeriodMS:            int(timing.TowerPeriod / time.Millisecond),
			ApproachPeriodMS:         int(timing.ApproachPeriod / time.Millisecond),
			CenterPeriodMS:           int(timing.CenterPeriod / time.Millisecond),
			FlightPlanSpacingSeconds: 15,
			EmergencyOdds:            timing.EmergencyOdds,
			StandCount:               5,
			SnapshotPeriodMS:         500,
			FlightPlanRetryMS:        int(timing.FlightPlanRetry / time.Millisecond),
			TakeoffWaitPollMS:        int(timing.TakeoffWaitPoll / time.Millisecond),
			DiscardDelayMS:           int(timing.DiscardDelay / time.Millisecond),
			EngineRepairMS:           int(timing.EngineRepair / time.Millisecond),
			MedicalEvacuationMS:      int(timing.MedicalEvacuation / time.Millisecond),
			SpawnDelayMinMS:          int(timing.SpawnDelayMin / time.Millisecond),
			SpawnDelayMaxMS:          int(timing.SpawnDelayMax / time.Millisecond),
		},
		Airports: []AirportConfig{
			{Name: "LFPG", X: 0, Y: 0, ControlRadius: 20000},
			{Name: "EGLL", X: 150000, Y: 80000, ControlRadius: 20000},
		},
		Aircraft: []AircraftConfig{
			{Name: "AF1234", CruiseSpeed: 230, TaxiSpeed: 15, Fuel: 50000, BurnRate: 3, TurnaroundSeconds: 3, Origin: "LFPG", Destination: "EGLL", Start: StartAirborne},
			{Name: "BA0305", CruiseSpeed: 220, TaxiSpeed: 15, Fuel: 50000, BurnRate: 3, TurnaroundSeconds: 3, Origin: "EGLL", Destination: "LFPG", Start: StartAirborne},
			{Name: "AF0010", CruiseSpeed: 240, TaxiSpeed: 12, Fuel: 40000, BurnRate: 2.5, TurnaroundSeconds: 3, Origin: "LFPG", Destination: "EGLL", Start: StartParked},
		},
	}
}

// Load reads a TOML file on top of the defaults and validates the result.
// Listing airports or aircraft in the file replaces the default scenario.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.Airports = nil
	cfg.Aircraft = nil

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: unknown keys: %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}

	if len(cfg.Airports) == 0 && len(cfg.Aircraft) == 0 {
		def := Default()
		cfg.Airports, cfg.Aircraft = def.Airports, def.Aircraft
	}
	for i := range cfg.Aircraft {
		if cfg.Aircraft[i].Start == "" {
			cfg.Aircraft[i].Start = StartAirborne
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross references and ranges
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d", ErrInvalidConfig, c.Server.Port)
	}
	if err := c.Simulation.Timing().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Simulation.StandCount <= 0 {
		return fmt.Errorf("%w: stand_count must be positive", ErrInvalidConfig)
	}
	if c.Simulation.FlightPlanSpacingSeconds < 0 {
		return fmt.Errorf("%w: flight_plan_spacing_seconds cannot be negative", ErrInvalidConfig)
	}
	if c.Simulation.SnapshotPeriodMS <= 0 {
		return fmt.Errorf("%w: snapshot_period_ms must be positive", ErrInvalidConfig)
	}

	airports := make(map[string]bool, len(c.Airports))
	for _, a := range c.Airports {
		switch {
		case a.Name == "":
			return fmt.Errorf("%w: airport without a name", ErrInvalidConfig)
		case airports[a.Name]:
			return fmt.Errorf("%w: duplicate airport %s", ErrInvalidConfig, a.Name)
		case a.ControlRadius <= 0:
			return fmt.Errorf("%w: airport %s: control_radius must be positive", ErrInvalidConfig, a.Name)
		}
		airports[a.Name] = true
	}

	if len(c.Aircraft) > 0 && len(c.Airports) < 2 {
		return fmt.Errorf("%w: aircraft need at least two airports", ErrInvalidConfig)
	}

	names := make(map[string]bool, len(c.Aircraft))
	for _, a := range c.Aircraft {
		switch {
		case a.Name == "":
			return fmt.Errorf("%w: aircraft without a name", ErrInvalidConfig)
		case names[a.Name]:
			return fmt.Errorf("%w: duplicate aircraft %s", ErrInvalidConfig, a.Name)
		case !airports[a.Origin]:
			return fmt.Errorf("%w: aircraft %s: unknown origin %q", ErrInvalidConfig, a.Name, a.Origin)
		case !airports[a.Destination]:
			return fmt.Errorf("%w: aircraft %s: unknown destination %q", ErrInvalidConfig, a.Name, a.Destination)
		case a.Origin == a.Destination:
			return fmt.Errorf("%w: aircraft %s: origin and destination are both %s", ErrInvalidConfig, a.Name, a.Origin)
		case a.CruiseSpeed <= 0 || a.TaxiSpeed <= 0:
			return fmt.Errorf("%w: aircraft %s: speeds must be positive", ErrInvalidConfig, a.Name)
		case a.Fuel < 0 || a.BurnRate < 0 || a.TurnaroundSeconds < 0:
			return fmt.Errorf("%w: aircraft %s: fuel, burn_rate and turnaround_seconds cannot be negative", ErrInvalidConfig, a.Name)
		case a.Start != StartAirborne && a.Start != StartParked:
			return fmt.Errorf("%w: aircraft %s: start must be %q or %q", ErrInvalidConfig, a.Name, StartAirborne, StartParked)
		}
		names[a.Name] = true
	}
	return nil
}
