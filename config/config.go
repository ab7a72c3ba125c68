// Package config loads the settings of a planning experiment: which problem
// to play, how to search, and how to report.
//
// Values are layered: defaults first, then a YAML file, then POMCP_*
// environment variables. Load validates the result; Read leaves that to
// the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/sw965/pomcp/domain/continuousrooms"
	"github.com/sw965/pomcp/domain/rooms"
	"github.com/sw965/pomcp/experiment"
	"github.com/sw965/pomcp/mcts"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	ProblemTiger           = "tiger"
	ProblemRooms           = "rooms"
	ProblemContinuousRooms = "continuousrooms"
	ProblemTest            = "testsim"

	PlannerFlat         = "flat"
	PlannerHierarchical = "hierarchical"
)

type TestSim struct {
	NumActions      int `yaml:"num_actions" validate:"gte=1"`
	NumObservations int `yaml:"num_observations" validate:"gte=1"`
	MaxDepth        int `yaml:"max_depth" validate:"gte=1"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `yaml:"pretty"`
}

// ZerologLevel parses Level. Validate has already rejected unknown names.
func (l Log) ZerologLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(l.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

type Config struct {
	Problem string `yaml:"problem" validate:"oneof=tiger rooms continuousrooms testsim"`
	// MapFile is the rooms layout; both rooms problems need one.
	MapFile string `yaml:"map_file"`
	Planner string `yaml:"planner" validate:"oneof=flat hierarchical"`

	Search     mcts.Params       `yaml:"search"`
	Knowledge  mcts.Knowledge    `yaml:"knowledge"`
	Experiment experiment.Params `yaml:"experiment"`

	Rooms           rooms.Config           `yaml:"rooms"`
	ContinuousRooms continuousrooms.Config `yaml:"continuous_rooms"`
	TestSim         TestSim                `yaml:"testsim"`

	Log Log `yaml:"log"`
	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

func Default() Config {
	return Config{
		Problem:         ProblemTiger,
		Planner:         PlannerFlat,
		Search:          mcts.DefaultParams(),
		Knowledge:       mcts.DefaultKnowledge(),
		Experiment:      experiment.DefaultParams(),
		Rooms:           rooms.DefaultConfig(),
		ContinuousRooms: continuousrooms.DefaultConfig(),
		TestSim: TestSim{
			NumActions:      3,
			NumObservations: 2,
			MaxDepth:        10,
		},
		Log: Log{Level: "info"},
	}
}

// Read layers path and the environment over the defaults without
// validating, so callers can apply further overrides first. An empty path
// or a missing file leaves the defaults alone.
func Read(path string) (Config, error) {
	c := Default()
	if path != "" {
		if err := loadFile(path, &c); err != nil {
			return c, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := loadEnv(&c); err != nil {
		return c, err
	}
	return c, nil
}

// Load is Read followed by Validate.
func Load(path string) (Config, error) {
	c, err := Read(path)
	if err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func loadFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, v, err)
	}
	*dst = i
	return nil
}

func loadEnv(c *Config) error {
	if v := os.Getenv("POMCP_PROBLEM"); v != "" {
		c.Problem = v
	}
	if v := os.Getenv("POMCP_MAP_FILE"); v != "" {
		c.MapFile = v
	}
	if v := os.Getenv("POMCP_PLANNER"); v != "" {
		c.Planner = v
	}
	if v := os.Getenv("POMCP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("POMCP_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("POMCP_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: POMCP_SEED=%q: %v", ErrInvalidConfig, v, err)
		}
		c.Experiment.Seed = seed
	}
	if v := os.Getenv("POMCP_TIMEOUT_PER_ACTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: POMCP_TIMEOUT_PER_ACTION=%q: %v", ErrInvalidConfig, v, err)
		}
		c.Search.TimeOutPerAction = d
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"POMCP_RUNS", &c.Experiment.NumRuns},
		{"POMCP_STEPS", &c.Experiment.NumSteps},
		{"POMCP_PARALLELISM", &c.Experiment.Parallelism},
		{"POMCP_SIMULATIONS", &c.Search.NumSimulations},
		{"POMCP_MAX_DEPTH", &c.Search.MaxDepth},
	}
	for _, e := range ints {
		if err := envInt(e.key, e.dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks field tags first and then the rules each component
// enforces itself.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Problem {
	case ProblemRooms, ProblemContinuousRooms:
		if c.MapFile == "" {
			return fmt.Errorf("%w: problem %s needs a map file", ErrInvalidConfig, c.Problem)
		}
	default:
		if c.Planner == PlannerHierarchical {
			return fmt.Errorf("%w: problem %s has no hierarchical structure", ErrInvalidConfig, c.Problem)
		}
	}

	validators := []interface{ Validate() error }{
		c.Search,
		c.Knowledge,
		c.Experiment,
		c.Rooms,
		c.ContinuousRooms,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}
