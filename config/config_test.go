package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/pomcp/config"
	"github.com/sw965/pomcp/experiment"
	"github.com/sw965/pomcp/mcts"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pomcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), c)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
problem: rooms
planner: hierarchical
map_file: maps/four.map
search:
  num_simulations: 256
  termination: target
  timeout_per_action: 50ms
knowledge:
  rollout_level: smart
experiment:
  num_runs: 10
  seed: 7
rooms:
  num_actions: 4
log:
  level: debug
`)
	c, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.ProblemRooms, c.Problem)
	assert.Equal(t, config.PlannerHierarchical, c.Planner)
	assert.Equal(t, 256, c.Search.NumSimulations)
	assert.Equal(t, mcts.TerminateOnTarget, c.Search.Termination)
	assert.Equal(t, 50*time.Millisecond, c.Search.TimeOutPerAction)
	assert.Equal(t, mcts.Smart, c.Knowledge.RolloutLevel)
	assert.Equal(t, 10, c.Experiment.NumRuns)
	assert.Equal(t, uint64(7), c.Experiment.Seed)
	assert.Equal(t, 4, c.Rooms.NumActions)
	assert.Equal(t, zerolog.DebugLevel, c.Log.ZerologLevel())

	// untouched keys keep their defaults
	assert.Equal(t, mcts.DefaultParams().MaxDepth, c.Search.MaxDepth)
	assert.Equal(t, experiment.DefaultParams().Accuracy, c.Experiment.Accuracy)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "experiment:\n  num_runs: 10\n")
	t.Setenv("POMCP_RUNS", "3")
	t.Setenv("POMCP_SEED", "99")
	t.Setenv("POMCP_SIMULATIONS", "32")
	t.Setenv("POMCP_LOG_LEVEL", "warn")

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Experiment.NumRuns)
	assert.Equal(t, uint64(99), c.Experiment.Seed)
	assert.Equal(t, 32, c.Search.NumSimulations)
	assert.Equal(t, zerolog.WarnLevel, c.Log.ZerologLevel())
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "unknown problem", yaml: "problem: chess\n"},
		{name: "unknown planner", yaml: "planner: alphazero\n"},
		{name: "rooms without map", yaml: "problem: rooms\n"},
		{name: "hierarchical tiger", yaml: "planner: hierarchical\n"},
		{name: "bad termination", yaml: "search:\n  termination: never\n"},
		{name: "zero depth", yaml: "search:\n  max_depth: 0\n"},
		{name: "bad discount", yaml: "rooms:\n  discount: 1.5\n"},
		{name: "bad log level", yaml: "log:\n  level: loud\n"},
		{name: "bad metrics addr", yaml: "metrics_addr: nowhere\n"},
		{name: "malformed yaml", yaml: "search: [\n"},
		{name: "bad env int", yaml: "", env: map[string]string{"POMCP_RUNS": "many"}},
		{name: "bad env seed", yaml: "", env: map[string]string{"POMCP_SEED": "-1"}},
		{name: "bad env timeout", yaml: "", env: map[string]string{"POMCP_TIMEOUT_PER_ACTION": "soon"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.Load(writeFile(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidateWrapsComponentErrors(t *testing.T) {
	c := config.Default()
	c.Experiment.Parallelism = 0
	err := c.Validate()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	c = config.Default()
	c.Knowledge.TreeLevel = mcts.Level(9)
	err = c.Validate()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.ErrorIs(t, err, mcts.ErrInvalidKnowledge)
}

func TestReadDefersValidation(t *testing.T) {
	path := writeFile(t, "problem: rooms\n")
	_, err := config.Load(path)
	require.Error(t, err)

	c, err := config.Read(path)
	require.NoError(t, err)
	c.MapFile = "maps/four.map"
	assert.NoError(t, c.Validate())
}
