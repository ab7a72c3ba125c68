package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/pomcp/config"
	"github.com/sw965/pomcp/experiment"
)

const squareMap = `size 3 2
rooms 2
start 0 0
goal 2 0
aab
aab
`

func writeMap(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "square.map")
	require.NoError(t, os.WriteFile(path, []byte(squareMap), 0o644))
	return path
}

func smallConfig(t *testing.T, problem, planner string) config.Config {
	c := config.Default()
	c.Problem = problem
	c.Planner = planner
	c.MapFile = writeMap(t)
	c.Search.MaxDepth = 10
	c.Search.NumSimulations = 32
	c.Search.NumStartStates = 32
	c.Search.DiscoveryWalks = 10
	c.Search.DiscoveryDepth = 10
	c.Search.UCBTableN = 64
	c.Search.UCBTablen = 16
	c.Experiment.NumRuns = 2
	c.Experiment.NumSteps = 10
	c.Experiment.Seed = 1
	require.NoError(t, c.Validate())
	return c
}

func TestBuild(t *testing.T) {
	testCases := []struct {
		problem string
		planner string
	}{
		{config.ProblemTiger, config.PlannerFlat},
		{config.ProblemTest, config.PlannerFlat},
		{config.ProblemRooms, config.PlannerFlat},
		{config.ProblemRooms, config.PlannerHierarchical},
		{config.ProblemContinuousRooms, config.PlannerHierarchical},
	}

	for _, tc := range testCases {
		t.Run(tc.problem+"/"+tc.planner, func(t *testing.T) {
			r, err := build(smallConfig(t, tc.problem, tc.planner), zerolog.Nop(), nil)
			require.NoError(t, err)
			assert.Equal(t, 32, r.Simulations())

			results, err := r.MultiRun()
			require.NoError(t, err)
			assert.Equal(t, 2, results.Runs())
		})
	}
}

func TestBuildMissingMap(t *testing.T) {
	c := smallConfig(t, config.ProblemRooms, config.PlannerFlat)
	c.MapFile = filepath.Join(t.TempDir(), "missing.map")
	_, err := build(c, zerolog.Nop(), nil)
	assert.Error(t, err)
}

func TestWriteSummaries(t *testing.T) {
	var r experiment.Results
	r.Add(experiment.Episode{DiscountedReturn: 1, UndiscountedReturn: 2})
	r.Add(experiment.Episode{DiscountedReturn: 3, UndiscountedReturn: 4, Deprived: true})

	var buf bytes.Buffer
	require.NoError(t, writeSummaries(&buf, []experiment.Summary{{Simulations: 8, Results: r}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "simulations"))
	assert.Equal(t, []string{"8", "2", "3.000", "1.000", "2.000", "1.000", "0.000", "1"}, strings.Fields(lines[1]))
}

func TestLayoutCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"layout", writeMap(t)})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "...\n@.G\n", buf.String())
}
