package mcts_test

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/pomcp/domain/testsim"
	"github.com/sw965/pomcp/history"
	"github.com/sw965/pomcp/mcts"
)

func TestUCBTableMatchesClosedForm(t *testing.T) {
	table := mcts.NewUCBTable(128, 32)
	for N := range 200 {
		for n := 1; n < 50; n++ {
			want := math.Sqrt(math.Log(float64(N+1)) / float64(n))
			require.Equal(t, want, table.Term(N, n), "N=%d n=%d", N, n)
		}
	}

	var none *mcts.UCBTable
	assert.Equal(t, table.Term(10, 3), none.Term(10, 3))
}

func TestUCBTableUnvisitedIsInfinite(t *testing.T) {
	table := mcts.NewUCBTable(8, 8)
	assert.True(t, math.IsInf(table.Term(5, 0), 1))
	assert.True(t, math.IsInf(table.Term(500, 0), 1))
	assert.True(t, math.IsInf(table.Bonus(5, 0, 0), 1))
	assert.Equal(t, 2*table.Term(5, 2), table.Bonus(5, 2, 2))
}

func TestUCBFunc(t *testing.T) {
	table := mcts.NewUCBTable(16, 16)

	ucb1 := table.UpperConfidenceBound1(2)
	assert.Equal(t, 0.5+2*table.Term(10, 3), ucb1(0.5, 10, 3))
	assert.True(t, math.IsInf(ucb1(0.5, 10, 0), 1))

	assert.Equal(t, 0.5, mcts.Greedy(0.5, 10, 0))
	assert.Equal(t, 0.5, table.Func(2, false)(0.5, 10, 3))
	assert.Equal(t, ucb1(-1, 7, 2), table.Func(2, true)(-1, 7, 2))
}

// legalSim restricts the legal actions of a testsim and prefers one.
type legalSim struct {
	*testsim.Simulator
	legal     []int
	preferred []int
}

func (s legalSim) GenerateLegal(*testsim.State, *history.History) []int     { return s.legal }
func (s legalSim) GeneratePreferred(*testsim.State, *history.History) []int { return s.preferred }

func TestPrior(t *testing.T) {
	sim := legalSim{
		Simulator: testsim.New(4, 2, 2, rand.New(rand.NewPCG(1, 1))),
		legal:     []int{1, 2, 3},
		preferred: []int{2},
	}
	s := sim.CreateStartState()
	h := history.New(history.WholeHistory)

	tests := []struct {
		name  string
		level mcts.Level
		want  []mcts.ActionPrior
	}{
		{
			name:  "pure",
			level: mcts.Pure,
			want: []mcts.ActionPrior{
				{Applicable: true}, {Applicable: true}, {Applicable: true}, {Applicable: true},
			},
		},
		{
			name:  "legal",
			level: mcts.Legal,
			want: []mcts.ActionPrior{
				{Count: mcts.LargeInteger, Value: math.Inf(-1)},
				{Applicable: true}, {Applicable: true}, {Applicable: true},
			},
		},
		{
			name:  "smart",
			level: mcts.Smart,
			want: []mcts.ActionPrior{
				{Count: mcts.LargeInteger, Value: math.Inf(-1)},
				{Applicable: true},
				{Count: 10, Value: 1.0, Applicable: true},
				{Applicable: true},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			k := mcts.DefaultKnowledge()
			k.TreeLevel = tc.level
			assert.Equal(t, tc.want, mcts.Prior[*testsim.State](sim, k, s, h))
		})
	}
}

func TestSelectRandom(t *testing.T) {
	sim := legalSim{
		Simulator: testsim.New(4, 2, 2, rand.New(rand.NewPCG(1, 1))),
		legal:     []int{1, 3},
		preferred: []int{2},
	}
	s := sim.CreateStartState()
	h := history.New(history.WholeHistory)
	rng := rand.New(rand.NewPCG(2, 2))

	tests := []struct {
		name  string
		level mcts.Level
		want  map[int]bool
	}{
		{name: "pure", level: mcts.Pure, want: map[int]bool{0: true, 1: true, 2: true, 3: true}},
		{name: "legal", level: mcts.Legal, want: map[int]bool{1: true, 3: true}},
		{name: "smart", level: mcts.Smart, want: map[int]bool{2: true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			k := mcts.DefaultKnowledge()
			k.RolloutLevel = tc.level
			got := map[int]bool{}
			for range 400 {
				got[mcts.SelectRandom[*testsim.State](sim, k, s, h, rng)] = true
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRun(t *testing.T) {
	p := mcts.DefaultParams()
	p.NumSimulations = 37
	calls := 0
	assert.Equal(t, 37, mcts.Run(p, func() { calls += 1 }))
	assert.Equal(t, 37, calls)

	p.TimeOutPerAction = 20 * time.Millisecond
	calls = 0
	start := time.Now()
	n := mcts.Run(p, func() {
		calls += 1
		time.Sleep(time.Millisecond)
	})
	assert.Equal(t, calls, n)
	assert.GreaterOrEqual(t, time.Since(start), p.TimeOutPerAction)
}

func TestHorizon(t *testing.T) {
	assert.Equal(t, 89, mcts.Horizon(0.95, 0.01, 15))
	assert.Equal(t, 15, mcts.Horizon(1.0, 0.01, 15))
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*mcts.Params)
		wantErr bool
	}{
		{name: "default", modify: func(*mcts.Params) {}},
		{name: "zero depth", modify: func(p *mcts.Params) { p.MaxDepth = 0 }, wantErr: true},
		{name: "zero simulations", modify: func(p *mcts.Params) { p.NumSimulations = 0 }, wantErr: true},
		{name: "zero simulations anytime", modify: func(p *mcts.Params) {
			p.NumSimulations = 0
			p.TimeOutPerAction = time.Second
		}},
		{name: "memory below whole history", modify: func(p *mcts.Params) { p.MemorySize = -2 }, wantErr: true},
		{name: "negative transforms", modify: func(p *mcts.Params) { p.NumTransforms = -1 }, wantErr: true},
		{name: "bad termination", modify: func(p *mcts.Params) { p.Termination = 9 }, wantErr: true},
		{name: "zero exploration scale", modify: func(p *mcts.Params) { p.ExplorationScale = 0 }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := mcts.DefaultParams()
			tc.modify(&p)
			err := p.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, mcts.ErrInvalidParams)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTextEnums(t *testing.T) {
	var l mcts.Level
	require.NoError(t, l.UnmarshalText([]byte("Smart")))
	assert.Equal(t, mcts.Smart, l)
	assert.ErrorIs(t, l.UnmarshalText([]byte("clever")), mcts.ErrInvalidKnowledge)

	var term mcts.Termination
	require.NoError(t, term.UnmarshalText([]byte("target")))
	assert.Equal(t, mcts.TerminateOnTarget, term)
	assert.Equal(t, "exit", mcts.TerminateOnExit.String())
	assert.ErrorIs(t, term.UnmarshalText([]byte("never")), mcts.ErrInvalidParams)
}

func TestMetrics(t *testing.T) {
	var none *mcts.Metrics
	assert.NotPanics(t, func() {
		none.ObserveSearch("flat", 1, time.Millisecond, 1, 1)
		none.Deprivation("flat")
		none.ObserveBelief("flat", 3)
	})

	reg := prometheus.NewRegistry()
	m := mcts.NewMetrics(reg)
	m.ObserveSearch("flat", 100, 5*time.Millisecond, 40, 7)
	m.ObserveSearch("flat", 50, 5*time.Millisecond, 20, 3)
	m.Deprivation("hierarchical")

	count, err := testutil.GatherAndCount(reg, "pomcp_simulations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deprivations("hierarchical")))
}
