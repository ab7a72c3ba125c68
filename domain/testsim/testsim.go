// Package testsim is a small simulator with known values, used to check
// the planners.
//
// Action 0 earns 1 per step until MaxDepth steps have been taken, every
// other action earns nothing, and observations are uniformly random. A
// state records the observations it emitted, so a particle can be checked
// against the history of the node holding it.
package testsim

import (
	"math/rand/v2"

	"github.com/sw965/pomcp/history"
	"github.com/sw965/pomcp/mcts"
)

const discount = 0.95

type State struct {
	Depth int
	Trail []int
}

func (s *State) Hash() uint64 {
	return history.Combine(uint64(s.Depth), s.Trail...)
}

type Simulator struct {
	// FullyObservable makes engines collapse their belief to the real state.
	FullyObservable bool

	numActions      int
	numObservations int
	maxDepth        int
	rng             *rand.Rand
	live            int
}

func New(numActions, numObservations, maxDepth int, rng *rand.Rand) *Simulator {
	return &Simulator{
		numActions:      numActions,
		numObservations: numObservations,
		maxDepth:        maxDepth,
		rng:             rng,
	}
}

func (sim *Simulator) CreateStartState() *State {
	sim.live += 1
	return &State{}
}

func (sim *Simulator) Copy(s *State) *State {
	sim.live += 1
	return &State{Depth: s.Depth, Trail: append([]int(nil), s.Trail...)}
}

func (sim *Simulator) FreeState(*State) {
	sim.live -= 1
}

// Live is the number of states created and not yet freed.
func (sim *Simulator) Live() int {
	return sim.live
}

func (sim *Simulator) Step(s *State, action int) (int, float64, bool) {
	reward := 0.0
	if action == 0 && s.Depth < sim.maxDepth {
		reward = 1.0
	}
	observation := sim.rng.IntN(sim.numObservations)
	s.Depth += 1
	s.Trail = append(s.Trail, observation)
	return observation, reward, false
}

func (sim *Simulator) Observe(s *State) int {
	if len(s.Trail) == 0 {
		return history.NoObservation
	}
	return s.Trail[len(s.Trail)-1]
}

func (sim *Simulator) NumActions() int      { return sim.numActions }
func (sim *Simulator) NumObservations() int { return sim.numObservations }
func (sim *Simulator) Discount() float64    { return discount }
func (sim *Simulator) RewardRange() float64 { return 1.0 }

func (sim *Simulator) Properties() mcts.Properties {
	return mcts.Properties{FullyObservable: sim.FullyObservable}
}

// OptimalValue is the return of always playing action 0.
func (sim *Simulator) OptimalValue() float64 {
	total := 0.0
	d := 1.0
	for range sim.maxDepth {
		total += d
		d *= discount
	}
	return total
}

// MeanValue is the expected return of the uniform random policy.
func (sim *Simulator) MeanValue() float64 {
	return sim.OptimalValue() / float64(sim.numActions)
}
