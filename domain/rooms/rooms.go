// Package rooms is the discrete rooms grid world: an agent moves between
// rooms separated by walls toward a goal cell. Moves fail with a fixed
// probability and every step costs a random amount.
//
// Under state abstraction the agent only observes the label of its room,
// which is what the hierarchical planner builds its options from.
package rooms

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/sw965/pomcp/belief"
	"github.com/sw965/pomcp/domain/grid"
	"github.com/sw965/pomcp/history"
	"github.com/sw965/pomcp/mcts"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrInvalidConfig = errors.New("invalid rooms config")

type Config struct {
	NumActions       int     `yaml:"num_actions" validate:"oneof=4 8"`
	FailProbability  float64 `yaml:"fail_probability" validate:"gte=0,lte=1"`
	StepRewardMin    float64 `yaml:"step_reward_min"`
	StepRewardMax    float64 `yaml:"step_reward_max" validate:"gtefield=StepRewardMin"`
	GoalReward       float64 `yaml:"goal_reward"`
	Discount         float64 `yaml:"discount" validate:"gt=0,lte=1"`
	RewardRange      float64 `yaml:"reward_range" validate:"gt=0"`
	StateAbstraction bool    `yaml:"state_abstraction"`
}

func DefaultConfig() Config {
	return Config{
		NumActions:       8,
		FailProbability:  0.2,
		StepRewardMin:    -2,
		StepRewardMax:    0,
		GoalReward:       10,
		Discount:         0.98,
		RewardRange:      20,
		StateAbstraction: true,
	}
}

func (c Config) Validate() error {
	if c.NumActions != 4 && c.NumActions != 8 {
		return fmt.Errorf("%w: NumActions = %d, want 4 or 8", ErrInvalidConfig, c.NumActions)
	}
	if c.FailProbability < 0 || c.FailProbability > 1 {
		return fmt.Errorf("%w: FailProbability = %v", ErrInvalidConfig, c.FailProbability)
	}
	if c.StepRewardMin > c.StepRewardMax {
		return fmt.Errorf("%w: StepRewardMin %v > StepRewardMax %v", ErrInvalidConfig, c.StepRewardMin, c.StepRewardMax)
	}
	if c.Discount <= 0 || c.Discount > 1 {
		return fmt.Errorf("%w: Discount = %v", ErrInvalidConfig, c.Discount)
	}
	if c.RewardRange <= 0 {
		return fmt.Errorf("%w: RewardRange = %v", ErrInvalidConfig, c.RewardRange)
	}
	return nil
}

type State struct {
	Pos grid.Coord
}

func (s *State) Hash() uint64 {
	return history.Combine(0, s.Pos.X, s.Pos.Y)
}

type Simulator struct {
	layout *Layout
	config Config
	rng    *rand.Rand

	fail       distuv.Bernoulli
	stepReward distuv.Uniform

	pool sync.Pool
	live int
}

func New(layout *Layout, config Config, rng *rand.Rand) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		layout:     layout,
		config:     config,
		rng:        rng,
		fail:       distuv.Bernoulli{P: config.FailProbability, Src: rng},
		stepReward: distuv.Uniform{Min: config.StepRewardMin, Max: config.StepRewardMax, Src: rng},
		pool:       sync.Pool{New: func() any { return &State{} }},
	}, nil
}

func (sim *Simulator) Layout() *Layout {
	return sim.layout
}

func (sim *Simulator) Config() Config {
	return sim.config
}

// Live is the number of states handed out and not yet freed.
func (sim *Simulator) Live() int {
	return sim.live
}

func (sim *Simulator) newState(pos grid.Coord) *State {
	sim.live += 1
	s := sim.pool.Get().(*State)
	s.Pos = pos
	return s
}

func (sim *Simulator) CreateStartState() *State {
	return sim.newState(sim.layout.Start)
}

func (sim *Simulator) Copy(s *State) *State {
	return sim.newState(s.Pos)
}

func (sim *Simulator) FreeState(s *State) {
	sim.live -= 1
	sim.pool.Put(s)
}

func (sim *Simulator) Step(s *State, action int) (int, float64, bool) {
	reward := sim.stepReward.Rand()
	if sim.fail.Rand() == 1 {
		action = sim.rng.IntN(sim.config.NumActions)
	}

	next := s.Pos.Add(grid.Compass[action])
	if sim.layout.Open(next) {
		s.Pos = next
	}

	observation := sim.Observe(s)
	if s.Pos == sim.layout.Goal {
		return observation, sim.config.GoalReward, true
	}
	return observation, reward, false
}

func (sim *Simulator) NumActions() int {
	return sim.config.NumActions
}

func (sim *Simulator) NumObservations() int {
	if sim.config.StateAbstraction {
		return 256
	}
	return sim.layout.Cells.Len()
}

func (sim *Simulator) Discount() float64 {
	return sim.config.Discount
}

func (sim *Simulator) RewardRange() float64 {
	return sim.config.RewardRange
}

func (sim *Simulator) Properties() mcts.Properties {
	return mcts.Properties{
		FullyObservable:  true,
		StateAbstraction: sim.config.StateAbstraction,
		Hierarchical:     true,
	}
}

// Observe is the room label under state abstraction and the cell index
// otherwise.
func (sim *Simulator) Observe(s *State) int {
	if sim.config.StateAbstraction {
		return int(sim.layout.Room(s.Pos))
	}
	return sim.layout.Cells.Index(s.Pos)
}

func (sim *Simulator) Validate(s *State) error {
	if !sim.layout.Open(s.Pos) {
		return fmt.Errorf("agent at %v is not on an open cell", s.Pos)
	}
	return nil
}

// GenerateLegal returns the moves that do not bump into a wall.
func (sim *Simulator) GenerateLegal(s *State, _ *history.History) []int {
	actions := make([]int, 0, sim.config.NumActions)
	for a := range sim.config.NumActions {
		if sim.layout.Open(s.Pos.Add(grid.Compass[a])) {
			actions = append(actions, a)
		}
	}
	return actions
}

// GeneratePreferred returns the legal moves that get closer to the goal.
func (sim *Simulator) GeneratePreferred(s *State, h *history.History) []int {
	d := grid.EuclideanDistance(s.Pos, sim.layout.Goal)
	var actions []int
	for _, a := range sim.GenerateLegal(s, h) {
		if grid.EuclideanDistance(s.Pos.Add(grid.Compass[a]), sim.layout.Goal) < d {
			actions = append(actions, a)
		}
	}
	return actions
}

func (sim *Simulator) LocalMove(s *State, h *history.History, _ int) bool {
	return sim.Observe(s) == h.LastObservation()
}

func (sim *Simulator) SuggestAction(s, exit *State) int {
	return grid.MoveTo(s.Pos, exit.Pos, sim.config.NumActions, sim.rng)
}

func (sim *Simulator) DisplayState(w io.Writer, s *State) {
	sim.layout.Render(w, s.Pos)
	fmt.Fprintf(w, "AgentPos=%v\n", s.Pos)
}

func (sim *Simulator) DisplayAction(w io.Writer, action int) {
	fmt.Fprintln(w, grid.Direction(action))
}

func (sim *Simulator) DisplayObservation(w io.Writer, _ *State, observation int) {
	if sim.config.StateAbstraction {
		fmt.Fprintf(w, "Observation: Room %c\n", byte(observation))
		return
	}
	fmt.Fprintf(w, "Observation: Pos %v\n", sim.layout.Cells.Coord(observation))
}

func (sim *Simulator) DisplayReward(w io.Writer, reward float64) {
	fmt.Fprintf(w, "Reward: %g\n", reward)
}

// DisplayBeliefs lists the agent positions held by b, most likely first.
func (sim *Simulator) DisplayBeliefs(w io.Writer, b *belief.Set[*State]) {
	counts := map[grid.Coord]int{}
	for _, s := range b.Particles() {
		counts[s.Pos] += 1
	}
	positions := make([]grid.Coord, 0, len(counts))
	for c := range counts {
		positions = append(positions, c)
	}
	slices.SortFunc(positions, func(a, b grid.Coord) int {
		if n := counts[b] - counts[a]; n != 0 {
			return n
		}
		return sim.layout.Cells.Index(a) - sim.layout.Cells.Index(b)
	})

	fmt.Fprint(w, "#Belief:")
	for _, c := range positions {
		fmt.Fprintf(w, " #%v (%.3f)", c, float64(counts[c])/float64(b.Len()))
	}
	fmt.Fprintln(w)
}
