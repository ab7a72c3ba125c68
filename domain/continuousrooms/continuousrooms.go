// Package continuousrooms is the rooms world with real-valued positions.
// Each cell of a rooms layout is a unit square; the agent moves one unit
// per step and then jitters with Gaussian noise inside its cell.
package continuousrooms

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/sw965/pomcp/belief"
	"github.com/sw965/pomcp/domain/grid"
	"github.com/sw965/pomcp/domain/rooms"
	"github.com/sw965/pomcp/history"
	"github.com/sw965/pomcp/mcts"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	numActions = 4
	// 失敗時は8方向のいずれかにランダムに動く
	numFailureMoves = 8
)

var ErrInvalidConfig = errors.New("invalid continuous rooms config")

type Config struct {
	FailProbability   float64 `yaml:"fail_probability" validate:"gte=0,lte=1"`
	MotionUncertainty float64 `yaml:"motion_uncertainty" validate:"gt=0"`
	GoalThreshold     float32 `yaml:"goal_threshold" validate:"gt=0"`
	StepReward        float64 `yaml:"step_reward"`
	GoalReward        float64 `yaml:"goal_reward"`
	Discount          float64 `yaml:"discount" validate:"gt=0,lte=1"`
	RewardRange       float64 `yaml:"reward_range" validate:"gt=0"`
	StateAbstraction  bool    `yaml:"state_abstraction"`
}

func DefaultConfig() Config {
	return Config{
		FailProbability:   0.25,
		MotionUncertainty: 0.25,
		GoalThreshold:     0.25,
		StepReward:        -1,
		GoalReward:        10,
		Discount:          0.98,
		RewardRange:       20,
		StateAbstraction:  true,
	}
}

func (c Config) Validate() error {
	switch {
	case c.FailProbability < 0 || c.FailProbability > 1:
		return fmt.Errorf("%w: FailProbability = %v", ErrInvalidConfig, c.FailProbability)
	case c.MotionUncertainty <= 0:
		return fmt.Errorf("%w: MotionUncertainty = %v", ErrInvalidConfig, c.MotionUncertainty)
	case c.GoalThreshold <= 0:
		return fmt.Errorf("%w: GoalThreshold = %v", ErrInvalidConfig, c.GoalThreshold)
	case c.Discount <= 0 || c.Discount > 1:
		return fmt.Errorf("%w: Discount = %v", ErrInvalidConfig, c.Discount)
	case c.RewardRange <= 0:
		return fmt.Errorf("%w: RewardRange = %v", ErrInvalidConfig, c.RewardRange)
	}
	return nil
}

type Vector struct {
	X, Y float32
}

func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vector) Dist(o Vector) float32 {
	return math32.Hypot(v.X-o.X, v.Y-o.Y)
}

func (v Vector) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", v.X, v.Y)
}

// Cell is the grid cell containing v.
func (v Vector) Cell() grid.Coord {
	return grid.Coord{X: int(math32.Floor(v.X)), Y: int(math32.Floor(v.Y))}
}

// Center is the middle of cell c.
func Center(c grid.Coord) Vector {
	return Vector{X: float32(c.X) + 0.5, Y: float32(c.Y) + 0.5}
}

type State struct {
	Pos Vector
}

func (s *State) Hash() uint64 {
	return history.Combine(0, int(math32.Float32bits(s.Pos.X)), int(math32.Float32bits(s.Pos.Y)))
}

type Simulator struct {
	layout *rooms.Layout
	config Config
	rng    *rand.Rand
	goal   Vector

	fail  distuv.Bernoulli
	noise distuv.Normal
	live  int
}

func New(layout *rooms.Layout, config Config, rng *rand.Rand) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		layout: layout,
		config: config,
		rng:    rng,
		goal:   Center(layout.Goal),
		fail:   distuv.Bernoulli{P: config.FailProbability, Src: rng},
		noise:  distuv.Normal{Mu: 0, Sigma: config.MotionUncertainty, Src: rng},
	}, nil
}

func (sim *Simulator) Live() int {
	return sim.live
}

func (sim *Simulator) Open(v Vector) bool {
	return v.X >= 0 && v.Y >= 0 && sim.layout.Open(v.Cell())
}

func (sim *Simulator) CreateStartState() *State {
	sim.live += 1
	return &State{Pos: Center(sim.layout.Start)}
}

func (sim *Simulator) Copy(s *State) *State {
	sim.live += 1
	return &State{Pos: s.Pos}
}

func (sim *Simulator) FreeState(*State) {
	sim.live -= 1
}

func (sim *Simulator) Step(s *State, action int) (int, float64, bool) {
	if sim.fail.Rand() == 1 {
		action = sim.rng.IntN(numFailureMoves)
	}

	move := grid.Compass[action]
	next := s.Pos.Add(Vector{X: float32(move.X), Y: float32(move.Y)})
	if sim.Open(next) {
		s.Pos = next
	}

	// ノイズはセルをまたがないように引き直す
	cell := s.Pos.Cell()
	for {
		jittered := s.Pos.Add(Vector{X: float32(sim.noise.Rand()), Y: float32(sim.noise.Rand())})
		if jittered.X >= 0 && jittered.Y >= 0 && jittered.Cell() == cell {
			s.Pos = jittered
			break
		}
	}

	observation := sim.Observe(s)
	if s.Pos.Dist(sim.goal) < sim.config.GoalThreshold {
		return observation, sim.config.GoalReward, true
	}
	return observation, sim.config.StepReward, false
}

func (sim *Simulator) NumActions() int {
	return numActions
}

func (sim *Simulator) NumObservations() int {
	if sim.config.StateAbstraction {
		return 256
	}
	return mcts.UnboundedObservations
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

// Observe is the room label under state abstraction and a non-negative
// hash of the exact position otherwise.
func (sim *Simulator) Observe(s *State) int {
	if sim.config.StateAbstraction {
		return int(sim.layout.Room(s.Pos.Cell()))
	}
	return int(s.Hash() >> 33)
}

func (sim *Simulator) Validate(s *State) error {
	if !sim.Open(s.Pos) {
		return fmt.Errorf("agent at %v is not inside an open cell", s.Pos)
	}
	return nil
}

func (sim *Simulator) GenerateLegal(*State, *history.History) []int {
	return []int{int(grid.North), int(grid.East), int(grid.South), int(grid.West)}
}

func (sim *Simulator) GeneratePreferred(s *State, h *history.History) []int {
	return sim.GenerateLegal(s, h)
}

// LocalMove accepts a particle that agrees with the last real observation.
func (sim *Simulator) LocalMove(s *State, h *history.History, _ int) bool {
	return sim.Observe(s) == h.LastObservation()
}

func (sim *Simulator) SuggestAction(s, exit *State) int {
	return grid.MoveTo(s.Pos.Cell(), exit.Pos.Cell(), numActions, sim.rng)
}

func (sim *Simulator) DisplayState(w io.Writer, s *State) {
	sim.layout.Render(w, s.Pos.Cell())
	fmt.Fprintf(w, "AgentPos=%v\nGoalDist=%.3f\n", s.Pos, s.Pos.Dist(sim.goal))
}

func (sim *Simulator) DisplayAction(w io.Writer, action int) {
	fmt.Fprintln(w, grid.Direction(action))
}

func (sim *Simulator) DisplayObservation(w io.Writer, _ *State, observation int) {
	if sim.config.StateAbstraction {
		fmt.Fprintf(w, "Observation: Room %c\n", byte(observation))
		return
	}
	fmt.Fprintf(w, "Observation: Hash(AgentPos) %d\n", observation)
}

func (sim *Simulator) DisplayReward(w io.Writer, reward float64) {
	fmt.Fprintf(w, "Reward: %g\n", reward)
}

func (sim *Simulator) DisplayBeliefs(w io.Writer, b *belief.Set[*State]) {
	counts := map[grid.Coord]int{}
	for _, s := range b.Particles() {
		counts[s.Pos.Cell()] += 1
	}
	fmt.Fprint(w, "#Belief:")
	for y := sim.layout.Cells.YSize - 1; y >= 0; y-- {
		for x := range sim.layout.Cells.XSize {
			c := grid.Coord{X: x, Y: y}
			if n := counts[c]; n > 0 {
				fmt.Fprintf(w, " #%v (%.3f)", c, float64(n)/float64(b.Len()))
			}
		}
	}
	fmt.Fprintln(w)
}
