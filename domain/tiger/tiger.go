// Package tiger is the two-door tiger problem. A tiger hides behind one
// of two doors; listening is cheap and noisy, opening the tiger's door is
// costly and opening the other door pays off. Opening either door ends
// the episode.
package tiger

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/sw965/pomcp/belief"
	"github.com/sw965/pomcp/mcts"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	Listen = iota
	OpenLeft
	OpenRight
)

// Observations.
const (
	HearLeft = iota
	HearRight
	Opened
)

const (
	ListenAccuracy = 0.85
	ListenReward   = -1.0
	TreasureReward = 10.0
	TigerReward    = -100.0
)

type Door int

const (
	Left Door = iota
	Right
)

func (d Door) String() string {
	if d == Left {
		return "left"
	}
	return "right"
}

type State struct {
	Tiger Door
}

func (s *State) Hash() uint64 {
	return uint64(s.Tiger)
}

type Simulator struct {
	rng    *rand.Rand
	listen distuv.Bernoulli
	live   int
}

func New(rng *rand.Rand) *Simulator {
	return &Simulator{rng: rng, listen: distuv.Bernoulli{P: ListenAccuracy, Src: rng}}
}

func (sim *Simulator) Live() int {
	return sim.live
}

func (sim *Simulator) CreateStartState() *State {
	sim.live += 1
	return &State{Tiger: Door(sim.rng.IntN(2))}
}

func (sim *Simulator) Copy(s *State) *State {
	sim.live += 1
	return &State{Tiger: s.Tiger}
}

func (sim *Simulator) FreeState(*State) {
	sim.live -= 1
}

func (sim *Simulator) Step(s *State, action int) (int, float64, bool) {
	switch action {
	case Listen:
		heard := s.Tiger
		if sim.listen.Rand() == 0 {
			heard = 1 - heard
		}
		return int(heard), ListenReward, false
	case OpenLeft, OpenRight:
		opened := Door(action - OpenLeft)
		if opened == s.Tiger {
			return Opened, TigerReward, true
		}
		return Opened, TreasureReward, true
	}
	panic(fmt.Sprintf("BUG: tiger action %d", action))
}

func (sim *Simulator) NumActions() int {
	return 3
}

func (sim *Simulator) NumObservations() int {
	return 3
}

func (sim *Simulator) Discount() float64 {
	return 0.95
}

func (sim *Simulator) RewardRange() float64 {
	return TreasureReward - TigerReward
}

func (sim *Simulator) Properties() mcts.Properties {
	return mcts.Properties{}
}

var actionNames = [...]string{"listen", "open left", "open right"}

func (sim *Simulator) DisplayState(w io.Writer, s *State) {
	fmt.Fprintf(w, "Tiger: %v\n", s.Tiger)
}

func (sim *Simulator) DisplayAction(w io.Writer, action int) {
	fmt.Fprintln(w, actionNames[action])
}

func (sim *Simulator) DisplayObservation(w io.Writer, _ *State, observation int) {
	switch observation {
	case HearLeft:
		fmt.Fprintln(w, "Observation: hear left")
	case HearRight:
		fmt.Fprintln(w, "Observation: hear right")
	default:
		fmt.Fprintln(w, "Observation: door opened")
	}
}

func (sim *Simulator) DisplayReward(w io.Writer, reward float64) {
	fmt.Fprintf(w, "Reward: %g\n", reward)
}

func (sim *Simulator) DisplayBeliefs(w io.Writer, b *belief.Set[*State]) {
	left := 0
	for _, s := range b.Particles() {
		if s.Tiger == Left {
			left += 1
		}
	}
	p := float64(left) / float64(max(b.Len(), 1))
	fmt.Fprintf(w, "#Belief: left (%.3f) right (%.3f)\n", p, 1-p)
}
