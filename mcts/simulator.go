// Package mcts defines what the planners need from a domain and the pieces
// shared by the flat and hierarchical engines: knowledge-driven priors and
// rollout policies, search parameters, the UCB bonus table, the bounded
// search loop and instrumentation.
//
// Package mcts はプランナーがドメインに要求するインターフェースと、
// flat / hierarchical の両エンジンで共有する部品を提供します。
package mcts

import (
	"io"

	"github.com/sw965/pomcp/belief"
	"github.com/sw965/pomcp/history"
)

// UnboundedObservations is returned by NumObservations for domains whose
// observation space cannot be enumerated.
const UnboundedObservations = -1

// State is an opaque simulation state. Engines never look inside one; they
// copy, free and hash it.
type State interface {
	Hash() uint64
}

type Properties struct {
	FullyObservable  bool
	StateAbstraction bool
	Hierarchical     bool
}

// Simulator is the black-box generative model of a domain.
type Simulator[S State] interface {
	CreateStartState() S
	Copy(S) S
	FreeState(S)
	Step(state S, action int) (observation int, reward float64, terminal bool)

	NumActions() int
	NumObservations() int
	Discount() float64
	RewardRange() float64
	Properties() Properties
}

// Optional capabilities. A simulator implements the ones it can support;
// the helpers below fall back to neutral behaviour for the rest.

type Validator[S State] interface {
	Validate(S) error
}

type LegalGenerator[S State] interface {
	GenerateLegal(S, *history.History) []int
}

type PreferredGenerator[S State] interface {
	GeneratePreferred(S, *history.History) []int
}

// LocalMover judges whether a forward-simulated particle is close enough
// to the real observation to be kept as a local transform.
type LocalMover[S State] interface {
	LocalMove(state S, h *history.History, observation int) bool
}

// Observer maps a state to the observation it would emit.
type Observer[S State] interface {
	Observe(S) int
}

// ExitSuggester proposes a primitive action that moves state toward exit.
type ExitSuggester[S State] interface {
	SuggestAction(state, exit S) int
}

type Displayer[S State] interface {
	DisplayState(w io.Writer, s S)
	DisplayAction(w io.Writer, action int)
	DisplayObservation(w io.Writer, s S, observation int)
	DisplayReward(w io.Writer, reward float64)
	DisplayBeliefs(w io.Writer, b *belief.Set[S])
}

func Validate[S State](sim Simulator[S], s S) {
	v, ok := sim.(Validator[S])
	if !ok {
		return
	}
	if err := v.Validate(s); err != nil {
		panic("BUG: invalid state: " + err.Error())
	}
}

func GenerateLegal[S State](sim Simulator[S], s S, h *history.History) []int {
	if g, ok := sim.(LegalGenerator[S]); ok {
		return g.GenerateLegal(s, h)
	}
	actions := make([]int, sim.NumActions())
	for a := range actions {
		actions[a] = a
	}
	return actions
}

func GeneratePreferred[S State](sim Simulator[S], s S, h *history.History) []int {
	if g, ok := sim.(PreferredGenerator[S]); ok {
		return g.GeneratePreferred(s, h)
	}
	return nil
}

func LocalMove[S State](sim Simulator[S], s S, h *history.History, observation int) bool {
	if m, ok := sim.(LocalMover[S]); ok {
		return m.LocalMove(s, h, observation)
	}
	return true
}
