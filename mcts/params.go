package mcts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sw965/pomcp/history"
)

var (
	ErrInvalidParams    = errors.New("invalid search params")
	ErrInvalidKnowledge = errors.New("invalid knowledge")
)

// Termination selects when a non-primitive option stops.
type Termination int

const (
	// TerminateOnExit stops an option as soon as the agent leaves the
	// option's entry region.
	TerminateOnExit Termination = iota
	// TerminateOnTarget keeps an option running until the target region is
	// reached.
	TerminateOnTarget
)

var terminationNames = []string{"exit", "target"}

func (t Termination) String() string {
	if t < TerminateOnExit || t > TerminateOnTarget {
		return fmt.Sprintf("Termination(%d)", int(t))
	}
	return terminationNames[t]
}

func (t Termination) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Termination) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, name := range terminationNames {
		if s == name {
			*t = Termination(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown termination %q", ErrInvalidParams, s)
}

type Params struct {
	Verbose        int `yaml:"verbose" validate:"gte=0"`
	MaxDepth       int `yaml:"max_depth" validate:"gte=1"`
	NumSimulations int `yaml:"num_simulations" validate:"gte=1"`
	NumStartStates int `yaml:"num_start_states" validate:"gte=1"`

	UseParticleFilter bool `yaml:"use_particle_filter"`
	UseTransforms     bool `yaml:"use_transforms"`
	NumTransforms     int  `yaml:"num_transforms" validate:"gte=0"`
	TransformAttempts int  `yaml:"transform_attempts" validate:"gte=0"`
	ReuseTree         bool `yaml:"reuse_tree"`

	ThompsonSampling bool `yaml:"thompson_sampling"`
	// TimeOutPerAction switches Search to anytime mode when positive.
	TimeOutPerAction time.Duration `yaml:"timeout_per_action" validate:"gte=0"`
	// MemorySize bounds the history window of the belief hash;
	// history.WholeHistory hashes everything.
	MemorySize int `yaml:"memory_size" validate:"gte=-1"`

	Polling           bool        `yaml:"polling"`
	Stack             bool        `yaml:"stack"`
	LocalReward       bool        `yaml:"local_reward"`
	Termination       Termination `yaml:"termination"`
	ActionAbstraction bool        `yaml:"action_abstraction"`
	DiscoveryWalks    int         `yaml:"discovery_walks" validate:"gte=0"`
	DiscoveryDepth    int         `yaml:"discovery_depth" validate:"gte=0"`
	ExplorationScale  float64     `yaml:"exploration_scale" validate:"gt=0"`

	UCBTableN int `yaml:"ucb_table_n" validate:"gte=0"`
	UCBTablen int `yaml:"ucb_table_small_n" validate:"gte=0"`
}

func DefaultParams() Params {
	return Params{
		MaxDepth:          100,
		NumSimulations:    1000,
		NumStartStates:    1000,
		UseParticleFilter: true,
		MemorySize:        history.WholeHistory,
		Polling:           true,
		Stack:             true,
		Termination:       TerminateOnExit,
		ActionAbstraction: true,
		DiscoveryWalks:    1000,
		DiscoveryDepth:    1000,
		ExplorationScale:  1.5,
		UCBTableN:         1 << 12,
		UCBTablen:         1 << 6,
	}
}

func (p Params) Validate() error {
	if p.MaxDepth < 1 {
		return fmt.Errorf("%w: MaxDepth=%d < 1", ErrInvalidParams, p.MaxDepth)
	}
	if p.NumSimulations < 1 && p.TimeOutPerAction <= 0 {
		return fmt.Errorf("%w: NumSimulations=%d < 1 without a timeout", ErrInvalidParams, p.NumSimulations)
	}
	if p.NumStartStates < 1 {
		return fmt.Errorf("%w: NumStartStates=%d < 1", ErrInvalidParams, p.NumStartStates)
	}
	if p.NumTransforms < 0 || p.TransformAttempts < 0 {
		return fmt.Errorf("%w: NumTransforms=%d TransformAttempts=%d", ErrInvalidParams, p.NumTransforms, p.TransformAttempts)
	}
	if p.MemorySize < history.WholeHistory {
		return fmt.Errorf("%w: MemorySize=%d", ErrInvalidParams, p.MemorySize)
	}
	if p.Termination < TerminateOnExit || p.Termination > TerminateOnTarget {
		return fmt.Errorf("%w: Termination=%d", ErrInvalidParams, p.Termination)
	}
	if p.DiscoveryWalks < 0 || p.DiscoveryDepth < 0 {
		return fmt.Errorf("%w: DiscoveryWalks=%d DiscoveryDepth=%d", ErrInvalidParams, p.DiscoveryWalks, p.DiscoveryDepth)
	}
	if p.ExplorationScale <= 0 {
		return fmt.Errorf("%w: ExplorationScale=%g <= 0", ErrInvalidParams, p.ExplorationScale)
	}
	if p.UCBTableN < 0 || p.UCBTablen < 0 {
		return fmt.Errorf("%w: UCB table %dx%d", ErrInvalidParams, p.UCBTableN, p.UCBTablen)
	}
	return nil
}

// MaxTransformAttempts bounds the local-transform loop of a belief update.
func (p Params) MaxTransformAttempts() int {
	return p.NumTransforms * p.TransformAttempts
}
