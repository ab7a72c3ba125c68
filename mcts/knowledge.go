package mcts

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/pomcp/history"
)

// LargeInteger is the pseudo-count given to inapplicable actions so that no
// amount of exploration bonus makes them attractive.
const LargeInteger = 1000000

// Level is how much domain knowledge seeds the tree or drives rollouts.
type Level int

const (
	Pure Level = iota
	Legal
	Smart
)

var levelNames = []string{"pure", "legal", "smart"}

func (l Level) String() string {
	if l < Pure || l > Smart {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, name := range levelNames {
		if s == name {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown knowledge level %q", ErrInvalidKnowledge, s)
}

type Knowledge struct {
	TreeLevel      Level   `yaml:"tree_level"`
	RolloutLevel   Level   `yaml:"rollout_level"`
	SmartTreeCount int     `yaml:"smart_tree_count" validate:"gte=0"`
	SmartTreeValue float64 `yaml:"smart_tree_value"`
}

func DefaultKnowledge() Knowledge {
	return Knowledge{
		TreeLevel:      Legal,
		RolloutLevel:   Legal,
		SmartTreeCount: 10,
		SmartTreeValue: 1.0,
	}
}

func (k Knowledge) Validate() error {
	if k.TreeLevel < Pure || k.TreeLevel > Smart {
		return fmt.Errorf("%w: tree level %d", ErrInvalidKnowledge, k.TreeLevel)
	}
	if k.RolloutLevel < Pure || k.RolloutLevel > Smart {
		return fmt.Errorf("%w: rollout level %d", ErrInvalidKnowledge, k.RolloutLevel)
	}
	if k.SmartTreeCount < 0 {
		return fmt.Errorf("%w: smart tree count %d < 0", ErrInvalidKnowledge, k.SmartTreeCount)
	}
	return nil
}

// ActionPrior seeds one action of a freshly expanded node.
type ActionPrior struct {
	Count      int
	Value      float64
	Applicable bool
}

// Prior returns one ActionPrior per action according to the tree level.
func Prior[S State](sim Simulator[S], k Knowledge, s S, h *history.History) []ActionPrior {
	priors := make([]ActionPrior, sim.NumActions())
	if k.TreeLevel == Pure {
		for a := range priors {
			priors[a] = ActionPrior{Applicable: true}
		}
		return priors
	}

	for a := range priors {
		priors[a] = ActionPrior{Count: LargeInteger, Value: math.Inf(-1)}
	}

	if k.TreeLevel >= Legal {
		for _, a := range GenerateLegal(sim, s, h) {
			priors[a] = ActionPrior{Applicable: true}
		}
	}

	if k.TreeLevel >= Smart {
		for _, a := range GeneratePreferred(sim, s, h) {
			priors[a] = ActionPrior{Count: k.SmartTreeCount, Value: k.SmartTreeValue, Applicable: true}
		}
	}
	return priors
}

// SelectRandom is the default rollout policy: a preferred action under smart
// knowledge, a legal one under legal knowledge, otherwise any action.
func SelectRandom[S State](sim Simulator[S], k Knowledge, s S, h *history.History, rng *rand.Rand) int {
	if k.RolloutLevel >= Smart {
		if actions := GeneratePreferred(sim, s, h); len(actions) > 0 {
			return Choice(actions, rng)
		}
	}

	if k.RolloutLevel >= Legal {
		if actions := GenerateLegal(sim, s, h); len(actions) > 0 {
			return Choice(actions, rng)
		}
	}
	return rng.IntN(sim.NumActions())
}

// Choice draws uniformly from xs, which must not be empty.
func Choice[K comparable](xs []K, rng *rand.Rand) K {
	x, err := randx.Choice(xs, rng)
	if err != nil {
		panic("BUG: " + err.Error())
	}
	return x
}
