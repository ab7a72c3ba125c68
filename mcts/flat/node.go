package flat

import (
	"math/rand/v2"

	"github.com/sw965/pomcp/belief"
	"github.com/sw965/pomcp/statistic"
)

// QNode holds the statistics of one action taken from a decision node.
type QNode struct {
	// Value is the UCB1 return statistic.
	Value statistic.Running

	applicable   bool
	count        int
	observations statistic.Dirichlet[int]
	rewards      statistic.Dirichlet[float64]
	children     map[int]Handle
}

func (q *QNode) reset() {
	q.Value.Clear()
	q.applicable = false
	q.count = 0
	q.observations.Clear()
	q.rewards.Clear()
	clear(q.children)
}

func (q *QNode) Applicable() bool {
	return q.applicable
}

// Count is the number of simulations whose outcome updated the Thompson
// posteriors of q.
func (q *QNode) Count() int {
	return q.count
}

// Update records one observed outcome in the Thompson posteriors.
func (q *QNode) Update(observation int, reward float64, count int) {
	q.observations.Add(observation)
	q.rewards.Add(reward)
	q.count += count
}

// SetPrior seeds both the UCB statistic and the Thompson posteriors. A
// positive count on an applicable action counts as exploration.
func (q *QNode) SetPrior(count int, value float64, applicable bool) {
	q.applicable = applicable
	q.Value.Set(count, value)
	if applicable {
		q.rewards.Set(count, value)
		q.count = count
	} else {
		q.rewards.Clear()
		q.count = 0
	}
}

func (q *QNode) Observations() *statistic.Dirichlet[int] {
	return &q.observations
}

func (q *QNode) Rewards() *statistic.Dirichlet[float64] {
	return &q.rewards
}

// Child returns the decision node reached by observation, or NilHandle.
func (q *QNode) Child(observation int) Handle {
	if h, ok := q.children[observation]; ok {
		return h
	}
	return NilHandle
}

func (q *QNode) SetChild(observation int, h Handle) {
	if q.children == nil {
		q.children = map[int]Handle{}
	}
	q.children[observation] = h
}

// Children calls f for every observation that has a child.
func (q *QNode) Children(f func(observation int, h Handle)) {
	for o, h := range q.children {
		f(o, h)
	}
}

// VNode is a decision node: one information state reached during search.
type VNode[S any] struct {
	Belief belief.Set[S]
	// Value is the UCB1 return statistic.
	Value statistic.Running

	hash           uint64
	children       []QNode
	cumulative     map[uint64]*statistic.NormalGamma
	cumulativeKeys []uint64
}

func (v *VNode[S]) reset(hash uint64, numActions int) {
	v.hash = hash
	v.Value.Clear()
	if cap(v.children) < numActions {
		v.children = make([]QNode, numActions)
	}
	v.children = v.children[:numActions]
	for a := range v.children {
		v.children[a].reset()
	}
	clear(v.cumulative)
	v.cumulativeKeys = v.cumulativeKeys[:0]
}

func (v *VNode[S]) BeliefHash() uint64 {
	return v.hash
}

func (v *VNode[S]) NumChildren() int {
	return len(v.children)
}

func (v *VNode[S]) Child(action int) *QNode {
	return &v.children[action]
}

// Cumulative returns the Normal-Gamma return posterior of the exact state
// with hash stateHash, creating it on first use.
func (v *VNode[S]) Cumulative(stateHash uint64) *statistic.NormalGamma {
	if g, ok := v.cumulative[stateHash]; ok {
		return g
	}
	if v.cumulative == nil {
		v.cumulative = map[uint64]*statistic.NormalGamma{}
	}
	g := statistic.NewNormalGamma()
	v.cumulative[stateHash] = &g
	v.cumulativeKeys = append(v.cumulativeKeys, stateHash)
	return &g
}

// ThompsonValue mixes the per-state posteriors weighted by their counts.
// A node without data answers from the prior.
func (v *VNode[S]) ThompsonValue(sampling bool, rng *rand.Rand) float64 {
	count := 0.0
	sum := 0.0
	for _, k := range v.cumulativeKeys {
		g := v.cumulative[k]
		count += g.Count()
		sum += g.Count() * g.ThompsonSampling(sampling, rng)
	}
	if count == 0 {
		g := statistic.NewNormalGamma()
		return g.ThompsonSampling(sampling, rng)
	}
	return sum / count
}
