package flat

import (
	"math"

	"github.com/sw965/pomcp/mcts"
	"github.com/sw965/pomcp/statistic"
)

// GreedyUCB picks the applicable action with the best mean, plus the UCB1
// bonus when ucb is set. Ties are broken uniformly at random.
func (e *Engine[S]) GreedyUCB(v *VNode[S], ucb bool) int {
	N := v.Value.Count()
	f := e.ucb.Func(e.sim.RewardRange(), ucb)
	best := make([]int, 0, len(v.children))
	bestq := math.Inf(-1)

	for a := range v.children {
		q := &v.children[a]
		if !q.applicable {
			continue
		}

		value := f(q.Value.Mean(), N, q.Value.Count())

		if value >= bestq {
			if value > bestq {
				best = best[:0]
			}
			bestq = value
			best = append(best, a)
		}
	}

	if len(best) == 0 {
		panic("BUG: no applicable action to select")
	}
	return mcts.Choice(best, e.rng)
}

// ThompsonSampling picks an action by posterior sampling, or by posterior
// means when sampling is false. While sampling, actions that were never
// tried go first.
func (e *Engine[S]) ThompsonSampling(v *VNode[S], depth int, sampling bool) int {
	if sampling {
		unexplored := make([]int, 0, len(v.children))
		for a := range v.children {
			q := &v.children[a]
			if q.applicable && q.count <= 0 {
				unexplored = append(unexplored, a)
			}
		}
		if len(unexplored) > 0 {
			return mcts.Choice(unexplored, e.rng)
		}
	}

	best := make([]int, 0, len(v.children))
	bestq := math.Inf(-1)
	for a := range v.children {
		q := &v.children[a]
		if !q.applicable {
			continue
		}

		value := e.QValue(q, depth, sampling)
		if value >= bestq {
			if value > bestq {
				best = best[:0]
			}
			bestq = value
			best = append(best, a)
		}
	}

	if len(best) == 0 {
		panic("BUG: no applicable action to select")
	}
	return mcts.Choice(best, e.rng)
}

// QValue is discount * sum_o P(o) V(child_o) + sum_r P(r) r under the
// Dirichlet posteriors of q.
func (e *Engine[S]) QValue(q *QNode, depth int, sampling bool) float64 {
	value := 0.0
	observations := q.observations.Keys()
	for i, p := range q.observations.Probabilities(sampling, e.rng) {
		value += p * e.HValue(q.Child(observations[i]), depth, sampling)
	}
	value *= e.sim.Discount()

	rewards := q.rewards.Keys()
	for i, p := range q.rewards.Probabilities(sampling, e.rng) {
		value += p * rewards[i]
	}
	return value
}

// HValue is the value of the decision node below an action at depth. Past
// the horizon it is worth nothing, even when the node exists. A missing
// node is drawn from the prior.
func (e *Engine[S]) HValue(h Handle, depth int, sampling bool) float64 {
	if depth+1 >= e.params.MaxDepth {
		return 0
	}
	if e.tree.Alive(h) {
		return e.tree.Get(h).ThompsonValue(sampling, e.rng)
	}
	g := statistic.NewNormalGamma()
	return g.ThompsonSampling(sampling, e.rng)
}
