package flat

import (
	"strings"

	"github.com/sw965/pomcp/belief"
	"github.com/sw965/pomcp/mcts"
)

// Update advances the root past the real step (action, observation).
// state is the real state after the step; only fully observable domains
// read it. Update returns false when no particle consistent with the real
// history could be found.
func (e *Engine[S]) Update(action, observation int, state S) bool {
	e.history.Add(action, observation, 0)

	if e.sim.Properties().FullyObservable {
		e.tree.Free(e.root, NilHandle, e.sim)
		e.root = e.ExpandNode(state)
		e.tree.Get(e.root).Belief.AddSample(e.sim.Copy(state))
		e.metrics.ObserveBelief(engineName, 1)
		return true
	}

	root := e.tree.Get(e.root)
	qnode := root.Child(action)
	matched := e.child(qnode, observation)

	var beliefs belief.Set[S]
	if matched.Valid() {
		beliefs.Copy(&e.tree.Get(matched).Belief, e.sim)
	}
	if e.params.UseParticleFilter {
		e.ParticleFilter(&root.Belief, &beliefs, action, observation, qnode)
	}
	if e.params.UseTransforms {
		e.AddTransforms(&root.Belief, &beliefs, action)
	}

	if beliefs.Empty() {
		e.metrics.Deprivation(engineName)
		e.logger.Warn().
			Int("action", action).
			Int("observation", observation).
			Int("history", e.history.Len()).
			Msg("particle deprivation")
		return false
	}

	// Priors of a fresh root are computed from a retained particle. Take a
	// copy: the particle may belong to a node freed below.
	sample := e.sim.Copy(beliefs.Sample(0))
	if matched.Valid() && !e.tree.Get(matched).Belief.Empty() {
		e.sim.FreeState(sample)
		sample = e.sim.Copy(e.tree.Get(matched).Belief.Sample(0))
	}

	if matched.Valid() && e.params.ReuseTree {
		e.tree.Free(e.root, matched, e.sim)
		e.root = matched
		e.tree.Get(e.root).Belief.Free(e.sim)
	} else {
		e.tree.Free(e.root, NilHandle, e.sim)
		e.root = e.ExpandNode(sample)
	}
	e.sim.FreeState(sample)

	newRoot := e.tree.Get(e.root)
	newRoot.Belief.Move(&beliefs)
	e.metrics.ObserveBelief(engineName, newRoot.Belief.Len())

	if e.params.Verbose >= 2 {
		if d, ok := e.sim.(mcts.Displayer[S]); ok {
			var b strings.Builder
			d.DisplayBeliefs(&b, &newRoot.Belief)
			e.logger.Debug().Str("beliefs", b.String()).Msg("belief updated")
		}
	}
	return true
}

// ParticleFilter tops beliefs up toward NumStartStates by rejection
// sampling: particles of prior are pushed through the real action and kept
// when they emit the real observation. It makes at most
// 10 * (NumStartStates - beliefs.Len()) attempts and returns how many it made.
func (e *Engine[S]) ParticleFilter(prior, beliefs *belief.Set[S], action, observation int, qnode *QNode) int {
	if prior.Empty() {
		return 0
	}

	target := e.params.NumStartStates
	maxAttempts := (target - beliefs.Len()) * 10
	attempts := 0
	for beliefs.Len() < target && attempts < maxAttempts {
		s := prior.CreateSample(e.sim, e.rng)
		o, reward, _ := e.sim.Step(s, action)
		if e.params.ThompsonSampling && qnode != nil {
			qnode.Update(o, reward, 0)
		}
		if o == observation {
			beliefs.AddSample(s)
		} else {
			e.sim.FreeState(s)
		}
		attempts += 1
	}
	return attempts
}

// AddTransforms adds up to NumTransforms particles accepted by the
// domain's LocalMove predicate and returns how many were added.
func (e *Engine[S]) AddTransforms(prior, beliefs *belief.Set[S], action int) int {
	if prior.Empty() {
		return 0
	}

	maxAttempts := e.params.MaxTransformAttempts()
	added := 0
	for attempts := 0; added < e.params.NumTransforms && attempts < maxAttempts; attempts++ {
		if s, ok := e.CreateTransform(prior, action); ok {
			beliefs.AddSample(s)
			added += 1
		}
	}
	return added
}

// CreateTransform forward-simulates one particle of prior through action
// and keeps it if LocalMove accepts it against the last real observation.
func (e *Engine[S]) CreateTransform(prior *belief.Set[S], action int) (S, bool) {
	s := prior.CreateSample(e.sim, e.rng)
	e.sim.Step(s, action)
	if mcts.LocalMove(e.sim, s, e.history, e.history.LastObservation()) {
		return s, true
	}
	e.sim.FreeState(s)
	var zero S
	return zero, false
}
