package hmcts

import (
	"math"

	"github.com/sw965/pomcp/history"
	"github.com/sw965/pomcp/mcts"
)

// Applicable reports whether o may start when the agent last observed
// lastObservation. Options start only from their own region, and only once
// a transition out of it has been seen.
func (e *Engine[S]) Applicable(lastObservation int, o Option) bool {
	if lastObservation < 0 || o.IsPrimitive() || o.IsRoot() {
		return true
	}
	return o.From == lastObservation && e.isAvailable(o)
}

// IsTerminated reports whether o has finished. The root task and
// primitives never terminate here; primitives end after their single step.
func (e *Engine[S]) IsTerminated(o Option, lastObservation int) bool {
	if !e.params.ActionAbstraction || o.IsPrimitive() || o.IsRoot() || lastObservation < 0 {
		return false
	}
	if e.params.Termination == mcts.TerminateOnTarget {
		return lastObservation == o.To
	}
	return lastObservation != o.From
}

func (e *Engine[S]) IsGoal(o Option, lastObservation int) bool {
	if !e.params.ActionAbstraction || o.IsPrimitive() || o.IsRoot() || lastObservation < 0 {
		return false
	}
	return lastObservation == o.To
}

// LocalReward is LocalPenalty when o ran past the horizon or ended outside
// its target region, and 0 otherwise.
func (e *Engine[S]) LocalReward(o Option, lastObservation, depth int) float64 {
	if !e.params.ActionAbstraction || !e.params.LocalReward || o.IsPrimitive() || o.IsRoot() {
		return 0
	}
	if depth >= e.params.MaxDepth || (e.IsTerminated(o, lastObservation) && !e.IsGoal(o, lastObservation)) {
		return LocalPenalty
	}
	return 0
}

func (e *Engine[S]) ExplorationConstant(o Option) float64 {
	c := e.sim.RewardRange()
	if e.params.ActionAbstraction && e.params.LocalReward && !o.IsPrimitive() && !o.IsRoot() {
		c *= e.params.ExplorationScale
	}
	return c
}

func (e *Engine[S]) channel() int {
	if e.params.LocalReward {
		return LocalChannel
	}
	return GlobalChannel
}

func (e *Engine[S]) selectable(o Option, lastObservation int) bool {
	if !o.IsPrimitive() && o.From == o.To {
		return false
	}
	return e.Applicable(lastObservation, o) && !e.IsTerminated(o, lastObservation)
}

// GreedyUCB picks the sub-task of o with the best mean in the active
// channel, plus the exploration bonus when ucb is set.
func (e *Engine[S]) GreedyUCB(o Option, lastObservation int, entry *Entry, ucb bool) Option {
	ch := &entry.V[e.channel()]
	N := ch.Value.Count()
	f := e.ucb.Func(e.ExplorationConstant(o), ucb)

	var best []Option
	bestq := math.Inf(-1)
	for _, sub := range e.SubTasks(o) {
		if !e.selectable(sub, lastObservation) {
			continue
		}

		var v float64
		n := 0
		if stat, ok := ch.Lookup(sub); ok {
			v = stat.Mean()
			n = stat.Count()
		}
		q := f(v, N, n)

		if q >= bestq {
			if q > bestq {
				best = best[:0]
			}
			bestq = q
			best = append(best, sub)
		}
	}

	if len(best) == 0 {
		panic("BUG: no sub-task of " + o.String() + " to select")
	}
	return mcts.Choice(best, e.rng)
}

// SearchTree executes o from input on state and returns its result. The
// table entry of (o, input) is created on the first visit and the rest of
// that execution is a rollout.
func (e *Engine[S]) SearchTree(o Option, input Input, state S, depth int) Result {
	e.treeDepth = max(e.treeDepth, depth)

	if o.IsPrimitive() {
		return e.Simulate(o.Action(), input, state, depth)
	}
	if depth >= e.params.MaxDepth || e.IsTerminated(o, input.LastObservation) {
		return Result{Output: input}
	}

	entry := e.Query(o, input.Hash)
	if entry == nil {
		e.Insert(o, input.Hash)
		return e.Rollout(o, input, state, depth)
	}

	sub := e.GreedyUCB(o, input.LastObservation, entry, true)
	subResult := e.SearchTree(sub, input, state, depth)
	result := subResult
	if !subResult.Terminal {
		completion := e.SearchTree(o, subResult.Output, state, depth+subResult.Steps)
		result = Combine(subResult, completion, e.sim.Discount())
	}

	entry.V[GlobalChannel].Value.Add(result.Reward)
	entry.V[GlobalChannel].QValue(sub).Add(result.Reward)

	if e.params.LocalReward {
		local := pow(e.sim.Discount(), result.Steps) *
			e.LocalReward(o, result.Output.LastObservation, depth+result.Steps)
		entry.V[LocalChannel].Value.Add(result.Reward + local)
		entry.V[LocalChannel].QValue(sub).Add(result.Reward + local)
	}
	return result
}

// Simulate takes one ground step. The output hash extends the input hash
// when observations abstract the state, otherwise the observation is the
// ground state and is hashed with the depth alone.
func (e *Engine[S]) Simulate(action int, input Input, state S, depth int) Result {
	observation, reward, terminal := e.sim.Step(state, action)
	e.UpdateConnection(input.LastObservation, observation, state)

	var hash uint64
	if e.sim.Properties().StateAbstraction {
		hash = history.Combine(input.Hash, action, observation, depth)
	} else {
		hash = history.Combine(0, observation, depth)
	}

	e.treeDepth = max(e.treeDepth, depth+1)
	return Result{
		Reward:   reward,
		Steps:    1,
		Terminal: terminal,
		Output:   Input{Hash: hash, LastObservation: observation},
	}
}

func (e *Engine[S]) Rollout(o Option, input Input, state S, depth int) Result {
	if o.IsPrimitive() {
		return e.Simulate(o.Action(), input, state, depth)
	}
	if e.params.Polling {
		return e.PollingRollout(o, input, state, depth)
	}
	return e.HierarchicalRollout(o, input, state, depth)
}

// PollingRollout re-decides the whole option hierarchy before every ground
// step.
func (e *Engine[S]) PollingRollout(o Option, input Input, state S, depth int) Result {
	if depth >= e.params.MaxDepth || e.IsTerminated(o, input.LastObservation) {
		return Result{Output: input}
	}

	action := e.RandomPrimitiveAction(o, input, state)
	atomic := e.Simulate(action.Action(), input, state, depth)
	if atomic.Terminal {
		return atomic
	}
	completion := e.Rollout(o, atomic.Output, state, depth+1)
	return Combine(atomic, completion, e.sim.Discount())
}

// HierarchicalRollout commits to a random sub-task until it terminates.
func (e *Engine[S]) HierarchicalRollout(o Option, input Input, state S, depth int) Result {
	if depth >= e.params.MaxDepth || e.IsTerminated(o, input.LastObservation) {
		return Result{Output: input}
	}

	sub := e.randomSubTask(o, input, state)
	subResult := e.Rollout(sub, input, state, depth)
	if subResult.Terminal {
		return subResult
	}
	completion := e.Rollout(o, subResult.Output, state, depth+subResult.Steps)
	return Combine(subResult, completion, e.sim.Discount())
}

// randomSubTask draws a sub-task of o uniformly among those that may run.
// Under smart rollout knowledge an option with a recorded exit follows the
// simulator's suggestion toward it instead.
func (e *Engine[S]) randomSubTask(o Option, input Input, state S) Option {
	if e.knowledge.RolloutLevel >= mcts.Smart && !o.IsRoot() {
		if suggester, ok := e.sim.(mcts.ExitSuggester[S]); ok {
			if exit, ok := e.exits[o]; ok {
				return Primitive(suggester.SuggestAction(state, exit))
			}
		}
	}

	subs := e.SubTasks(o)
	candidates := make([]Option, 0, len(subs))
	for _, sub := range subs {
		if e.selectable(sub, input.LastObservation) {
			candidates = append(candidates, sub)
		}
	}
	if len(candidates) == 0 {
		panic("BUG: no sub-task of " + o.String() + " can run")
	}
	return mcts.Choice(candidates, e.rng)
}

// RandomPrimitiveAction descends from o through random sub-tasks down to
// a primitive.
func (e *Engine[S]) RandomPrimitiveAction(o Option, input Input, state S) Option {
	for !o.IsPrimitive() {
		o = e.randomSubTask(o, input, state)
	}
	return o
}

// GreedyPrimitiveAction descends from o through the best known sub-tasks.
// Where the table has no entry the rest of the descent is random.
func (e *Engine[S]) GreedyPrimitiveAction(o Option, input Input) int {
	for !o.IsPrimitive() {
		entry := e.Query(o, input.Hash)
		if entry == nil {
			state := e.rootBelief.CreateSample(e.sim, e.rng)
			o = e.RandomPrimitiveAction(o, input, state)
			e.sim.FreeState(state)
			break
		}
		o = e.GreedyUCB(o, input.LastObservation, entry, false)
	}
	return o.Action()
}
