// Package flat implements POMCP-style Monte Carlo tree search over belief
// states: UCB1 or Thompson-sampling action selection, rollouts with the
// domain's default policy, and a particle-filter belief update between real
// steps.
package flat

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/sw965/pomcp/history"
	"github.com/sw965/pomcp/mcts"
)

const engineName = "flat"

type Engine[S mcts.State] struct {
	sim       mcts.Simulator[S]
	params    mcts.Params
	knowledge mcts.Knowledge
	history   *history.History
	tree      *Tree[S]
	root      Handle

	ucb     *mcts.UCBTable
	rng     *rand.Rand
	logger  zerolog.Logger
	metrics *mcts.Metrics

	treeSize  int
	treeDepth int
}

// New builds an engine whose root belief holds NumStartStates start states.
func New[S mcts.State](sim mcts.Simulator[S], params mcts.Params, knowledge mcts.Knowledge, opts ...mcts.Option) (*Engine[S], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := knowledge.Validate(); err != nil {
		return nil, err
	}

	o := mcts.NewOptions(params, opts...)
	e := &Engine[S]{
		sim:       sim,
		params:    params,
		knowledge: knowledge,
		history:   history.New(params.MemorySize),
		tree:      NewTree[S](sim.NumActions()),
		ucb:       o.UCB,
		rng:       o.Rand,
		logger:    o.Logger.With().Str("engine", engineName).Logger(),
		metrics:   o.Metrics,
	}

	state := sim.CreateStartState()
	e.root = e.ExpandNode(state)
	sim.FreeState(state)

	root := e.tree.Get(e.root)
	for range params.NumStartStates {
		root.Belief.AddSample(sim.CreateStartState())
	}
	return e, nil
}

func (e *Engine[S]) History() *history.History {
	return e.history
}

func (e *Engine[S]) Tree() *Tree[S] {
	return e.tree
}

func (e *Engine[S]) Root() Handle {
	return e.root
}

func (e *Engine[S]) Params() mcts.Params {
	return e.params
}

// TreeSize is the number of nodes expanded by the last search.
func (e *Engine[S]) TreeSize() int {
	return e.treeSize
}

// TreeDepth is the deepest tree level visited by the last search.
func (e *Engine[S]) TreeDepth() int {
	return e.treeDepth
}

// Close frees every node and particle the engine owns.
func (e *Engine[S]) Close() {
	e.tree.FreeAll(e.sim)
	e.root = NilHandle
}

func (e *Engine[S]) SelectAction() int {
	e.Search()
	root := e.tree.Get(e.root)
	if e.params.ThompsonSampling {
		return e.ThompsonSampling(root, 0, false)
	}
	return e.GreedyUCB(root, false)
}

func (e *Engine[S]) Search() {
	e.treeSize = 0
	e.treeDepth = 0
	start := time.Now()
	n := mcts.Run(e.params, e.SearchImp)
	elapsed := time.Since(start)

	e.metrics.ObserveSearch(engineName, n, elapsed, e.treeSize, e.treeDepth)
	e.logger.Debug().
		Int("simulations", n).
		Int("tree_size", e.treeSize).
		Int("tree_depth", e.treeDepth).
		Dur("elapsed", elapsed).
		Msg("search finished")
}

// SearchImp runs one simulation from a state drawn from the root belief.
func (e *Engine[S]) SearchImp() {
	n := e.history.Len()
	root := e.tree.Get(e.root)
	state := root.Belief.CreateSample(e.sim, e.rng)
	mcts.Validate(e.sim, state)
	e.SimulateV(state, e.root, 0)
	e.sim.FreeState(state)
	e.history.Truncate(n)
}

func (e *Engine[S]) SimulateV(state S, h Handle, depth int) float64 {
	if depth >= e.params.MaxDepth {
		return 0
	}

	vnode := e.tree.Get(h)
	var action int
	if e.params.ThompsonSampling {
		action = e.ThompsonSampling(vnode, depth, true)
	} else {
		action = e.GreedyUCB(vnode, true)
	}

	e.treeDepth = max(e.treeDepth, depth)
	if depth >= 1 {
		vnode.Belief.AddSample(e.sim.Copy(state))
	}

	stateHash := state.Hash()
	total := e.SimulateQ(state, vnode.Child(action), action, depth)
	if e.params.ThompsonSampling {
		vnode.Cumulative(stateHash).Add(total)
	} else {
		vnode.Value.Add(total)
	}
	return total
}

func (e *Engine[S]) SimulateQ(state S, qnode *QNode, action, depth int) float64 {
	observation, reward, terminal := e.sim.Step(state, action)
	if e.params.ThompsonSampling {
		qnode.Update(observation, reward, 1)
	}
	e.history.Add(action, observation, reward)

	child := e.child(qnode, observation)
	delayed := 0.0
	switch {
	case !terminal && child.Valid():
		delayed = e.SimulateV(state, child, depth+1)
	case !terminal:
		child = e.ExpandNode(state)
		qnode.SetChild(observation, child)
		rollout := e.sim.Copy(state)
		delayed = e.Rollout(rollout, depth+1)
		e.sim.FreeState(rollout)
		e.addValue(child, state, delayed)
	default:
		if !child.Valid() {
			child = e.ExpandNode(state)
			qnode.SetChild(observation, child)
		}
		e.addValue(child, state, 0)
	}

	total := reward + e.sim.Discount()*delayed
	if !e.params.ThompsonSampling {
		qnode.Value.Add(total)
	}
	return total
}

// child finds the node for the current history below qnode, falling back to
// the transposition index when the belief hash only covers a window.
func (e *Engine[S]) child(qnode *QNode, observation int) Handle {
	h := qnode.Child(observation)
	if h.Valid() || !e.history.Windowed() {
		return h
	}
	if h, ok := e.tree.Lookup(e.history.BeliefHash()); ok {
		qnode.SetChild(observation, h)
		return h
	}
	return NilHandle
}

func (e *Engine[S]) addValue(h Handle, state S, value float64) {
	v := e.tree.Get(h)
	if e.params.ThompsonSampling {
		v.Cumulative(state.Hash()).Add(value)
		return
	}
	v.Value.Add(value)
}

// Rollout plays the default policy from state until a terminal step or the
// horizon and returns the discounted return. state is consumed.
func (e *Engine[S]) Rollout(state S, depth int) float64 {
	total := 0.0
	discount := 1.0
	for steps := 0; depth+steps < e.params.MaxDepth; steps++ {
		action := mcts.SelectRandom(e.sim, e.knowledge, state, e.history, e.rng)
		observation, reward, terminal := e.sim.Step(state, action)
		e.history.Add(action, observation, reward)
		total += reward * discount
		discount *= e.sim.Discount()
		if terminal {
			break
		}
	}
	return total
}

// ExpandNode allocates the decision node of the current history and seeds
// its actions from domain knowledge evaluated at state.
func (e *Engine[S]) ExpandNode(state S) Handle {
	h := e.tree.Create(e.history.BeliefHash())
	v := e.tree.Get(h)
	for a, p := range mcts.Prior(e.sim, e.knowledge, state, e.history) {
		v.Child(a).SetPrior(p.Count, p.Value, p.Applicable)
	}
	e.treeSize += 1
	return h
}

// Value is the greedy value of the root: the best mean over applicable
// actions, or the best posterior-mean action value under Thompson sampling.
func (e *Engine[S]) Value() float64 {
	root := e.tree.Get(e.root)
	if e.params.ThompsonSampling {
		return e.QValue(root.Child(e.ThompsonSampling(root, 0, false)), 0, false)
	}
	return root.Child(e.GreedyUCB(root, false)).Value.Mean()
}

func (e *Engine[S]) String() string {
	return fmt.Sprintf("flat(sims=%d, depth=%d, ts=%t)", e.params.NumSimulations, e.params.MaxDepth, e.params.ThompsonSampling)
}
