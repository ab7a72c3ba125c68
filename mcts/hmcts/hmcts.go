// Package hmcts implements hierarchical Monte Carlo planning with options.
//
// Options navigate between abstract regions of the observation space. They
// are discovered by random walks and by search itself, organised in a task
// graph under the root task, and executed through a call stack. Search
// values an option as the return of its chosen sub-task plus the
// discounted completion of the option afterwards.
//
// Package hmcts はオプション (マクロ行動) を用いた階層的モンテカルロ計画を実装します。
package hmcts

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/sw965/pomcp/belief"
	"github.com/sw965/pomcp/history"
	"github.com/sw965/pomcp/mcts"
)

const engineName = "hierarchical"

// LocalPenalty is the local reward of an option that overran the horizon
// or ended outside its target region.
const LocalPenalty = -100.0

var ErrNotHierarchical = errors.New("simulator does not support hierarchical planning")

type Engine[S mcts.State] struct {
	sim       mcts.Simulator[S]
	params    mcts.Params
	knowledge mcts.Knowledge
	history   *history.History

	rootBelief      belief.Set[S]
	lastObservation int
	stack           CallStack
	task            Option
	table           map[tableKey]*Entry

	primitives []Option
	rootTasks  []Option
	known      map[Option]struct{}
	exits      map[Option]S

	ucb     *mcts.UCBTable
	rng     *rand.Rand
	logger  zerolog.Logger
	metrics *mcts.Metrics

	treeSize  int
	treeDepth int
}

// New builds an engine, samples NumStartStates start states and, with
// action abstraction, discovers the options reachable by random walks.
func New[S mcts.State](sim mcts.Simulator[S], params mcts.Params, knowledge mcts.Knowledge, opts ...mcts.Option) (*Engine[S], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := knowledge.Validate(); err != nil {
		return nil, err
	}
	if !sim.Properties().Hierarchical {
		return nil, ErrNotHierarchical
	}

	o := mcts.NewOptions(params, opts...)
	e := &Engine[S]{
		sim:             sim,
		params:          params,
		knowledge:       knowledge,
		history:         history.New(params.MemorySize),
		lastObservation: history.NoObservation,
		task:            RootTask,
		table:           map[tableKey]*Entry{},
		known:           map[Option]struct{}{},
		exits:           map[Option]S{},
		ucb:             o.UCB,
		rng:             o.Rand,
		logger:          o.Logger.With().Str("engine", engineName).Logger(),
		metrics:         o.Metrics,
	}

	for a := range sim.NumActions() {
		e.primitives = append(e.primitives, Primitive(a))
	}
	e.rootTasks = append(e.rootTasks, e.primitives...)

	for range params.NumStartStates {
		e.rootBelief.AddSample(sim.CreateStartState())
	}
	if observer, ok := sim.(mcts.Observer[S]); ok {
		e.lastObservation = observer.Observe(e.rootBelief.Sample(0))
	}

	e.stack.Reset(RootTask)
	if params.ActionAbstraction {
		e.Discover()
	}
	return e, nil
}

func (e *Engine[S]) History() *history.History {
	return e.history
}

func (e *Engine[S]) Stack() *CallStack {
	return &e.stack
}

func (e *Engine[S]) LastObservation() int {
	return e.lastObservation
}

// TreeSize is the number of table entries created by the last search.
func (e *Engine[S]) TreeSize() int {
	return e.treeSize
}

// TreeDepth is the deepest ground step reached by the last search.
func (e *Engine[S]) TreeDepth() int {
	return e.treeDepth
}

// Options lists the discovered options in discovery order.
func (e *Engine[S]) Options() []Option {
	return e.rootTasks[len(e.primitives):]
}

// SubTasks is the task graph: the options o may invoke.
func (e *Engine[S]) SubTasks(o Option) []Option {
	switch {
	case o.IsPrimitive():
		return nil
	case o.IsRoot():
		return e.rootTasks
	default:
		return e.primitives
	}
}

// Exit returns the recorded exit state sample of o.
func (e *Engine[S]) Exit(o Option) (S, bool) {
	s, ok := e.exits[o]
	return s, ok
}

// Query returns the table entry of (o, hash), or nil.
func (e *Engine[S]) Query(o Option, hash uint64) *Entry {
	return e.table[tableKey{option: o, hash: hash}]
}

func (e *Engine[S]) Insert(o Option, hash uint64) *Entry {
	entry := &Entry{}
	e.table[tableKey{option: o, hash: hash}] = entry
	e.treeSize += 1
	return entry
}

// Close releases the root belief and the exit samples.
func (e *Engine[S]) Close() {
	e.rootBelief.Free(e.sim)
	for o, s := range e.exits {
		e.sim.FreeState(s)
		delete(e.exits, o)
	}
	clear(e.table)
}

func (e *Engine[S]) rootInput() Input {
	return Input{Hash: e.history.BeliefHash(), LastObservation: e.lastObservation}
}

func (e *Engine[S]) currentTask() Option {
	if e.params.ActionAbstraction && e.params.Stack {
		return e.stack.Top()
	}
	return RootTask
}

// Task is the option the last search planned for.
func (e *Engine[S]) Task() Option {
	return e.task
}

func (e *Engine[S]) SelectAction() int {
	input := e.rootInput()
	if e.params.ActionAbstraction && e.params.Stack {
		for !e.stack.Empty() {
			top := e.stack.Top()
			if !top.IsPrimitive() && !e.IsTerminated(top, input.LastObservation) {
				break
			}
			e.stack.Pop()
		}
		if e.stack.Empty() {
			e.stack.Push(RootTask)
		}
	}

	e.task = e.currentTask()
	e.Search()

	if !(e.params.ActionAbstraction && e.params.Stack) {
		return e.GreedyPrimitiveAction(RootTask, input)
	}

	for {
		top := e.stack.Top()
		if top.IsPrimitive() {
			return top.Action()
		}
		entry := e.Query(top, input.Hash)
		if entry == nil {
			return e.GreedyPrimitiveAction(top, input)
		}
		e.stack.Push(e.GreedyUCB(top, input.LastObservation, entry, false))
	}
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
		Int("table_size", len(e.table)).
		Stringer("task", e.task).
		Dur("elapsed", elapsed).
		Msg("search finished")
}

func (e *Engine[S]) SearchImp() {
	state := e.rootBelief.CreateSample(e.sim, e.rng)
	mcts.Validate(e.sim, state)
	e.SearchTree(e.task, e.rootInput(), state, 0)
	e.sim.FreeState(state)
}

// Update records the real step and restarts planning from the real state.
func (e *Engine[S]) Update(action, observation int, state S) bool {
	e.UpdateConnection(e.lastObservation, observation, state)
	e.history.Add(action, observation, 0)
	e.lastObservation = observation

	clear(e.table)
	e.rootBelief.Free(e.sim)
	e.rootBelief.AddSample(e.sim.Copy(state))
	e.metrics.ObserveBelief(engineName, 1)
	return true
}

// Value is the best mean return among the sub-tasks of the task last
// planned for.
func (e *Engine[S]) Value() float64 {
	input := e.rootInput()
	entry := e.Query(e.task, input.Hash)
	if entry == nil {
		return 0
	}
	best := e.GreedyUCB(e.task, input.LastObservation, entry, false)
	if q, ok := entry.V[GlobalChannel].Lookup(best); ok {
		return q.Mean()
	}
	return 0
}

// Discover runs DiscoveryWalks undirected random walks of at most
// DiscoveryDepth steps and records every region transition as an option.
func (e *Engine[S]) Discover() {
	observer, canObserve := e.sim.(mcts.Observer[S])
	for range e.params.DiscoveryWalks {
		s := e.rootBelief.CreateSample(e.sim, e.rng)
		last := history.NoObservation
		if canObserve {
			last = observer.Observe(s)
		}
		for range e.params.DiscoveryDepth {
			observation, _, terminal := e.sim.Step(s, e.rng.IntN(e.sim.NumActions()))
			e.UpdateConnection(last, observation, s)
			last = observation
			if terminal {
				break
			}
		}
		e.sim.FreeState(s)
	}

	e.logger.Info().
		Int("options", len(e.Options())).
		Int("walks", e.params.DiscoveryWalks).
		Msg("options discovered")
}

// UpdateConnection records that region to was entered from region from,
// with state as a sample just past the exit.
func (e *Engine[S]) UpdateConnection(from, to int, state S) {
	if !e.params.ActionAbstraction || from < 0 || to < 0 || from == to {
		return
	}
	e.addOption(Option{From: from, To: to})
	e.addOption(Option{From: to, To: from})

	o := Option{From: from, To: to}
	if _, ok := e.exits[o]; !ok {
		e.exits[o] = e.sim.Copy(state)
	}
}

func (e *Engine[S]) addOption(o Option) {
	if _, ok := e.known[o]; ok {
		return
	}
	e.known[o] = struct{}{}
	e.rootTasks = append(e.rootTasks, o)
	e.logger.Debug().Stringer("option", o).Msg("option added")
}

func (e *Engine[S]) isAvailable(o Option) bool {
	_, ok := e.known[o]
	return ok
}

func (e *Engine[S]) String() string {
	return fmt.Sprintf("hierarchical(options=%d, sims=%d, depth=%d)", len(e.Options()), e.params.NumSimulations, e.params.MaxDepth)
}
