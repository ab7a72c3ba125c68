// Package experiment plays planners against a real simulator: single
// episodes, independent runs in parallel, and sweeps over the number of
// simulations per action.
//
// Package experiment はプランナーを実環境シミュレータ上で走らせ、
// 単発のエピソード・並列の複数回実行・シミュレーション回数の倍々掃引を行います。
package experiment

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sw965/omw/parallel"
	"github.com/sw965/pomcp/mcts"
	"github.com/sw965/pomcp/mcts/flat"
	"github.com/sw965/pomcp/mcts/hmcts"
	"github.com/sw965/pomcp/statistic"
)

type SimulatorFunc[S mcts.State] func(rng *rand.Rand) (mcts.Simulator[S], error)

type PlannerFunc[S mcts.State] func(sim mcts.Simulator[S], params mcts.Params, knowledge mcts.Knowledge, opts ...mcts.Option) (mcts.Planner[S], error)

func Flat[S mcts.State](sim mcts.Simulator[S], params mcts.Params, knowledge mcts.Knowledge, opts ...mcts.Option) (mcts.Planner[S], error) {
	e, err := flat.New(sim, params, knowledge, opts...)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func Hierarchical[S mcts.State](sim mcts.Simulator[S], params mcts.Params, knowledge mcts.Knowledge, opts ...mcts.Option) (mcts.Planner[S], error) {
	e, err := hmcts.New(sim, params, knowledge, opts...)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Problem builds the simulators and the planner of one episode. The real
// world and the planner's model are two simulators from NewSimulator.
type Problem[S mcts.State] struct {
	Name         string
	NewSimulator SimulatorFunc[S]
	NewPlanner   PlannerFunc[S]
}

func (p Problem[S]) Validate() error {
	if p.NewSimulator == nil {
		return fmt.Errorf("NewSimulator must not be nil")
	}
	if p.NewPlanner == nil {
		return fmt.Errorf("NewPlanner must not be nil")
	}
	return nil
}

type Option func(*options)

type options struct {
	logger  zerolog.Logger
	metrics *mcts.Metrics
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *mcts.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

type Experiment[S mcts.State] struct {
	problem   Problem[S]
	search    mcts.Params
	knowledge mcts.Knowledge
	params    Params

	ucb     *mcts.UCBTable
	logger  zerolog.Logger
	metrics *mcts.Metrics
}

func New[S mcts.State](problem Problem[S], search mcts.Params, knowledge mcts.Knowledge, params Params, opts ...Option) (*Experiment[S], error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if err := search.Validate(); err != nil {
		return nil, err
	}
	if err := knowledge.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Experiment[S]{
		problem:   problem,
		search:    search,
		knowledge: knowledge,
		params:    params,
		ucb:       mcts.NewUCBTable(search.UCBTableN, search.UCBTablen),
		logger:    o.logger.With().Str("problem", problem.Name).Logger(),
		metrics:   o.metrics,
	}, nil
}

func (e *Experiment[S]) Search() mcts.Params {
	return e.search
}

func (e *Experiment[S]) Params() Params {
	return e.params
}

// Episode is the outcome of one run.
type Episode struct {
	ID                 uuid.UUID
	Steps              int
	DiscountedReturn   float64
	UndiscountedReturn float64
	// Terminal is set when the real world reached a terminal state.
	Terminal bool
	// Deprived is set when the planner ran out of particles; the episode
	// was then finished with the rollout policy.
	Deprived bool
	TimedOut bool
	Time     time.Duration

	TimePerAction statistic.Running
	Reward        statistic.Running
	ExploredNodes statistic.Running
	ExploredDepth statistic.Running

	discount float64
}

func (ep *Episode) record(reward, discount float64) {
	ep.Steps += 1
	ep.Reward.Add(reward)
	ep.UndiscountedReturn += reward
	ep.DiscountedReturn += ep.discount * reward
	ep.discount *= discount
}

func split(rng *rand.Rand) *rand.Rand {
	return rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
}

// Run plays one episode of at most NumSteps real steps.
func (e *Experiment[S]) Run(rng *rand.Rand) (Episode, error) {
	ep := Episode{ID: uuid.New(), discount: 1}
	logger := e.logger.With().Str("run", ep.ID.String()).Logger()

	world, err := e.problem.NewSimulator(split(rng))
	if err != nil {
		return ep, err
	}
	sim, err := e.problem.NewSimulator(split(rng))
	if err != nil {
		return ep, err
	}
	planner, err := e.problem.NewPlanner(sim, e.search, e.knowledge,
		mcts.WithRand(split(rng)),
		mcts.WithLogger(logger),
		mcts.WithMetrics(e.metrics),
		mcts.WithUCBTable(e.ucb),
	)
	if err != nil {
		return ep, err
	}
	defer planner.Close()

	state := world.CreateStartState()
	defer world.FreeState(state)

	start := time.Now()
	for ep.Steps < e.params.NumSteps {
		actionStart := time.Now()
		action := planner.SelectAction()
		ep.TimePerAction.Add(time.Since(actionStart).Seconds())

		observation, reward, terminal := world.Step(state, action)
		ep.record(reward, world.Discount())
		ep.ExploredNodes.Add(float64(planner.TreeSize()))
		ep.ExploredDepth.Add(float64(planner.TreeDepth()))

		logger.Debug().
			Int("step", ep.Steps).
			Int("action", action).
			Int("observation", observation).
			Float64("reward", reward).
			Msg("real step")

		if terminal {
			ep.Terminal = true
			break
		}
		if !planner.Update(action, observation, state) {
			ep.Deprived = true
			break
		}
		if e.params.TimeOut > 0 && time.Since(start) > e.params.TimeOut {
			ep.TimedOut = true
			logger.Warn().Int("steps", ep.Steps).Dur("timeout", e.params.TimeOut).Msg("episode timed out")
			break
		}
	}

	if ep.Deprived {
		logger.Warn().Int("steps", ep.Steps).Msg("out of particles, finishing episode with the rollout policy")
		h := planner.History()
		for ep.Steps < e.params.NumSteps {
			action := mcts.SelectRandom(world, e.knowledge, state, h, rng)
			_, reward, terminal := world.Step(state, action)
			ep.record(reward, world.Discount())
			if terminal {
				ep.Terminal = true
				break
			}
		}
	}

	ep.Time = time.Since(start)
	logger.Info().
		Int("steps", ep.Steps).
		Float64("discounted_return", ep.DiscountedReturn).
		Float64("undiscounted_return", ep.UndiscountedReturn).
		Bool("terminal", ep.Terminal).
		Bool("deprived", ep.Deprived).
		Dur("time", ep.Time).
		Msg("run finished")
	return ep, nil
}

// Results aggregates episodes.
type Results struct {
	Time               statistic.Running
	TimePerAction      statistic.Running
	Reward             statistic.Running
	DiscountedReturn   statistic.Running
	UndiscountedReturn statistic.Running
	ExploredNodes      statistic.Running
	ExploredDepth      statistic.Running
	Deprivations       int
}

func (r *Results) Add(ep Episode) {
	r.Time.Add(ep.Time.Seconds())
	r.TimePerAction.Merge(ep.TimePerAction)
	r.Reward.Merge(ep.Reward)
	r.DiscountedReturn.Add(ep.DiscountedReturn)
	r.UndiscountedReturn.Add(ep.UndiscountedReturn)
	r.ExploredNodes.Merge(ep.ExploredNodes)
	r.ExploredDepth.Merge(ep.ExploredDepth)
	if ep.Deprived {
		r.Deprivations += 1
	}
}

// Runs is the number of episodes added.
func (r *Results) Runs() int {
	return r.Time.Count()
}

// MultiRun plays NumRuns independent episodes on Parallelism workers. Run
// i draws its randomness from its own stream, so a seeded experiment
// gives the same returns whatever the scheduling. Runs that would start
// after TimeOut are skipped.
func (e *Experiment[S]) MultiRun() (Results, error) {
	seed := e.params.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	n := e.params.NumRuns
	episodes := make([]Episode, n)
	done := make([]bool, n)
	start := time.Now()

	err := parallel.For(n, e.params.Parallelism, func(workerId, idx int) error {
		if e.params.TimeOut > 0 && time.Since(start) > e.params.TimeOut {
			return nil
		}
		ep, err := e.Run(rand.New(rand.NewPCG(seed, uint64(idx))))
		if err != nil {
			return fmt.Errorf("run %d on worker %d: %w", idx, workerId, err)
		}
		episodes[idx] = ep
		done[idx] = true
		return nil
	})

	var results Results
	for i, ep := range episodes {
		if done[i] {
			results.Add(ep)
		}
	}
	if err != nil {
		return results, err
	}

	event := e.logger.Info()
	if results.Runs() < n {
		event = e.logger.Warn().Int("skipped", n-results.Runs()).Dur("timeout", e.params.TimeOut)
	}
	event.
		Int("runs", results.Runs()).
		Int("simulations", e.search.NumSimulations).
		Stringer("discounted_return", &results.DiscountedReturn).
		Stringer("undiscounted_return", &results.UndiscountedReturn).
		Int("deprivations", results.Deprivations).
		Msg("runs finished")
	return results, nil
}

// Summary is one row of a simulation sweep.
type Summary struct {
	Simulations int
	Results     Results
}

// DiscountedReturn sweeps the number of simulations per action over
// 2^MinDoubles .. 2^MaxDoubles. The search depth and the episode length
// are derived from Accuracy. Outside anytime mode the belief starts with
// as many particles as simulations.
func (e *Experiment[S]) DiscountedReturn() ([]Summary, error) {
	sim, err := e.problem.NewSimulator(rand.New(rand.NewPCG(e.params.Seed, 0)))
	if err != nil {
		return nil, err
	}
	horizon := mcts.Horizon(sim.Discount(), e.params.Accuracy, e.params.UndiscountedHorizon)

	sweep := *e
	sweep.search.MaxDepth = max(horizon, 1)
	sweep.params.NumSteps = max(horizon, 1)

	summaries := make([]Summary, 0, e.params.MaxDoubles-e.params.MinDoubles+1)
	for i := e.params.MinDoubles; i <= e.params.MaxDoubles; i++ {
		sweep.search.NumSimulations = 1 << i
		if sweep.search.TimeOutPerAction <= 0 {
			sweep.search.NumStartStates = 1 << i
		}
		if i+e.params.TransformDoubles >= 0 {
			sweep.search.NumTransforms = 1 << (i + e.params.TransformDoubles)
		} else {
			sweep.search.NumTransforms = 1
		}
		sweep.search.TransformAttempts = e.params.TransformAttempts

		results, err := sweep.MultiRun()
		summaries = append(summaries, Summary{Simulations: sweep.search.NumSimulations, Results: results})
		if err != nil {
			return summaries, err
		}

		e.logger.Info().
			Int("simulations", sweep.search.NumSimulations).
			Int("runs", results.Runs()).
			Float64("undiscounted_return", results.UndiscountedReturn.Mean()).
			Float64("undiscounted_stderr", results.UndiscountedReturn.StdErr()).
			Float64("discounted_return", results.DiscountedReturn.Mean()).
			Float64("discounted_stderr", results.DiscountedReturn.StdErr()).
			Float64("time", results.Time.Mean()).
			Float64("time_per_action", results.TimePerAction.Mean()).
			Float64("explored_nodes", results.ExploredNodes.Mean()).
			Float64("explored_depth", results.ExploredDepth.Mean()).
			Msg("sweep point")
	}
	return summaries, nil
}
