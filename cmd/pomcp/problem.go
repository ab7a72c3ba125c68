package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/sw965/pomcp/config"
	"github.com/sw965/pomcp/domain/continuousrooms"
	"github.com/sw965/pomcp/domain/rooms"
	"github.com/sw965/pomcp/domain/testsim"
	"github.com/sw965/pomcp/domain/tiger"
	"github.com/sw965/pomcp/experiment"
	"github.com/sw965/pomcp/mcts"
)

// runner hides the state type of an experiment from the commands.
type runner interface {
	MultiRun() (experiment.Results, error)
	DiscountedReturn() ([]experiment.Summary, error)
	Simulations() int
}

type experimentRunner[S mcts.State] struct {
	*experiment.Experiment[S]
}

func (r experimentRunner[S]) Simulations() int {
	return r.Search().NumSimulations
}

func planner[S mcts.State](name string) experiment.PlannerFunc[S] {
	if name == config.PlannerHierarchical {
		return experiment.Hierarchical[S]
	}
	return experiment.Flat[S]
}

func newRunner[S mcts.State](c config.Config, p experiment.Problem[S], logger zerolog.Logger, metrics *mcts.Metrics) (runner, error) {
	p.Name = c.Problem
	p.NewPlanner = planner[S](c.Planner)
	e, err := experiment.New(p, c.Search, c.Knowledge, c.Experiment,
		experiment.WithLogger(logger),
		experiment.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	return experimentRunner[S]{e}, nil
}

func build(c config.Config, logger zerolog.Logger, metrics *mcts.Metrics) (runner, error) {
	switch c.Problem {
	case config.ProblemTiger:
		return newRunner(c, experiment.Problem[*tiger.State]{
			NewSimulator: func(rng *rand.Rand) (mcts.Simulator[*tiger.State], error) {
				return tiger.New(rng), nil
			},
		}, logger, metrics)
	case config.ProblemTest:
		ts := c.TestSim
		return newRunner(c, experiment.Problem[*testsim.State]{
			NewSimulator: func(rng *rand.Rand) (mcts.Simulator[*testsim.State], error) {
				return testsim.New(ts.NumActions, ts.NumObservations, ts.MaxDepth, rng), nil
			},
		}, logger, metrics)
	case config.ProblemRooms:
		layout, err := rooms.LoadLayout(c.MapFile)
		if err != nil {
			return nil, err
		}
		return newRunner(c, experiment.Problem[*rooms.State]{
			NewSimulator: func(rng *rand.Rand) (mcts.Simulator[*rooms.State], error) {
				return rooms.New(layout, c.Rooms, rng)
			},
		}, logger, metrics)
	case config.ProblemContinuousRooms:
		layout, err := rooms.LoadLayout(c.MapFile)
		if err != nil {
			return nil, err
		}
		return newRunner(c, experiment.Problem[*continuousrooms.State]{
			NewSimulator: func(rng *rand.Rand) (mcts.Simulator[*continuousrooms.State], error) {
				return continuousrooms.New(layout, c.ContinuousRooms, rng)
			},
		}, logger, metrics)
	}
	return nil, fmt.Errorf("%w: unknown problem %q", config.ErrInvalidConfig, c.Problem)
}

func writeResults(w io.Writer, simulations int, r experiment.Results) error {
	return writeSummaries(w, []experiment.Summary{{Simulations: simulations, Results: r}})
}

func writeSummaries(w io.Writer, summaries []experiment.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "simulations\truns\tundiscounted\terr\tdiscounted\terr\ttime\tdeprivations")
	for _, s := range summaries {
		r := s.Results
		fmt.Fprintf(tw, "%d\t%d\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%d\n",
			s.Simulations,
			r.Runs(),
			r.UndiscountedReturn.Mean(), r.UndiscountedReturn.StdErr(),
			r.DiscountedReturn.Mean(), r.DiscountedReturn.StdErr(),
			r.Time.Mean(),
			r.Deprivations,
		)
	}
	return tw.Flush()
}
