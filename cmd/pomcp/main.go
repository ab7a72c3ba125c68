// Command pomcp plays Monte Carlo planners against the bundled problems.
//
//	pomcp run --config pomcp.yaml
//	pomcp sweep --problem rooms --map maps/four.map --planner hierarchical
//	pomcp layout maps/four.map
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/sw965/pomcp/config"
	"github.com/sw965/pomcp/domain/rooms"
	"github.com/sw965/pomcp/mcts"
)

var (
	configPath  string
	problemFlag string
	plannerFlag string
	mapFlag     string
	runsFlag    int
	seedFlag    uint64
	levelFlag   string
	metricsFlag string
)

var (
	rootCmd = &cobra.Command{
		Use:           "pomcp",
		Short:         "Monte Carlo planning in partially observable domains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Play independent episodes with the configured search budget",
		RunE:  runRun,
	}
	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Repeat the runs while doubling the simulations per action",
		RunE:  runSweep,
	}
	layoutCmd = &cobra.Command{
		Use:   "layout [map file]",
		Short: "Print a rooms layout",
		Args:  cobra.ExactArgs(1),
		RunE:  runLayout,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "pomcp.yaml", "YAML config file; missing is fine")
	pf.StringVar(&problemFlag, "problem", "", "tiger, rooms, continuousrooms or testsim")
	pf.StringVar(&plannerFlag, "planner", "", "flat or hierarchical")
	pf.StringVar(&mapFlag, "map", "", "rooms layout file")
	pf.IntVar(&runsFlag, "runs", 0, "number of episodes")
	pf.Uint64Var(&seedFlag, "seed", 0, "experiment seed; 0 draws one")
	pf.StringVar(&levelFlag, "log-level", "", "trace, debug, info, warn or error")
	pf.StringVar(&metricsFlag, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(runCmd, sweepCmd, layoutCmd)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pomcp: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers the command line over config.Read and validates the
// result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	c, err := config.Read(configPath)
	if err != nil {
		return c, err
	}
	flags := cmd.Flags()
	if flags.Changed("problem") {
		c.Problem = problemFlag
	}
	if flags.Changed("planner") {
		c.Planner = plannerFlag
	}
	if flags.Changed("map") {
		c.MapFile = mapFlag
	}
	if flags.Changed("runs") {
		c.Experiment.NumRuns = runsFlag
	}
	if flags.Changed("seed") {
		c.Experiment.Seed = seedFlag
	}
	if flags.Changed("log-level") {
		c.Log.Level = levelFlag
	}
	if flags.Changed("metrics-addr") {
		c.MetricsAddr = metricsFlag
	}
	return c, c.Validate()
}

func newLogger(c config.Log, w io.Writer) zerolog.Logger {
	if c.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(c.ZerologLevel()).With().Timestamp().Logger()
}

// serveMetrics starts a /metrics endpoint when addr is set. The returned
// stop function is always safe to call.
func serveMetrics(addr string, logger zerolog.Logger) (*mcts.Metrics, func()) {
	if addr == "" {
		return nil, func() {}
	}
	reg := prometheus.NewRegistry()
	metrics := mcts.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")

	return metrics, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func prepare(cmd *cobra.Command) (runner, func(), error) {
	c, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(c.Log, cmd.ErrOrStderr())
	metrics, stop := serveMetrics(c.MetricsAddr, logger)
	r, err := build(c, logger, metrics)
	if err != nil {
		stop()
		return nil, nil, err
	}
	return r, stop, nil
}

func runRun(cmd *cobra.Command, _ []string) error {
	r, stop, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer stop()

	results, err := r.MultiRun()
	if err != nil {
		return err
	}
	return writeResults(cmd.OutOrStdout(), r.Simulations(), results)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	r, stop, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer stop()

	summaries, err := r.DiscountedReturn()
	if werr := writeSummaries(cmd.OutOrStdout(), summaries); werr != nil && err == nil {
		err = werr
	}
	return err
}

func runLayout(cmd *cobra.Command, args []string) error {
	layout, err := rooms.LoadLayout(args[0])
	if err != nil {
		return err
	}
	return layout.Render(cmd.OutOrStdout(), layout.Start)
}
