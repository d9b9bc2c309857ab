package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sarchlab/reactor/config"
	"github.com/sarchlab/reactor/datarecording"
	"github.com/sarchlab/reactor/sim/chemistry"
	"github.com/sarchlab/reactor/sim/depgraph"
	"github.com/sarchlab/reactor/sim/engine"
	"github.com/sarchlab/reactor/sim/timing"
	"github.com/sarchlab/reactor/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Grow a colony of cells until it is big enough or dies out.",
	Long: `Run simulates a colony that starts from a single cell. Cells turn ` +
		`nutrient into biomass, divide when they are big enough and ` +
		`sometimes die. The simulation ends when the colony is full, ` +
		`extinct, or a step or time limit is reached.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runColony(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("config", "", "YAML configuration file")
	f.String("env-file", ".env", "file with REACTOR_* variables")
	f.Uint64("steps", 0, "maximum number of steps, 0 for no limit")
	f.Float64("final-time", 0, "last simulated time, 0 for no limit")
	f.String("mode", "", "engine mode, serial or batch")
	f.Int("batch-size", 0, "number of reactions fired in parallel")
	f.Uint64("seed", 0, "seed of the random streams")
}

// loadConfig reads the configuration and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	f := cmd.Flags()

	path, _ := f.GetString("config")
	envFile, _ := f.GetString("env-file")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		return config.Config{}, err
	}

	if f.Changed("steps") {
		cfg.Engine.MaxSteps, _ = f.GetUint64("steps")
	}

	if f.Changed("final-time") {
		cfg.Engine.FinalTime, _ = f.GetFloat64("final-time")
	}

	if f.Changed("mode") {
		cfg.Engine.Mode, _ = f.GetString("mode")
	}

	if f.Changed("batch-size") {
		cfg.Engine.BatchSize, _ = f.GetInt("batch-size")
	}

	if f.Changed("seed") {
		cfg.Seed, _ = f.GetUint64("seed")
	}

	return cfg, cfg.Validate()
}

func runColony(
	ctx context.Context,
	cfg config.Config,
	stdout, stderr io.Writer,
) error {
	logger, err := config.NewLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	colony := cfg.Colony
	colony.Seed = cfg.Seed
	env := chemistry.NewColony(colony)

	s, err := makeBuilder(cfg).
		WithLogger(logger).
		Build(env, depgraph.New(env))
	if err != nil {
		return err
	}

	runErr := s.Run(ctx)

	e := s.GetEngine()
	fmt.Fprintf(stdout, "time: %s\nstep: %d\nnodes: %d\n",
		e.Time(), e.Step(), env.NodeCount())

	if err := s.Close(); err != nil {
		return errors.Join(runErr, err)
	}

	if s.RecordingPath() != "" {
		if err := printRecording(ctx, stdout, s.RecordingPath()); err != nil {
			return errors.Join(runErr, err)
		}
	}

	return runErr
}

// printRecording reads the recording back and summarizes it.
func printRecording(ctx context.Context, w io.Writer, path string) error {
	reader, err := datarecording.OpenStepReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	summary, err := reader.Summary(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "recorded: %d steps on %d nodes, %d global, "+
		"in %s\n",
		summary.Steps, summary.Nodes, summary.GlobalSteps,
		datarecording.FileName(path))

	return nil
}

// makeBuilder translates the settings into a simulation builder.
func makeBuilder(cfg config.Config) simulation.Builder {
	b := simulation.MakeBuilder().
		WithMaxSteps(cfg.Engine.MaxSteps).
		WithMetrics()

	if cfg.Engine.FinalTime > 0 {
		b = b.WithFinalTime(timing.VTimeInSec(cfg.Engine.FinalTime))
	}

	if cfg.Engine.Mode == config.ModeBatch {
		b = b.WithParallelEngine(cfg.Engine.BatchSize)

		if cfg.Engine.BatchMode == config.BatchEpsilon {
			b = b.WithEpsilon(timing.VTimeInSec(cfg.Engine.Epsilon))
		}

		if cfg.Engine.Replay == config.ReplayAggregate {
			b = b.WithReplayStrategy(engine.ReplayAggregate)
		}
	}

	if cfg.Monitoring.Enabled {
		b = b.WithMonitoring(cfg.Monitoring.Port, cfg.Monitoring.OpenBrowser)
	}

	if cfg.Recording.Enabled {
		b = b.WithDataRecording(cfg.Recording.Path)
	}

	return b
}
