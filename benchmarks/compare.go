package benchmarks

import (
	"context"
	"os"
	"os/signal"
	"path"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeu5/grid-rl-env/envshim"
	"github.com/zeu5/grid-rl-env/store"
	"github.com/zeu5/grid-rl-env/types"
	"go.uber.org/zap"
)

var (
	comparePolicies []string
	recordURL       string
	recordTraces    bool
	recordPolicy    bool
	episodeTimeout  time.Duration
	baseSeed        int64
)

// Compare runs every policy on its own environment, built from the
// same configuration, and plots returns and lengths per run
func Compare(ctx context.Context, config map[string]any, names []string) error {
	var seed *int64
	if baseSeed >= 0 {
		seed = &baseSeed
	}
	cConfig := &types.ComparisonConfig{
		Runs:       runs,
		Episodes:   episodes,
		Horizon:    horizon,
		Seed:       seed,
		RecordPath: saveFile,
		Timeout:    episodeTimeout,
		// record flags
		RecordTraces: recordTraces,
		RecordTimes:  false,
		RecordPolicy: recordPolicy,
		Logger:       logger,
	}
	// the record path is emptied first
	c, err := types.NewComparison(cConfig)
	if err != nil {
		return err
	}
	if recordURL != "" {
		recorder, err := store.NewRecorder(recordURL, path.Base(saveFile))
		if err != nil {
			return err
		}
		defer recorder.Close()
		cConfig.Recorder = recorder
	}
	stop, err := startProfiling()
	if err != nil {
		return err
	}
	defer stop()

	c.AddAnalysis("Returns", types.NewEpisodeReturns(), types.ReturnsPlotter(saveFile))
	c.AddAnalysis("Lengths", types.NewEpisodeLengths(), types.LengthsPlotter(saveFile))
	c.AddAnalysis("ReturnsData", types.NewEpisodeReturns(), types.JSONComparator(saveFile, "returns"))

	for i, name := range names {
		env, err := envshim.New(config, envshim.WithLogger(logger.With(zap.String("experiment", name))))
		if err != nil {
			return err
		}
		defer env.Close()
		policy, err := newPolicy(name, env, uint64(baseSeed)+uint64(i))
		if err != nil {
			return err
		}
		c.AddExperiment(types.NewExperiment(name, policy, env))
	}
	return c.Run(ctx)
}

func CompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare policies on the configured environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolvedEnvConfig(v)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			return Compare(ctx, config.Map(), comparePolicies)
		},
	}
	cmd.PersistentFlags().StringSliceVarP(&comparePolicies, "policies", "p", []string{"random", "do-nothing", "epsilon-greedy"}, "Policies to compare")
	cmd.PersistentFlags().StringVar(&recordURL, "record", "", "Record episode summaries to file://path or redis://host:port/db")
	cmd.PersistentFlags().BoolVar(&recordTraces, "traces", false, "Record the traces of every episode")
	cmd.PersistentFlags().BoolVar(&recordPolicy, "record-policy", false, "Record learnt policies at the end of each run")
	cmd.PersistentFlags().DurationVar(&episodeTimeout, "timeout", 0, "Timeout of a single episode, 0 for none")
	cmd.PersistentFlags().Int64Var(&baseSeed, "seed", 0, "Base seed of the episodes, negative to leave episodes unseeded")
	addLearningFlags(cmd)
	addProfilingFlags(cmd)
	return cmd
}

func addLearningFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Float64Var(&alpha, "alpha", 0.3, "Learning rate")
	cmd.PersistentFlags().Float64Var(&discount, "discount", 0.95, "Discount factor")
	cmd.PersistentFlags().Float64Var(&epsilon, "epsilon", 0.1, "Exploration rate of epsilon-greedy")
	cmd.PersistentFlags().Float64Var(&temperature, "temperature", 1, "Temperature of softmax")
	cmd.PersistentFlags().IntVar(&decimals, "decimals", 1, "Decimals kept when quantizing observations")
}
