package benchmarks

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeu5/grid-rl-env/envshim"
	"github.com/zeu5/grid-rl-env/remote"
	"github.com/zeu5/grid-rl-env/store"
	"github.com/zeu5/grid-rl-env/types"
	"go.uber.org/zap"
)

var (
	workers       int
	rolloutPolicy string
	remoteURL     string
)

// envConstructor builds local shims, or sessions on a remote server when
// url is set
func envConstructor(config map[string]any, url string) types.EnvConstructor {
	return func(worker int) (types.Environment, error) {
		if url != "" {
			return remote.Dial(url, config, 30*time.Second)
		}
		return envshim.New(config, envshim.WithLogger(logger.With(zap.Int("worker", worker))))
	}
}

// Rollout plays episodes with the named policy on several workers in
// parallel
func Rollout(ctx context.Context, policy string, config map[string]any) ([]types.EpisodeSummary, error) {
	if err := checkPolicy(policy); err != nil {
		return nil, err
	}
	var seed *int64
	if baseSeed >= 0 {
		seed = &baseSeed
	}
	rConfig := &types.RolloutConfig{
		Name:     policy,
		Workers:  workers,
		Episodes: episodes,
		Horizon:  horizon,
		Timeout:  episodeTimeout,
		Seed:     seed,
		Logger:   logger,
		Progress: os.Stdout,
	}
	if recordURL != "" {
		recorder, err := store.NewRecorder(recordURL, policy)
		if err != nil {
			return nil, err
		}
		defer recorder.Close()
		rConfig.Recorder = recorder
	}

	policyCtor := func(worker int, env types.Environment) types.Policy {
		p, _ := newPolicy(policy, env, uint64(baseSeed)+uint64(worker))
		return p
	}
	return types.NewRolloutWorkers(rConfig, envConstructor(config, remoteURL), policyCtor).Run(ctx)
}

func RolloutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollout",
		Short: "Play episodes with parallel workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolvedEnvConfig(v)
			if err != nil {
				return err
			}
			stop, err := startProfiling()
			if err != nil {
				return err
			}
			defer stop()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			summaries, err := Rollout(ctx, rolloutPolicy, config.Map())
			total := 0.0
			for _, s := range summaries {
				total += s.Return
			}
			if len(summaries) > 0 {
				fmt.Printf("Episodes: %d, mean return: %.3f\n", len(summaries), total/float64(len(summaries)))
			}
			return err
		},
	}
	cmd.PersistentFlags().IntVarP(&workers, "workers", "w", 4, "Number of parallel workers")
	cmd.PersistentFlags().StringVarP(&rolloutPolicy, "policy", "p", "random", "Policy played by every worker")
	cmd.PersistentFlags().StringVar(&remoteURL, "remote", "", "Play on sessions of the server at this url instead of local environments")
	cmd.PersistentFlags().StringVar(&recordURL, "record", "", "Record episode summaries to file://path or redis://host:port/db")
	cmd.PersistentFlags().DurationVar(&episodeTimeout, "timeout", 0, "Timeout of a single episode, 0 for none")
	cmd.PersistentFlags().Int64Var(&baseSeed, "seed", 0, "Base seed of the episodes, negative to leave episodes unseeded")
	addLearningFlags(cmd)
	addProfilingFlags(cmd)
	return cmd
}
