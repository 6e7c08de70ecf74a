package benchmarks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/zeu5/grid-rl-env/store"
)

// EpisodesCommand prints the summaries recorded in redis for an experiment
func EpisodesCommand() *cobra.Command {
	var addr string
	var prefix string
	cmd := &cobra.Command{
		Use:   "episodes [experiment]",
		Short: "List the episodes recorded in redis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := redis.NewClient(&redis.Options{
				Addr: addr,
			})
			recorder := store.NewRedisRecorder(cli, prefix, args[0])
			defer recorder.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			summaries, err := recorder.Episodes(ctx)
			if err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "worker:%3d run:%3d episode:%5d steps:%5d return:%9.3f terminated:%t truncated:%t\n",
					s.Worker, s.Run, s.Episode, s.Steps, s.Return, s.Terminated, s.Truncated)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:6379", "Redis address")
	cmd.PersistentFlags().StringVar(&prefix, "prefix", store.DefaultRedisPrefix, "Key prefix of the recorder")
	return cmd
}
