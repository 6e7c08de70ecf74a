package benchmarks

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/zeu5/grid-rl-env/envshim"
	"github.com/zeu5/grid-rl-env/gymcompat"
)

func describeSpace(w io.Writer, name string, s gymcompat.Space) {
	fmt.Fprintf(w, "%s: %s shape=%v", name, s.Kind(), s.Shape())
	if n := gymcompat.Cardinality(s); n >= 0 {
		fmt.Fprintf(w, " actions=%d", n)
	}
	fmt.Fprintln(w)
}

// SpacesCommand builds the configured environment and prints its spaces
func SpacesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "spaces",
		Short: "Print the observation and action spaces of the configured environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolvedEnvConfig(v)
			if err != nil {
				return err
			}
			env, err := envshim.New(config.Map(), envshim.WithLogger(logger))
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "env: %s, act_type: %s\n", config.EnvName, config.ActType)
			describeSpace(out, "observation", env.ObservationSpace())
			describeSpace(out, "action", env.ActionSpace())
			fmt.Fprintf(out, "noop: %v\n", env.NoopAction())
			return nil
		},
	}
}
