package benchmarks

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeu5/grid-rl-env/envshim"
	"gopkg.in/yaml.v3"
)

// envSection holds the shim configuration in the configuration file
const envSection = "env"

// shim keys that can be overridden by flags or GRIDRL_ENV_* variables
var (
	envScalarKeys = []string{"backend_cls", "env_name", "env_is_test", "act_type", "reward", "nb_bins", "seed"}
	envSliceKeys  = []string{"obs_attr_to_keep", "act_attr_to_keep"}
)

func addEnvFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("env-name", "", "Grid to run on")
	flags.String("act-type", "", "Action space: discrete, box or multi_discrete")
	flags.String("backend", "", "Backend class: sandbox or remote")
	flags.Bool("test", false, "Use the short test scenarios")
	flags.StringSlice("obs-attr", nil, "Observation attributes to keep")
	flags.StringSlice("act-attr", nil, "Action attributes to keep")
	flags.Int64("env-seed", 0, "Seed of the first reset")

	v.BindPFlag(envSection+".env_name", flags.Lookup("env-name"))
	v.BindPFlag(envSection+".act_type", flags.Lookup("act-type"))
	v.BindPFlag(envSection+".backend_cls", flags.Lookup("backend"))
	v.BindPFlag(envSection+".env_is_test", flags.Lookup("test"))
	v.BindPFlag(envSection+".obs_attr_to_keep", flags.Lookup("obs-attr"))
	v.BindPFlag(envSection+".act_attr_to_keep", flags.Lookup("act-attr"))
	v.BindPFlag(envSection+".seed", flags.Lookup("env-seed"))
}

// envConfig resolves the shim configuration. Flags win over variables
// which win over the configuration file.
func envConfig(v *viper.Viper) map[string]any {
	out := make(map[string]any)
	for k, val := range v.GetStringMap(envSection) {
		out[k] = val
	}
	for _, k := range envScalarKeys {
		if v.IsSet(envSection + "." + k) {
			out[k] = v.Get(envSection + "." + k)
		}
	}
	for _, k := range envSliceKeys {
		if v.IsSet(envSection + "." + k) {
			out[k] = v.GetStringSlice(envSection + "." + k)
		}
	}
	return out
}

// resolvedEnvConfig is envConfig checked and completed with defaults
func resolvedEnvConfig(v *viper.Viper) (envshim.Config, error) {
	cfg, err := envshim.ParseConfig(envConfig(v))
	if err != nil {
		return cfg, errors.Wrap(err, "environment configuration")
	}
	return cfg, nil
}

func ConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved environment configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolvedEnvConfig(v)
			if err != nil {
				return err
			}
			bs, err := yaml.Marshal(map[string]envshim.Config{envSection: cfg})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(bs))
			return nil
		},
	}
}
