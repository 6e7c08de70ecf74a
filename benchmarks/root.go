package benchmarks

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeu5/grid-rl-env/explorer"
	"github.com/zeu5/grid-rl-env/util"
	"go.uber.org/zap"
)

var (
	episodes   int
	horizon    int
	saveFile   string
	runs       int
	configFile string
	debug      bool

	v      = viper.New()
	logger = zap.NewNop()
)

func GetRootCommand() *cobra.Command {
	v = viper.New()
	rootCommand := &cobra.Command{
		Use:           "gridrl",
		Short:         "Reinforcement learning experiments on power grid environments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := util.NewLogger(debug)
			if err != nil {
				return err
			}
			logger = l
			return loadConfig(v, configFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", 100, "Number of episodes to run")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", 100, "Horizon of each episode")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	rootCommand.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Environment configuration file (yaml, json or toml)")
	rootCommand.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level")
	addEnvFlags(rootCommand)

	// adding the subcommands here
	rootCommand.AddCommand(CompareCommand())
	rootCommand.AddCommand(RolloutCommand())
	rootCommand.AddCommand(ServeCommand())
	rootCommand.AddCommand(SimulateCommand())
	rootCommand.AddCommand(SpacesCommand())
	rootCommand.AddCommand(ConfigCommand())
	rootCommand.AddCommand(EpisodesCommand())
	rootCommand.AddCommand(explorer.ExploreCommand())
	return rootCommand
}

// loadConfig reads the optional configuration file and GRIDRL_ variables.
// Nested keys map to variables with dots replaced, env.act_type is read
// from GRIDRL_ENV_ACT_TYPE.
func loadConfig(v *viper.Viper, file string) error {
	v.SetEnvPrefix("gridrl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	return v.ReadInConfig()
}
