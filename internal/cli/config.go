package cli

import (
	"fmt"

	"github.com/aily-project/aily-builder/internal/configuration"
	"github.com/spf13/cobra"
)

// newConfigCommand mirrors cli/config/set.go's "config set" surface,
// adapted to the configuration.Settings store of this repo and to
// RunE's error return instead of feedback.Error+os.Exit.
func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get and set persisted settings.",
	}
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigGetCommand())
	return cmd
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a setting value and persist it to the config file.",
		Example: "  aily-builder config set logging.level debug\n" +
			"  aily-builder config set build.parallelism 4\n" +
			"  aily-builder config set build.disable_cache true",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			configuration.Settings.Set(key, value)
			if err := configuration.Settings.WriteConfig(); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}
			return nil
		},
	}
}

func newConfigGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a setting's current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(configuration.Settings.Get(args[0]))
			return nil
		},
	}
}
