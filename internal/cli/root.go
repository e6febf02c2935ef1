// Package cli wires the cobra command tree for the aily-builder
// binary, adapted from the teacher's cli/cli.go root command and
// preRun wiring (logging setup, config loading).
package cli

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/aily-project/aily-builder/internal/configuration"
	"github.com/aily-project/aily-builder/internal/inventory"
	"github.com/aily-project/aily-builder/internal/logger"
	"github.com/aily-project/aily-builder/internal/version"
	colorable "github.com/mattn/go-colorable"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Root is the aily-builder root command.
	Root = &cobra.Command{
		Use:              "aily-builder",
		Short:            "Arduino-style sketch build driver.",
		Long:             "aily-builder resolves a board's build recipe, analyzes a sketch's dependencies, and drives an incremental, cached build.",
		PersistentPreRun: preRun,
	}

	verbose    bool
	configFile string
	logr       logger.Logger = logger.Discard{}
)

func init() {
	Root.AddCommand(newCompileCommand())
	Root.AddCommand(newCleanCommand())
	Root.AddCommand(newCacheCommand())
	Root.AddCommand(newConfigCommand())
	Root.AddCommand(newDaemonCommand())
	Root.AddCommand(newVersionCommand())

	Root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print build logs to stdout.")
	Root.PersistentFlags().String("log-level", "info", "Messages at this level and above are logged.")
	viper.BindPFlag("logging.level", Root.PersistentFlags().Lookup("log-level"))
	Root.PersistentFlags().String("log-file", "", "Path to a file logs are additionally written to.")
	viper.BindPFlag("logging.file", Root.PersistentFlags().Lookup("log-file"))
	Root.PersistentFlags().StringVar(&configFile, "config-file", "", "Config file path; only its directory is used, and the file read there is always aily-builder.yaml (default: ~/.config/aily-builder/aily-builder.yaml).")
}

func toLogLevel(s string) (logrus.Level, bool) {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel, false
	}
	return lvl, true
}

// preRun mirrors cli/cli.go's preRun: decide stdout logging, load
// configuration, install the file hook, and set the filter level.
func preRun(cmd *cobra.Command, args []string) {
	if verbose {
		logrus.SetOutput(colorable.NewColorableStdout())
		logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true})
	} else {
		logrus.SetOutput(ioutil.Discard)
	}

	configDir := ""
	if configFile != "" {
		configDir = filepath.Dir(configFile)
	}
	if err := configuration.Init(configDir); err != nil {
		logrus.Warnf("loading configuration: %v", err)
	}
	if err := inventory.Init(configDir); err != nil {
		logrus.Warnf("loading inventory: %v", err)
	}

	if lvl, found := toLogLevel(strings.ToLower(viper.GetString("logging.level"))); found {
		logrus.SetLevel(lvl)
	}

	if logFile := viper.GetString("logging.file"); logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			logrus.Fatalf("unable to open file for logging: %s", logFile)
		}
		logrus.AddHook(lfshook.NewHook(file, &logrus.TextFormatter{}))
	}

	logr = &logger.Human{Verbose: verbose}
	logrus.Info(version.NewInfo("aily-builder").String())
}
