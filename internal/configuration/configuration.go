// Package configuration is the viper-backed global settings store,
// adapted from the teacher's configuration.Init/configuration.Settings
// pair (cli/cli.go's preRun calls it before any subcommand runs).
package configuration

import (
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Settings is the process-wide configuration store every subcommand
// binds its flags into, mirroring the teacher's package-level var of
// the same name. It is the global viper instance (not a fresh
// viper.New()) so the PersistentFlags bound in internal/cli/root.go's
// init() via the package-level viper.BindPFlag calls resolve through
// the same store Init seeds defaults into.
var Settings = viper.GetViper()

const (
	configName = "aily-builder"
	configType = "yaml"
)

// Init loads <configDir>/aily-builder.yaml (creating configDir if
// necessary) and seeds the defaults every package here reads through
// Settings.Get*, following cli/cli.go's preRun wiring.
func Init(configDir string) error {
	if configDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		configDir = filepath.Join(home, ".config", "aily-builder")
	}

	Settings.SetConfigName(configName)
	Settings.SetConfigType(configType)
	Settings.AddConfigPath(configDir)

	setDefaults()

	if err := Settings.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return nil
}

func setDefaults() {
	Settings.SetDefault("logging.level", "info")
	Settings.SetDefault("logging.format", "text")
	Settings.SetDefault("build.parallelism", 0) // 0 means the build graph's default compile_pool depth of 8
	Settings.SetDefault("build.cache_root", "")
	Settings.SetDefault("build.disable_cache", false)
	Settings.SetDefault("daemon.port", 50051)
}
