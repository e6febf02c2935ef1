// Package inventory persists a per-installation identity, adapted
// from the teacher's inventory package: a small viper-backed YAML
// file holding a generated installation id, used to namespace cache
// diagnostics and daemon session logs across machines.
package inventory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid"
	"github.com/spf13/viper"
)

// Store is the config storage backing this package; Init reads it and
// writes a newly generated installation id back to disk.
var Store = viper.New()

var (
	// Type is the inventory file type.
	Type = "yaml"
	// Name is the inventory file name, with Type as extension.
	Name = "inventory." + Type
)

// Init configures Store, generating and persisting a fresh
// installation id the first time it runs against configPath.
func Init(configPath string) error {
	configFilePath := filepath.Join(configPath, Name)
	Store.SetConfigName(Name)
	Store.SetConfigType(Type)
	Store.AddConfigPath(configPath)

	if err := Store.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := generateInstallationData(); err != nil {
				return err
			}
			if err := writeStore(configFilePath); err != nil {
				return err
			}
		} else {
			return fmt.Errorf("reading inventory file: %w", err)
		}
	}

	return nil
}

// InstallationID returns the persisted installation id, or "" if Init
// hasn't run yet.
func InstallationID() string {
	return Store.GetString("installation.id")
}

func generateInstallationData() error {
	installationID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("generating installation.id: %w", err)
	}
	Store.Set("installation.id", installationID.String())
	return nil
}

func writeStore(configFilePath string) error {
	configPath := filepath.Dir(configFilePath)

	if err := os.MkdirAll(configPath, os.FileMode(0755)); err != nil {
		return fmt.Errorf("invalid path creating config dir: %s error: %w", configPath, err)
	}

	if err := Store.WriteConfigAs(configFilePath); err != nil {
		return fmt.Errorf("invalid path writing inventory file: %s error: %w", configFilePath, err)
	}

	return nil
}
