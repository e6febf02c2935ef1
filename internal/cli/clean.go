package cli

import (
	"fmt"
	"path/filepath"

	paths "github.com/arduino/go-paths-helper"
	"github.com/spf13/cobra"
)

func newCleanCommand() *cobra.Command {
	var buildPath string

	cmd := &cobra.Command{
		Use:   "clean <sketch>",
		Short: "Remove a sketch's build directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := buildPath
			if dir == "" {
				dir = filepath.Join(filepath.Dir(args[0]), "build")
			}
			p := paths.New(dir)
			if !p.Exist() {
				fmt.Printf("nothing to clean: %s does not exist\n", dir)
				return nil
			}
			if err := p.RemoveAll(); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&buildPath, "build-path", "", "Build directory (default: <sketchDir>/build).")
	return cmd
}
