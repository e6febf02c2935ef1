package cli

import (
	"fmt"

	"github.com/aily-project/aily-builder/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version.NewInfo("aily-builder").String())
			return nil
		},
	}
}
