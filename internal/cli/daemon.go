package cli

import (
	"fmt"

	"github.com/aily-project/aily-builder/internal/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDaemonCommand() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the gRPC Compiler service, exposing the Pipeline Driver over the network.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = viper.GetInt("daemon.port")
			}
			return daemon.Serve(fmt.Sprintf("127.0.0.1:%d", port), logr)
		},
	}
	cmd.Flags().IntVar(&port, "port", 50051, "TCP port to listen on.")
	return cmd
}
