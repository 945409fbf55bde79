package serve

import (
	"github.com/spf13/cobra"
)

func NewServeCommand() *cobra.Command {
	var debug bool
	var noTunnel bool

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Start the webhook relay",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serveCmd(debug, noTunnel)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().BoolVar(&noTunnel, "no-tunnel", false, "Never open a localtunnel, even when enabled in config")

	return cmd
}
