package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Boot the host and serve HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := newApplication(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}
}
