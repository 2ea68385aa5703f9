package app

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sunyakun/foo-controller/pkg/manager"
)

func newRunCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the controller until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			m, err := manager.New(opts.config, logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return m.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&opts.config.ResyncInterval, "resync-interval", opts.config.ResyncInterval, "how often every Foo is enqueued again")
	cmd.Flags().DurationVar(&opts.config.RetryInterval, "retry-interval", opts.config.RetryInterval, "delay before a failed reconcile is retried")
	return cmd
}
