package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bher20/bjwater/internal/alerting"
	"github.com/bher20/bjwater/internal/cron"
)

var workerOnce bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Refresh tracked accounts on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		deps := cron.Deps{
			Service:  newService(st),
			Storage:  st,
			Alerter:  alerting.NewAlerter(cfg.Alerts),
			Interval: cfg.Refresh.Interval,
		}
		if workerOnce {
			_, err := cron.RunOnce(ctx, deps)
			return err
		}
		if err := cron.Run(ctx, deps); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "run a single refresh pass and exit")
}
