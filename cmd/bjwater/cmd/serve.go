package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bher20/bjwater/internal/alerting"
	"github.com/bher20/bjwater/internal/api"
	"github.com/bher20/bjwater/internal/cron"
	"github.com/bher20/bjwater/internal/logging"
)

var withWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the billing HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		log := logging.L()

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		svc := newService(st)

		if withWorker {
			go func() {
				err := cron.Run(ctx, cron.Deps{
					Service:  svc,
					Storage:  st,
					Alerter:  alerting.NewAlerter(cfg.Alerts),
					Interval: cfg.Refresh.Interval,
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error("refresh worker stopped", zap.Error(err))
				}
			}()
		}

		srv := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           api.NewMux(api.Deps{Service: svc, Storage: st}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		log.Info("bjwater listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withWorker, "with-worker", false, "also run the scheduled refresh worker")
}
