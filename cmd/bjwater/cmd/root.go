// Package cmd provides the CLI commands for bjwater.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bher20/bjwater/internal/billing"
	"github.com/bher20/bjwater/internal/config"
	"github.com/bher20/bjwater/internal/logging"
	"github.com/bher20/bjwater/internal/migrate"
	"github.com/bher20/bjwater/internal/storage"
)

var (
	cfgFile string
	verbose bool

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bjwater",
	Short: "Aggregate Beijing Water Group billing data",
	Long: `bjwater retrieves billing cycles, payment records and monthly bill
details from the Beijing Water Group customer portal and merges them into
one snapshot per account.

Examples:
  bjwater fetch 1234567890
  bjwater serve --config bjwater.yaml
  bjwater export 1234567890 --format xlsx --out bill.xlsx`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		if err := logging.Init(cfg.Log); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (environment variables override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(exportCmd)
}

// openStorage opens the configured backend, running goose migrations first
// when auto-migrate is enabled.
func openStorage(ctx context.Context) (storage.Storage, error) {
	accounts, err := cfg.ParsedAccounts()
	if err != nil {
		return nil, err
	}
	drv := cfg.Storage.Driver
	if cfg.Storage.AutoMigrate && drv != "" && drv != "memory" {
		if err := migrate.Up(ctx, drv, cfg.Storage.DSN); err != nil {
			logging.L().Error("auto-migration failed", zap.String("driver", drv), zap.Error(err))
		}
	}
	return storage.Open(ctx, storage.Config{Driver: drv, DSN: cfg.Storage.DSN, Accounts: accounts})
}

// newService builds the billing service over the configured portal client.
func newService(st storage.Storage) *billing.Service {
	client := billing.NewHTTPClient(0, cfg.Upstream.InsecureSkipVerify)
	req := billing.NewHTTPRequester(client)
	if st == nil {
		return billing.NewService(req, cfg.BillingOptions())
	}
	return billing.NewServiceWithStorage(req, cfg.BillingOptions(), st)
}
