package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var (
	fetchProvider string
	fetchCached   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <user_code>",
	Short: "Fetch one account's billing snapshot and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc := newService(nil)
		if fetchCached {
			st, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			svc = newService(st)
		}

		snap, err := svc.GetSnapshot(ctx, fetchProvider, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchProvider, "provider", "bjwater", "billing source key")
	fetchCmd.Flags().BoolVar(&fetchCached, "cached", false, "read and write the configured storage cache")
}
