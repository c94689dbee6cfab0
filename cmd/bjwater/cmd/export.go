package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bher20/bjwater/internal/export"
)

var (
	exportProvider string
	exportFormat   string
	exportOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export <user_code>",
	Short: "Write a billing statement as xlsx or pdf",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		render := export.SnapshotXLSX
		switch exportFormat {
		case "xlsx":
		case "pdf":
			render = export.SnapshotPDF
		default:
			return fmt.Errorf("unsupported format %q (want xlsx or pdf)", exportFormat)
		}

		snap, err := newService(nil).GetSnapshot(cmd.Context(), exportProvider, args[0])
		if err != nil {
			return err
		}
		data, err := render(snap)
		if err != nil {
			return fmt.Errorf("render %s: %w", exportFormat, err)
		}

		out := exportOut
		if out == "" {
			out = fmt.Sprintf("%s_%s.%s", exportProvider, args[0], exportFormat)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportProvider, "provider", "bjwater", "billing source key")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx or pdf")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default <provider>_<user_code>.<format>)")
}
