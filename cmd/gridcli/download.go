package main

import (
	"context"

	"github.com/spf13/cobra"

	"gridcli/internal/app"
)

func newDownloadCmd(flags *globalFlags) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download every pending daily report",
		Long: `Download fetches the reports for every date after the last recorded one,
up to today minus the publishing lag, and retries recent failures. Each
report is saved under the raw directory and added to its yearly archive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateFlag("as-of", asOf)
			if err != nil {
				return err
			}
			return runWithApp(cmd, flags, app.Options{}, func(ctx context.Context, a *app.Application) error {
				summary, err := a.Downloads.Run(ctx, date)
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Compute pending dates as of this date (default: today)")
	return cmd
}
