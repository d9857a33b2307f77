package main

import (
	"context"

	"github.com/spf13/cobra"

	"gridcli/internal/app"
	"gridcli/internal/services"
)

func newProcessCmd(flags *globalFlags) *cobra.Command {
	var (
		from, to    string
		fromArchive bool
		reprocess   bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Rebuild downloaded reports into level CSV files",
		Long: `Process cleans every downloaded report, reconstructs its hierarchy and
appends the rows to region.csv, state.csv, sector.csv, station_type.csv,
station.csv, unit.csv and all.csv. Dates already processed are skipped
unless --reprocess is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := parseDateFlag("from", from)
			if err != nil {
				return err
			}
			toDate, err := parseDateFlag("to", to)
			if err != nil {
				return err
			}
			opts := services.ProcessOptions{
				From:        fromDate,
				To:          toDate,
				FromArchive: fromArchive,
				Reprocess:   reprocess,
			}
			return runWithApp(cmd, flags, app.Options{}, func(ctx context.Context, a *app.Application) error {
				summary, err := a.Reports.Process(ctx, opts)
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First report date to process (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last report date to process (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&fromArchive, "from-archive", false, "Unpack the yearly archives before processing")
	cmd.Flags().BoolVar(&reprocess, "reprocess", false, "Process dates even if they were processed before")
	return cmd
}
