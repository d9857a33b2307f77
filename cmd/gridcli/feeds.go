package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gridcli/internal/app"
	"gridcli/pkg/contracts/domain"
)

// feedTypes maps command arguments to feed request types
var feedTypes = map[string]domain.FeedType{
	"current": domain.FeedCurrentState,
	"india":   domain.FeedCurrentIndia,
	"daily":   domain.FeedDailyState,
}

func newFeedsCmd(flags *globalFlags) *cobra.Command {
	var (
		proxyURL string
		asOf     string
	)

	cmd := &cobra.Command{
		Use:   "feeds <current|india|daily>",
		Short: "Collect a meritindia feed",
		Long: `Feeds appends one feed to its CSV files:

  current  live generation of every state, one monthly file
  india    live India-wide generation mix
  daily    per-state daily energy, resumed from the feed tracking file

Requests go to meritindia directly unless a proxy URL is configured or
given with --proxy.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"current", "india", "daily"},
		RunE: func(cmd *cobra.Command, args []string) error {
			feedType, ok := feedTypes[args[0]]
			if !ok {
				return fmt.Errorf("unknown feed %q", args[0])
			}
			date, err := parseDateFlag("as-of", asOf)
			if err != nil {
				return err
			}
			return runWithApp(cmd, flags, app.Options{ProxyURL: proxyURL}, func(ctx context.Context, a *app.Application) error {
				run, err := a.Feeds.Run(ctx, feedType, date)
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), run)
			})
		},
	}

	cmd.Flags().StringVar(&proxyURL, "proxy", "", "Send typed requests to this feed proxy endpoint")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Collect daily data as of this date (default: today)")
	return cmd
}
