package main

import (
	"context"

	"github.com/spf13/cobra"

	"gridcli/internal/app"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the feed proxy server",
		Long: `Serve answers typed feed requests on POST /api/v1/feeds by querying
meritindia directly. It also exposes /healthz, /version and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, flags, app.Options{}, func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
}
