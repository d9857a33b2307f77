package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gridcli/internal/app"
	"gridcli/internal/infrastructure"
	"gridcli/pkg/contracts"
	"gridcli/pkg/contracts/domain"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	baseDir    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "gridcli",
		Short: "gridcli collects Indian grid generation data",
		Long: `gridcli downloads the daily generation reports, cleans them and rebuilds
the region / state / sector / type / station / unit hierarchy into one CSV
file per level. It also collects the meritindia state and India feeds and
can serve them through a small proxy.

Configuration comes from gridcli.yaml (or --config) and GRID_* variables.`,
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(contracts.GetFullVersionString() + "\n")

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.baseDir, "base-dir", "", "Directory relative data paths are resolved against (default: working directory)")

	root.AddCommand(
		newDownloadCmd(flags),
		newProcessCmd(flags),
		newFeedsCmd(flags),
		newServeCmd(flags),
	)
	return root
}

// runWithApp builds the application, runs fn under a signal-aware context
// and closes the application afterwards.
func runWithApp(cmd *cobra.Command, flags *globalFlags, opts app.Options, fn func(ctx context.Context, a *app.Application) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	opts.ConfigPath = flags.configPath
	opts.BaseDir = flags.baseDir
	a, err := app.New(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	return fn(ctx, a)
}

// parseDateFlag parses an optional YYYY-MM-DD flag value
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := domain.ParseDay(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q, expected YYYY-MM-DD", name, value)
	}
	return d, nil
}

// printSummary writes a run summary as indented JSON
func printSummary(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
