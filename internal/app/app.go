package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"gridcli/internal/config"
	"gridcli/internal/dataprocessing"
	"gridcli/internal/download"
	"gridcli/internal/exporter"
	"gridcli/internal/feeds"
	"gridcli/internal/files"
	"gridcli/internal/infrastructure"
	"gridcli/internal/operations"
	"gridcli/internal/services"
	"gridcli/internal/tracking"
	handlers "gridcli/internal/transport/http"
	"gridcli/pkg/contracts"
	"gridcli/pkg/contracts/domain"
)

// Options are the command line overrides applied on top of the configuration
type Options struct {
	// ConfigPath is an explicit YAML file; empty searches the default locations
	ConfigPath string
	// BaseDir roots relative paths; empty means the working directory
	BaseDir string
	// ProxyURL overrides feeds.proxy_url for this run
	ProxyURL string
}

// Application holds the wired components for one process
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Location  *time.Location

	Downloads *services.DownloadService
	Reports   *services.ReportService
	Feeds     *services.FeedService
	Health    *services.HealthService

	mirror *exporter.SQLiteMirror
}

// New loads the configuration and wires every service. Nothing touches the
// network until a service method runs.
func New(ctx context.Context, opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.ProxyURL != "" {
		cfg.Feeds.ProxyURL = opts.ProxyURL
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := config.ResolvePaths(cfg.Paths, opts.BaseDir)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}
	paths.LogPathResolution(logger)

	loc, err := time.LoadLocation(cfg.Download.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	telemetry, err := infrastructure.InitializeOTel(ctx, cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	a := &Application{
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Telemetry: telemetry,
		Location:  loc,
	}

	if err := a.wireDownloads(ctx); err != nil {
		return nil, err
	}
	if err := a.wireReports(); err != nil {
		return nil, err
	}
	if err := a.wireFeeds(); err != nil {
		return nil, err
	}
	a.Health = services.NewHealthService(contracts.Version, map[string]string{
		"raw":     paths.RawDir,
		"archive": paths.ArchiveDir,
		"output":  paths.OutputDir,
		"feeds":   paths.FeedsDir,
	}, logger)

	logger.InfoContext(ctx, "Application initialized",
		slog.String("version", contracts.Version),
		slog.String("timezone", loc.String()))
	return a, nil
}

func (a *Application) wireDownloads(ctx context.Context) error {
	cfg := a.Config.Download
	epoch, err := domain.ParseDay(cfg.Epoch)
	if err != nil {
		return fmt.Errorf("invalid download epoch: %w", err)
	}
	tracker := tracking.NewDownloadTracker(a.Paths.TrackingFile, tracking.Options{
		Epoch:       epoch,
		LagDays:     cfg.LagDays,
		RetryWindow: cfg.RetryWindow,
	}, a.Logger)

	var uploader files.Uploader
	if a.Config.Archive.Enabled() {
		mirror, err := files.NewS3Mirror(ctx, a.Config.Archive, a.Logger)
		if err != nil {
			return err
		}
		uploader = mirror
	}

	client := infrastructure.NewHTTPClient(infrastructure.HTTPClientOptions{
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		UserAgent:         cfg.UserAgent,
	}, a.Logger)

	downloader := download.New(download.Options{
		BaseURL:  cfg.BaseURL,
		RawDir:   a.Paths.RawDir,
		Client:   client,
		Tracker:  tracker,
		Archive:  files.NewArchive(a.Paths.ArchiveDir),
		Uploader: uploader,
		Metrics:  a.Telemetry.Metrics,
	}, a.Logger)

	a.Downloads = services.NewDownloadService(downloader, tracker, a.Location, a.Logger)
	return nil
}

func (a *Application) wireReports() error {
	cfg := a.Config.Reports
	processor, err := dataprocessing.NewProcessor(dataprocessing.ProcessorOptions{
		DataStartSentinel: cfg.DataStartSentinel,
		Denylist:          cfg.Denylist,
		ExpectedWidths: map[domain.SourceFormat]int{
			domain.FormatXLS: cfg.ExpectedWidthXLS,
			domain.FormatPDF: cfg.ExpectedWidthPDF,
		},
	}, dataprocessing.NewExtractor(a.Paths.ExtractedDir, a.Logger), a.Logger)
	if err != nil {
		return err
	}

	if cfg.SQLitePath != "" {
		path := cfg.SQLitePath
		if !filepath.IsAbs(path) {
			path = a.Paths.GetOutputPath(path)
		}
		mirror, err := exporter.OpenSQLiteMirror(path)
		if err != nil {
			return err
		}
		a.mirror = mirror
	}

	a.Reports = services.NewReportService(services.ReportServiceOptions{
		Processor: processor,
		Writer:    exporter.NewDatasetWriter(a.Paths.OutputDir, a.Logger),
		Mirror:    a.mirror,
		Archive:   files.NewArchive(a.Paths.ArchiveDir),
		Ledger:    tracking.NewLedger(a.Paths.GetOutputPath(services.ProcessingLedgerName), a.Logger),
		Pool:      operations.NewPool(cfg.Workers, a.Logger),
		RawDir:    a.Paths.RawDir,
		BatchSize: cfg.BatchSize,
		Metrics:   a.Telemetry.Metrics,
	}, a.Logger)
	return nil
}

func (a *Application) wireFeeds() error {
	cfg := a.Config.Feeds
	codes, err := feeds.LoadStateCodes(a.Paths.StateCodesFile)
	if err != nil {
		return err
	}
	epoch, err := domain.ParseDay(cfg.Epoch)
	if err != nil {
		return fmt.Errorf("invalid feeds epoch: %w", err)
	}

	direct := feeds.NewDirect(feeds.DirectOptions{
		BaseURL: cfg.BaseURL,
		Client: infrastructure.NewHTTPClient(infrastructure.HTTPClientOptions{
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Workers,
			UserAgent:         a.Config.Download.UserAgent,
			HostHeader:        cfg.HostHeader,
			InsecureTLS:       cfg.InsecureTLS,
		}, a.Logger),
		Pool:     operations.NewPool(cfg.Workers, a.Logger),
		Codes:    codes,
		Location: a.Location,
		Metrics:  a.Telemetry.Metrics,
	}, a.Logger)

	var fetcher feeds.Fetcher = direct
	if cfg.ProxyURL != "" {
		fetcher = feeds.NewProxyClient(cfg.ProxyURL, infrastructure.NewHTTPClient(infrastructure.HTTPClientOptions{
			Timeout:   cfg.Timeout,
			UserAgent: a.Config.Download.UserAgent,
		}, a.Logger), a.Telemetry.Metrics, a.Logger)
	}

	tracker := tracking.NewEntityTracker(a.Paths.FeedTrackingFile, tracking.Options{
		Epoch:   epoch,
		LagDays: cfg.LagDays,
	}, a.Logger)

	runner := feeds.NewRunner(feeds.RunnerOptions{
		Fetcher:   fetcher,
		Writer:    exporter.NewFeedWriter(a.Logger),
		Tracker:   tracker,
		Layout:    a.Paths,
		Codes:     codes,
		BatchSize: cfg.BatchSize,
		Location:  a.Location,
		Metrics:   a.Telemetry.Metrics,
	}, a.Logger)

	a.Feeds = services.NewFeedService(runner, direct, tracker, a.Location, a.Logger)
	return nil
}

// Router builds the proxy server handler
func (a *Application) Router() http.Handler {
	return handlers.NewRouter(handlers.RouterOptions{
		Feeds:          a.Feeds,
		Health:         a.Health,
		Metrics:        a.Telemetry.PrometheusHTTP,
		RateLimit:      a.Config.Server.RateLimit,
		RateLimitBurst: a.Config.Server.RateLimitBurst,
		RequestTimeout: a.Config.Feeds.Timeout,
		IncludeStack:   a.Config.Logging.Level == "debug",
	}, a.Logger)
}

// Serve runs the proxy server until ctx is done, then shuts it down
// gracefully.
func (a *Application) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "Feed proxy listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.InfoContext(ctx, "Shutting down feed proxy")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Close releases the SQLite mirror and flushes telemetry
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if a.mirror != nil {
		errs = append(errs, a.mirror.Close())
	}
	if a.Telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		errs = append(errs, a.Telemetry.Shutdown(shutdownCtx))
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
