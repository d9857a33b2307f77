// Package services implements the use cases behind the gridcli commands and
// the feed proxy server.
//
// Services hold no HTTP or CLI concerns. They take a context for
// cancellation and tracing, receive their collaborators through their
// constructors and log through an injected *slog.Logger.
//
//	ReportService   turns downloaded reports into the level datasets
//	DownloadService drains the pending report dates
//	FeedService     collects the meritindia feeds and answers proxy requests
//	HealthService   reports liveness and data directory health
package services
