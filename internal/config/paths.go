package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Paths contains all resolved application paths
type Paths struct {
	DataDir          string
	RawDir           string
	ArchiveDir       string
	ExtractedDir     string
	OutputDir        string
	FeedsDir         string
	LogsDir          string
	TrackingFile     string
	FeedTrackingFile string
	StateCodesFile   string
}

// ResolvePaths turns the configured paths into absolute ones rooted at baseDir
func ResolvePaths(cfg PathsConfig, baseDir string) (*Paths, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}

	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	return &Paths{
		DataDir:          abs(cfg.DataDir),
		RawDir:           abs(cfg.RawDir),
		ArchiveDir:       abs(cfg.ArchiveDir),
		ExtractedDir:     abs(cfg.ExtractedDir),
		OutputDir:        abs(cfg.OutputDir),
		FeedsDir:         abs(cfg.FeedsDir),
		LogsDir:          abs(cfg.LogsDir),
		TrackingFile:     abs(cfg.TrackingFile),
		FeedTrackingFile: abs(cfg.FeedTrackingFile),
		StateCodesFile:   abs(cfg.StateCodesFile),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.DataDir,
		p.RawDir,
		p.ArchiveDir,
		p.ExtractedDir,
		p.OutputDir,
		p.FeedsDir,
		filepath.Dir(p.TrackingFile),
		filepath.Dir(p.FeedTrackingFile),
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetOutputPath returns the path of a dataset file in the output directory
func (p *Paths) GetOutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// GetRawReportPath returns the download location for a report file
func (p *Paths) GetRawReportPath(filename string) string {
	return filepath.Join(p.RawDir, filename)
}

// GetArchivePath returns the yearly archive for year
func (p *Paths) GetArchivePath(year int) string {
	return filepath.Join(p.ArchiveDir, fmt.Sprintf("%d.zip", year))
}

// GetCurrentFeedPath returns the monthly current-generation file for t
func (p *Paths) GetCurrentFeedPath(t time.Time) string {
	return filepath.Join(p.FeedsDir, "current-generation", "raw", t.Format("2006-01")+".csv")
}

// GetIndiaFeedPath returns the India-wide current-generation file
func (p *Paths) GetIndiaFeedPath() string {
	return filepath.Join(p.FeedsDir, "current-generation", "raw", IndiaFeedFileName)
}

// GetDailyFeedPath returns the per-state daily generation file
func (p *Paths) GetDailyFeedPath(stateCode string) string {
	return filepath.Join(p.FeedsDir, "daily-generation", "raw", stateCode+".csv")
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("Path resolution",
		slog.String("raw_dir", p.RawDir),
		slog.String("archive_dir", p.ArchiveDir),
		slog.String("extracted_dir", p.ExtractedDir),
		slog.String("output_dir", p.OutputDir),
		slog.String("feeds_dir", p.FeedsDir),
		slog.String("tracking_file", p.TrackingFile),
		slog.String("feed_tracking_file", p.FeedTrackingFile))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
