package services

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"gridcli/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	dirs      map[string]string
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Checks    map[string]ServiceHealth `json:"checks,omitempty"`
}

// ServiceHealth represents one named check
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service checking the named directories
func NewHealthService(version string, dirs map[string]string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		dirs:      dirs,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck reports "ok" when every data directory exists, "degraded"
// otherwise.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		},
		Checks: make(map[string]ServiceHealth, len(hs.dirs)),
	}

	for name, dir := range hs.dirs {
		info, err := os.Stat(dir)
		switch {
		case err != nil:
			status.Checks[name] = ServiceHealth{Status: "missing", Message: err.Error()}
			status.Status = "degraded"
		case !info.IsDir():
			status.Checks[name] = ServiceHealth{Status: "invalid", Message: dir + " is not a directory"}
			status.Status = "degraded"
		default:
			status.Checks[name] = ServiceHealth{Status: "ok"}
		}
	}

	hs.logger.DebugContext(ctx, "Health check completed", slog.String("status", status.Status))
	return status
}

// Version describes the running build
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}
