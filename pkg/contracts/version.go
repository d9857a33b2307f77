package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version of gridcli
	Version = "0.4.0"

	// DataFormatVersion changes whenever a level CSV gains or loses a column
	DataFormatVersion = "v1"

	// APIVersion is the path version of the feed proxy
	APIVersion = "v1"
)

// Set with -ldflags "-X gridcli/pkg/contracts.GitCommit=..."
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is served by GET /version
type VersionInfo struct {
	Version    string `json:"version"`
	DataFormat string `json:"data_format"`
	APIVersion string `json:"api_version"`
	BuildTime  string `json:"build_time"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// GetVersionInfo describes this build
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:    Version,
		DataFormat: DataFormatVersion,
		APIVersion: APIVersion,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetFullVersionString is the --version output
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("gridcli v%s (data %s, commit %s, built %s, %s %s)",
		info.Version, info.DataFormat, info.GitCommit, info.BuildTime, info.GoVersion, info.Platform)
}
