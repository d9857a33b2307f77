package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gridcli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 15, cfg.Reports.ExpectedWidthXLS)
				assert.Equal(t, 12, cfg.Reports.ExpectedWidthPDF)
				assert.Equal(t, "NORTHERN", cfg.Reports.DataStartSentinel)
				assert.Equal(t, DefaultDenylist, cfg.Reports.Denylist)
				assert.Equal(t, 5, cfg.Feeds.Workers)
				assert.Equal(t, 500, cfg.Feeds.BatchSize)
				assert.Equal(t, "2017-06-01", cfg.Feeds.Epoch)
				assert.Equal(t, "2017-09-01", cfg.Download.Epoch)
				assert.Equal(t, 30*24*time.Hour, cfg.Download.RetryWindow)
				assert.Equal(t, "Asia/Kolkata", cfg.Download.Timezone)
				assert.False(t, cfg.Archive.Enabled())
			},
		},
		{
			name: "yaml overlays only the keys it sets",
			file: `
reports:
  workers: 20
  expected_width_pdf: 11
feeds:
  proxy_url: https://proxy.example/feeds
  timeout: 90s
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 20, cfg.Reports.Workers)
				assert.Equal(t, 11, cfg.Reports.ExpectedWidthPDF)
				assert.Equal(t, 15, cfg.Reports.ExpectedWidthXLS)
				assert.Equal(t, "https://proxy.example/feeds", cfg.Feeds.ProxyURL)
				assert.Equal(t, 90*time.Second, cfg.Feeds.Timeout)
				assert.Equal(t, "meritindia.in", cfg.Feeds.HostHeader)
			},
		},
		{
			name: "env wins over yaml",
			file: "reports:\n  workers: 20\n",
			env: map[string]string{
				"GRID_REPORTS_WORKERS":   "30",
				"GRID_ARCHIVE_S3_BUCKET": "grid-reports",
				"GRID_LOGGING_LEVEL":     "debug",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 30, cfg.Reports.Workers)
				assert.True(t, cfg.Archive.Enabled())
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:    "too many workers",
			env:     map[string]string{"GRID_FEEDS_WORKERS": "41"},
			wantErr: true,
		},
		{
			name:    "unknown timezone",
			env:     map[string]string{"GRID_DOWNLOAD_TIMEZONE": "Mars/Olympus"},
			wantErr: true,
		},
		{
			name:    "pdf wider than xls",
			file:    "reports:\n  expected_width_pdf: 16\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "reports: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestReportsConfig_ExpectedWidth(t *testing.T) {
	r := Default().Reports
	assert.Equal(t, 12, r.ExpectedWidth("pdf"))
	assert.Equal(t, 12, r.ExpectedWidth("PDF"))
	assert.Equal(t, 15, r.ExpectedWidth("xls"))
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	paths, err := ResolvePaths(Default().Paths, base)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "data", "csv"), paths.OutputDir)
	assert.Equal(t, filepath.Join(base, "data", "raw", "track.json"), paths.TrackingFile)
	assert.Equal(t, "", paths.StateCodesFile)
	assert.Equal(t, filepath.Join(base, "data", "raw", "2019.zip"), paths.GetArchivePath(2019))
	assert.Equal(t, filepath.Join(base, "data", "meritindia", "daily-generation", "raw", "PB.csv"), paths.GetDailyFeedPath("PB"))
	assert.Equal(t,
		filepath.Join(base, "data", "meritindia", "current-generation", "raw", "2023-01.csv"),
		paths.GetCurrentFeedPath(time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.OutputDir)
	assert.DirExists(t, paths.ExtractedDir)
}
