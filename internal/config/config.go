package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment override, e.g. GRID_FEEDS_PROXY_URL
const EnvPrefix = "GRID"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Reports   ReportsConfig   `yaml:"reports" envconfig:"REPORTS"`
	Download  DownloadConfig  `yaml:"download" envconfig:"DOWNLOAD"`
	Feeds     FeedsConfig     `yaml:"feeds" envconfig:"FEEDS"`
	Archive   ArchiveConfig   `yaml:"archive" envconfig:"ARCHIVE"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"eq=json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against the working directory.
type PathsConfig struct {
	DataDir          string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	RawDir           string `yaml:"raw_dir" envconfig:"RAW_DIR" validate:"required"`
	ArchiveDir       string `yaml:"archive_dir" envconfig:"ARCHIVE_DIR" validate:"required"`
	ExtractedDir     string `yaml:"extracted_dir" envconfig:"EXTRACTED_DIR" validate:"required"`
	OutputDir        string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	FeedsDir         string `yaml:"feeds_dir" envconfig:"FEEDS_DIR" validate:"required"`
	TrackingFile     string `yaml:"tracking_file" envconfig:"TRACKING_FILE" validate:"required"`
	FeedTrackingFile string `yaml:"feed_tracking_file" envconfig:"FEED_TRACKING_FILE" validate:"required"`
	StateCodesFile   string `yaml:"state_codes_file" envconfig:"STATE_CODES_FILE"`
	LogsDir          string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// ReportsConfig drives the report cleaning and reconstruction pipeline
type ReportsConfig struct {
	DataStartSentinel string   `yaml:"data_start_sentinel" envconfig:"DATA_START_SENTINEL" validate:"required"`
	Denylist          []string `yaml:"denylist" envconfig:"DENYLIST"`
	ExpectedWidthXLS  int      `yaml:"expected_width_xls" envconfig:"EXPECTED_WIDTH_XLS" validate:"min=2"`
	ExpectedWidthPDF  int      `yaml:"expected_width_pdf" envconfig:"EXPECTED_WIDTH_PDF" validate:"min=2"`
	Workers           int      `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=40"`
	BatchSize         int      `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"min=1,max=500"`
	SQLitePath        string   `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// ExpectedWidth returns the configured column count for a source format
func (r ReportsConfig) ExpectedWidth(format string) int {
	if strings.EqualFold(format, "pdf") {
		return r.ExpectedWidthPDF
	}
	return r.ExpectedWidthXLS
}

// DownloadConfig configures the daily report downloader
type DownloadConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Burst             int           `yaml:"burst" envconfig:"BURST" validate:"min=1"`
	Epoch             string        `yaml:"epoch" envconfig:"EPOCH" validate:"required,datetime=2006-01-02"`
	RetryWindow       time.Duration `yaml:"retry_window" envconfig:"RETRY_WINDOW" validate:"gt=0"`
	LagDays           int           `yaml:"lag_days" envconfig:"LAG_DAYS" validate:"min=0"`
	Timezone          string        `yaml:"timezone" envconfig:"TIMEZONE" validate:"required"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// FeedsConfig configures the meritindia feed pipeline
type FeedsConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	HostHeader        string        `yaml:"host_header" envconfig:"HOST_HEADER"`
	InsecureTLS       bool          `yaml:"insecure_tls" envconfig:"INSECURE_TLS"`
	ProxyURL          string        `yaml:"proxy_url" envconfig:"PROXY_URL" validate:"omitempty,url"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	Workers           int           `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=40"`
	BatchSize         int           `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"min=1,max=500"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Epoch             string        `yaml:"epoch" envconfig:"EPOCH" validate:"required,datetime=2006-01-02"`
	LagDays           int           `yaml:"lag_days" envconfig:"LAG_DAYS" validate:"min=0"`
}

// ArchiveConfig configures the optional S3 mirror of yearly archives
type ArchiveConfig struct {
	S3Bucket     string `yaml:"s3_bucket" envconfig:"S3_BUCKET"`
	S3Prefix     string `yaml:"s3_prefix" envconfig:"S3_PREFIX"`
	S3Region     string `yaml:"s3_region" envconfig:"S3_REGION"`
	S3Endpoint   string `yaml:"s3_endpoint" envconfig:"S3_ENDPOINT" validate:"omitempty,url"`
	UsePathStyle bool   `yaml:"use_path_style" envconfig:"USE_PATH_STYLE"`
	// Static credentials; when empty the default AWS credential chain is used
	AccessKeyID     string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
}

// Enabled reports whether archives should be mirrored to S3
func (a ArchiveConfig) Enabled() bool {
	return a.S3Bucket != ""
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// RateLimit is requests per second across all clients; 0 disables it
	RateLimit      float64 `yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"min=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"min=0"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"min=0,max=1"`
}

// Load builds the configuration from defaults, an optional YAML file and
// GRID_* environment variables, in increasing order of precedence.
// An empty path falls back to the well-known config file locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Download.Timezone); err != nil {
		return fmt.Errorf("invalid download timezone %q: %w", c.Download.Timezone, err)
	}
	if c.Reports.ExpectedWidthPDF > c.Reports.ExpectedWidthXLS {
		return fmt.Errorf("pdf expected width %d exceeds xls expected width %d",
			c.Reports.ExpectedWidthPDF, c.Reports.ExpectedWidthXLS)
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"gridcli.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/gridcli.log",
		},
		Paths: PathsConfig{
			DataDir:          "data",
			RawDir:           "data/raw",
			ArchiveDir:       "data/raw",
			ExtractedDir:     "data/extracted",
			OutputDir:        "data/csv",
			FeedsDir:         "data/meritindia",
			TrackingFile:     "data/raw/track.json",
			FeedTrackingFile: "data/meritindia/track.json",
			LogsDir:          "logs",
		},
		Reports: ReportsConfig{
			DataStartSentinel: DefaultDataStartSentinel,
			Denylist:          append([]string(nil), DefaultDenylist...),
			ExpectedWidthXLS:  15,
			ExpectedWidthPDF:  12,
			Workers:           10,
			BatchSize:         500,
		},
		Download: DownloadConfig{
			BaseURL:           "https://npp.gov.in/public-reports/cea/daily/dgr",
			Timeout:           60 * time.Second,
			RequestsPerSecond: 2,
			Burst:             1,
			Epoch:             "2017-09-01",
			RetryWindow:       30 * 24 * time.Hour,
			LagDays:           2,
			Timezone:          DefaultTimezone,
			UserAgent:         AppName + "/" + AppVersion,
		},
		Feeds: FeedsConfig{
			BaseURL:           "https://45.249.235.16",
			HostHeader:        "meritindia.in",
			InsecureTLS:       true,
			Timeout:           60 * time.Second,
			Workers:           5,
			BatchSize:         500,
			RequestsPerSecond: 10,
			Epoch:             "2017-06-01",
			LagDays:           2,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit:       20,
			RateLimitBurst:  40,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
