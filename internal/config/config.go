package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Where a value mirrors an API
// characteristic (batch size, retry base) the rationale is noted inline.
const (
	// DefaultBatchSize is the number of node identifiers per API batch.
	// The nodes endpoint handles 50 ids per request comfortably while
	// keeping response bodies small enough to decode quickly.
	DefaultBatchSize = 50

	// DefaultConcurrency is the number of batches fetched in parallel
	// per dispatch round. Four is fast without tripping Figma's
	// per-token rate limiting on typical plans.
	DefaultConcurrency = 4

	// DefaultTimeout is the per-request HTTP timeout. The API is quick;
	// 30 seconds only matters for very large batch responses.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond throttles outgoing API calls. Two per
	// second stays well inside Figma's documented rate limits while a
	// concurrent crawl is running.
	DefaultRequestsPerSecond = 2.0

	// DefaultRetryMaxAttempts caps attempts per request, first try
	// included. Six doubled waits from the 500ms base span roughly half
	// a minute, which covers most rate-limit windows.
	DefaultRetryMaxAttempts = 6

	// DefaultRetryBase is the base of the exponential retry schedule.
	DefaultRetryBase = 500 * time.Millisecond

	// AppName is used for XDG directory paths.
	AppName = "figmafeeder"

	// TokenEnvVar is the environment variable consulted for the Figma
	// personal access token when no flag or config entry supplies one.
	TokenEnvVar = "FIGMA_TOKEN"
)

// Config holds all options for a feed run. It is populated from CLI flags
// and the optional config file, then passed through the application by
// dependency injection rather than global state.
//
// Design decision: One flat struct instead of nested sub-configs. The
// option count is manageable, and nesting would add indirection without
// buying anything.
type Config struct {
	// Token is the Figma personal access token. Resolution order:
	// --token flag, FIGMA_TOKEN environment variable, config file.
	Token string

	// APIBaseURL overrides the API origin, mainly for tests.
	APIBaseURL string

	// FileKeys are the Figma files to feed.
	FileKeys []string

	// RootID roots the crawl at a specific node instead of the file's
	// document root. Applies to every file key; per-file roots live in
	// the config file.
	RootID string

	// BatchSize is the maximum identifiers per fetch batch.
	BatchSize int

	// Concurrency is the maximum batches in flight per dispatch round.
	Concurrency int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// RequestsPerSecond throttles API calls. Zero disables throttling.
	RequestsPerSecond float64

	// RetryMaxAttempts caps API attempts per request.
	RetryMaxAttempts int

	// RetryBase is the base of the retry backoff schedule.
	RetryBase time.Duration

	// Verbose enables slog.LevelDebug output.
	Verbose bool

	// JSONReport selects JSON report output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output. Mutually exclusive
	// with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// OutputDir, when set, writes one Markdown file per top-level
	// canvas section into the directory (plus an inventory file).
	OutputDir string

	// ConfigFilePath is an explicit config file location. Empty means
	// search the usual places.
	ConfigFilePath string

	// FileConfigs holds per-file-key overrides from the config file.
	FileConfigs *File

	// SaveToDB persists completed feed snapshots for later comparison.
	SaveToDB bool

	// DBDir is the directory holding the snapshot database.
	// Defaults to the XDG data directory.
	DBDir string
}

// NewConfig creates a Config with defaults. Token intentionally starts
// empty; resolution happens during CLI flag handling.
func NewConfig() *Config {
	return &Config{
		BatchSize:         DefaultBatchSize,
		Concurrency:       DefaultConcurrency,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: DefaultRequestsPerSecond,
		RetryMaxAttempts:  DefaultRetryMaxAttempts,
		RetryBase:         DefaultRetryBase,
		SaveToDB:          true,
	}
}

// ResolveToken fills Token from the environment when no flag supplied one.
func (c *Config) ResolveToken() {
	if c.Token == "" {
		c.Token = os.Getenv(TokenEnvVar)
	}
}

// XDGDataDir returns the XDG data directory for figmafeeder
// (~/.local/share/figmafeeder on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for figmafeeder.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found
// as a sentinel error. Called once after CLI parsing, before any network
// traffic.
func (c *Config) Validate() error {
	if len(c.FileKeys) == 0 {
		return ErrNoFileKey
	}
	if c.Token == "" {
		return ErrNoToken
	}
	if c.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRateLimit
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
