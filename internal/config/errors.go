package config

import "errors"

// Configuration validation errors.
//
// Design decision: Package-level sentinel errors rather than fresh error
// values in Validate() so callers can use errors.Is() while the messages
// stay human-readable.
var (
	// ErrNoFileKey is returned when no Figma file key was supplied.
	ErrNoFileKey = errors.New("no file key specified: provide at least one Figma file key")

	// ErrNoToken is returned when no access token could be resolved
	// from flags, the FIGMA_TOKEN environment variable, or the config file.
	ErrNoToken = errors.New("no access token: set FIGMA_TOKEN, use --token, or add one to the config file")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRateLimit is returned when the request rate is negative.
	// Use 0 to disable throttling.
	ErrInvalidRateLimit = errors.New("invalid request rate: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
