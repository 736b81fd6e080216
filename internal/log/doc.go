// Package log provides credential-safe structured logging for figmaFeeder.
//
// The feeder authenticates every API call with a Figma personal access
// token. Tokens routinely pass through request headers, config maps, and
// error messages, all of which are natural things to log. SecureHandler
// wraps any slog.Handler and masks token material (by attribute key and by
// value shape) before a record reaches the backend, so a verbose debug run
// can be shared without scrubbing.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
// Masking is conservative: a false positive costs one unreadable log
// value, a false negative leaks a credential.
package log
