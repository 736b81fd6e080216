package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys are attribute keys whose values are always masked.
// The feeder handles exactly one credential class - Figma personal access
// tokens - but config files and HTTP plumbing can surface adjacent
// material, so the net is cast slightly wider.
var sensitiveKeys = map[string]bool{
	// The credential itself
	"token":         true,
	"figma_token":   true,
	"figma-token":   true,
	"x-figma-token": true,
	"access_token":  true,
	"api_key":       true,
	"apikey":        true,

	// HTTP headers that may carry it
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,

	// Generic credential vocabulary from config files
	"password": true,
	"passwd":   true,
	"secret":   true,
}

// sensitivePatterns match values that are credentials regardless of the
// attribute key they were logged under.
var sensitivePatterns = []*regexp.Regexp{
	// Figma personal access tokens
	regexp.MustCompile(`^figd_[A-Za-z0-9_-]+$`),

	// Bearer / basic authorization values
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
}

// MaskValue replaces sensitive values in log output.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and masks credential material in
// attribute values before the record reaches the inner handler.
//
// Design decision: A handler wrapper rather than a custom logger because
// it composes with any slog backend (text, JSON) and with every library
// that accepts a *slog.Logger.
type SecureHandler struct {
	// inner receives the sanitized records.
	inner slog.Handler
}

// NewSecureHandler wraps handler with credential masking. A nil handler
// falls back to slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{inner: handler}
}

// Enabled delegates to the inner handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle masks the record's attributes and forwards it.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.inner.Handle(ctx, masked)
}

// WithAttrs masks the attributes before handing them to the inner handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.maskAttr(a)
	}
	return &SecureHandler{inner: h.inner.WithAttrs(masked)}
}

// WithGroup wraps the inner handler's group.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{inner: h.inner.WithGroup(name)}
}

// maskAttr masks one attribute, recursing into groups.
func (h *SecureHandler) maskAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, ga := range group {
			masked[i] = h.maskAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || strings.Contains(key, "token") || strings.Contains(key, "secret") {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		value := a.Value.String()
		for _, pattern := range sensitivePatterns {
			if pattern.MatchString(value) {
				return slog.String(a.Key, MaskValue)
			}
		}
	}

	return a
}

// NewSecureLogger creates a text-format slog.Logger with credential
// masking. Verbose selects Debug level, otherwise Warn.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSecureHandler(handler))
}

// NewSecureJSONLogger is NewSecureLogger with a JSON backend, for
// structured log aggregation.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSecureHandler(handler))
}
