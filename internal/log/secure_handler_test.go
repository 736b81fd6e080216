package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSecureHandler(t *testing.T) {
	t.Parallel()

	logAndCapture := func(t *testing.T, fn func(logger *slog.Logger)) string {
		t.Helper()
		var buf bytes.Buffer
		logger := slog.New(NewSecureHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
		fn(logger)
		return buf.String()
	}

	t.Run("masks token-bearing keys", func(t *testing.T) {
		t.Parallel()

		out := logAndCapture(t, func(logger *slog.Logger) {
			logger.Info("creating client", "token", "figd_abc123", "fileKey", "xyz")
		})
		if strings.Contains(out, "figd_abc123") {
			t.Errorf("token value leaked: %s", out)
		}
		if !strings.Contains(out, MaskValue) {
			t.Errorf("expected mask in output: %s", out)
		}
		if !strings.Contains(out, "xyz") {
			t.Errorf("benign attribute was damaged: %s", out)
		}
	})

	t.Run("masks figma tokens by value shape", func(t *testing.T) {
		t.Parallel()

		out := logAndCapture(t, func(logger *slog.Logger) {
			logger.Info("request", "header", "figd_A1b2-C3_d4")
		})
		if strings.Contains(out, "figd_A1b2-C3_d4") {
			t.Errorf("token value leaked under a benign key: %s", out)
		}
	})

	t.Run("masks bearer values", func(t *testing.T) {
		t.Parallel()

		out := logAndCapture(t, func(logger *slog.Logger) {
			logger.Info("request", "value", "Bearer abc.def.ghi")
		})
		if strings.Contains(out, "abc.def.ghi") {
			t.Errorf("bearer value leaked: %s", out)
		}
	})

	t.Run("masks inside groups", func(t *testing.T) {
		t.Parallel()

		out := logAndCapture(t, func(logger *slog.Logger) {
			logger.Info("request", slog.Group("headers",
				slog.String("X-Figma-Token", "figd_secretvalue"),
				slog.String("Accept", "application/json"),
			))
		})
		if strings.Contains(out, "figd_secretvalue") {
			t.Errorf("grouped token leaked: %s", out)
		}
		if !strings.Contains(out, "application/json") {
			t.Errorf("benign grouped attribute was damaged: %s", out)
		}
	})

	t.Run("masks attributes added via With", func(t *testing.T) {
		t.Parallel()

		out := logAndCapture(t, func(logger *slog.Logger) {
			logger.With("api_key", "figd_with").Info("hello")
		})
		if strings.Contains(out, "figd_with") {
			t.Errorf("With-attached token leaked: %s", out)
		}
	})

	t.Run("leaves ordinary values alone", func(t *testing.T) {
		t.Parallel()

		out := logAndCapture(t, func(logger *slog.Logger) {
			logger.Info("crawl", "fileKey", "aBcDeF", "nodes", 42)
		})
		if strings.Contains(out, MaskValue) {
			t.Errorf("ordinary attributes were masked: %s", out)
		}
	})
}

func TestNewSecureLogger(t *testing.T) {
	t.Parallel()

	t.Run("warn level by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewSecureLogger(&buf, false)
		logger.Debug("hidden")
		logger.Warn("shown")

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Errorf("debug record emitted at warn level: %s", out)
		}
		if !strings.Contains(out, "shown") {
			t.Errorf("warn record missing: %s", out)
		}
	})

	t.Run("verbose enables debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewSecureLogger(&buf, true)
		logger.Debug("visible")
		if !strings.Contains(buf.String(), "visible") {
			t.Errorf("debug record missing in verbose mode: %s", buf.String())
		}
	})
}
