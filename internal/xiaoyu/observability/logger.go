// Package observability provides structured logging helpers for Xiaoyu.
//
// It wraps log/slog with secret redaction so that upstream error text can
// be logged without leaking the bot token or API key.
package observability

import (
	"log/slog"
	"os"
	"strings"
)

const placeholder = "[REDACTED]"

// Setup configures the global slog logger according to the provided level
// and format strings (e.g. level="info", format="json").
func Setup(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// RedactSecrets replaces each sensitive value in msg with [REDACTED].
// Upstream API errors can echo credential fragments, so error text is
// scrubbed before it reaches a log line or a stored snapshot. Values
// shorter than 4 characters are skipped to avoid spurious redaction of
// common substrings.
func RedactSecrets(msg string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		msg = strings.ReplaceAll(msg, v, placeholder)
	}
	return msg
}
