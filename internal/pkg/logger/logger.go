// Package logger builds the process-wide slog logger. Attributes that could
// carry credentials are redacted before they reach the output.
package logger

import (
	"io"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"token":         {},
	"code":          {},
	"password":      {},
	"authorization": {},
	"cookie":        {},
	"secret":        {},
}

// New returns a JSON logger writing to w. Development environments log at debug level.
func New(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "development" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: Redact,
	}))
}

// Redact is a slog ReplaceAttr hook that masks values of sensitive keys.
func Redact(_ []string, a slog.Attr) slog.Attr {
	if isSensitive(a.Key) {
		return slog.String(a.Key, redacted)
	}
	return a
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	if _, ok := sensitiveKeys[k]; ok {
		return true
	}
	return strings.HasSuffix(k, "_token") || strings.HasSuffix(k, "_code") || strings.Contains(k, "password")
}
