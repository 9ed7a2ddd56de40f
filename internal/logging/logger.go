package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
)

// Masked replaces the value of attributes whose key looks like personal data
// or a credential.
const Masked = "***"

var sensitiveKeys = regexp.MustCompile(`(?i)password|secret|token|email|phone`)

// New creates a configured application logger.
// It writes to Stderr so that stdout stays free for JSON-lines output.
// It standardizes common keys (e.g., "error" -> "err") and masks sensitive ones.
func New(level slog.Level) *slog.Logger {
	return NewWriter(os.Stderr, level)
}

// NewWriter is New writing to w.
func NewWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			if a.Value.Kind() == slog.KindString && sensitiveKeys.MatchString(a.Key) {
				a.Value = slog.StringValue(Masked)
			}
			return a
		},
	}))
}

// ParseLevel resolves a level name such as "debug" or "warn". Empty is info.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
