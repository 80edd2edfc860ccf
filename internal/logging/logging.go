// Package logging builds the service's structured logger. Attribute values
// that could leak document contents or client identity are redacted before
// they reach the output.
package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	digitsPattern = regexp.MustCompile(`\b\d{6,}\b`)
)

// pathKeys name attributes holding filesystem paths; only the base name is kept.
var pathKeys = map[string]bool{
	"path":      true,
	"file":      true,
	"temp_file": true,
	"tmp_path":  true,
}

// New returns a JSON logger writing to w at the given level name
// (debug, info, warn, error; unknown names mean info).
func New(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: redact,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func redact(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	v := a.Value.String()
	if pathKeys[a.Key] && v != "" {
		return slog.String(a.Key, filepath.Base(v))
	}
	return slog.String(a.Key, Sanitize(v))
}

// Sanitize masks e-mail addresses and long digit runs (account, phone and
// identification numbers) in s.
func Sanitize(s string) string {
	s = emailPattern.ReplaceAllString(s, "[email]")
	s = digitsPattern.ReplaceAllString(s, "[number]")
	return s
}
