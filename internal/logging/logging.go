// Package logging provides the process-wide structured logger used by every
// other package. It wraps a single logrus.Logger instance so call sites get
// leveled, field-based logging without having to thread a logger through
// every constructor.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var root = logrus.New()

func init() {
	root.SetOutput(os.Stderr)
	root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	root.SetLevel(logrus.InfoLevel)
}

// SetupLevel parses a level string (case-insensitive; "warn" accepted as an
// alias for "warning", "none" mapped to panic-only) and applies it to the
// root logger. An invalid string logs a warning and leaves the level at info.
func SetupLevel(levelStr string) {
	level, err := logrus.ParseLevel(normalizeLevel(levelStr))
	if err != nil {
		root.Warnf("invalid log level %q, defaulting to info", levelStr)
		root.SetLevel(logrus.InfoLevel)
		return
	}
	root.SetLevel(level)
}

func normalizeLevel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "warn":
		return "warning"
	case "none":
		return "panic"
	default:
		return s
	}
}

// SetOutput redirects where log lines are written, primarily for tests.
func SetOutput(w io.Writer) {
	root.SetOutput(w)
}

// L returns the shared *logrus.Logger for packages that want to build
// WithFields chains directly.
func L() *logrus.Logger {
	return root
}

// Fields is a convenience alias so callers don't need to import logrus
// directly just to attach structured context.
type Fields = logrus.Fields

// For returns a log entry pre-populated with the given fields.
func For(fields Fields) *logrus.Entry {
	return root.WithFields(fields)
}
