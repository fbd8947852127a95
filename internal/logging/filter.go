// Package logging provides sensitive data filtering for log output. The gh
// CLI occasionally echoes authentication material into stderr, and build
// environments can carry tokens; nothing of that kind may reach the log
// file.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

// sensitivePatterns matches credential formats that can plausibly appear
// in subprocess output captured into log entries.
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // compiled once, read-only
	// GitHub tokens (ghp_, gho_, ghu_, ghs_, ghr_)
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),

	// Fine-grained GitHub tokens
	regexp.MustCompile(`github_pat_[a-zA-Z0-9_]{20,}`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_.-]{20,}`),

	// Netrc-style and env-style assignments
	regexp.MustCompile(`(?i)(token|secret|password|credential)\s*[:=]\s*["']?[^\s"']{8,}["']?`),
}

// sensitiveFieldNames are log field names whose values are always redacted.
var sensitiveFieldNames = []string{ //nolint:gochecknoglobals // compiled once, read-only
	"token",
	"github_token",
	"gh_token",
	"password",
	"secret",
	"credential",
	"authorization",
}

// Redact replaces all sensitive content in s.
func Redact(s string) string {
	for _, re := range sensitivePatterns {
		s = re.ReplaceAllString(s, RedactedValue)
	}
	return s
}

// SensitiveDataHook is a zerolog hook that redacts sensitive values from
// log messages before they are written.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a hook suitable for zerolog.Logger.Hook.
func NewSensitiveDataHook() SensitiveDataHook {
	return SensitiveDataHook{}
}

// Run implements zerolog.Hook.
func (SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, message string) {
	redacted := Redact(message)
	if redacted != message {
		e.Str("redacted", "true")
	}
}

// IsSensitiveField reports whether a field name should always have its
// value redacted, regardless of content.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, sensitive := range sensitiveFieldNames {
		if lower == sensitive {
			return true
		}
	}
	return false
}

// FilteringWriter wraps an io.Writer and redacts sensitive content from
// every write. It sits between the logger and the on-disk log file.
type FilteringWriter struct {
	target io.Writer
}

// NewFilteringWriter creates a FilteringWriter over target.
func NewFilteringWriter(target io.Writer) *FilteringWriter {
	return &FilteringWriter{target: target}
}

// Write implements io.Writer. The reported length is that of the original
// input so callers never see a short write from redaction shrinking the
// payload.
func (w *FilteringWriter) Write(p []byte) (int, error) {
	filtered := Redact(string(p))
	if _, err := w.target.Write([]byte(filtered)); err != nil {
		return 0, err
	}
	return len(p), nil
}
