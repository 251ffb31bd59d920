package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// RedactingHandler wraps a slog.Handler and scrubs sensitive values from
// every record before it is written. Two layers apply: attribute keys
// that name credentials are blanked entirely, and string values are run
// through pattern redaction for anything that slipped through.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler wraps the given handler with redaction.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, RedactString(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(redacted)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, redactValue(a.Value.String()))
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, RedactString(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		redacted := make([]any, 0, len(group))
		for _, g := range group {
			redacted = append(redacted, redactAttr(g))
		}
		return slog.Group(a.Key, redacted...)
	default:
		return a
	}
}

// isSensitiveKey reports whether an attribute key names credential data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey", "credential",
	"auth", "authorization",
	"private_key", "privatekey",
}

// redactValue blanks a credential value, keeping a short prefix so
// operators can tell keys apart.
func redactValue(value string) string {
	if len(value) <= 4 {
		return "***"
	}
	return value[:4] + "***"
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// Patterns scrub values that should never appear in logs even when the
// attribute key looks innocent.
var redactPatterns = []redactPattern{
	{regexp.MustCompile(`(sk-[a-zA-Z0-9]+|api[-_]?key[-_:]\s*[a-zA-Z0-9]+)`), "sk-***"},
	{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`), "Bearer ***"},
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "***@***"},
	{regexp.MustCompile(`\b\d{3}[-\s]\d{2}[-\s]\d{4}\b`), "***-**-****"},
	{regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`), "****-****-****-****"},
}

// RedactString scrubs credential and PII patterns from a string.
func RedactString(value string) string {
	if value == "" {
		return value
	}
	redacted := value
	for _, pattern := range redactPatterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}
	return redacted
}
