package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// piiKeys contains attribute keys whose values are always masked.
var piiKeys = map[string]bool{
	"customer":      true,
	"customer_name": true,
	"customername":  true,
	"reviewer":      true,
	"name":          true,
	"location":      true,
	"email":         true,
	"e-mail":        true,
	"phone":         true,
	"telephone":     true,
	"address":       true,
}

// piiKeywords mask any key containing them, e.g. "left_customer".
var piiKeywords = []string{"customer", "email", "phone"}

// piiPatterns match values that look like contact details regardless of
// the attribute key.
var piiPatterns = []*regexp.Regexp{
	// E-mail address anywhere in the value
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),

	// North American phone number
	regexp.MustCompile(`^\+?1?[\s.-]?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}$`),
}

// MaskValue is the string used to replace redacted values.
const MaskValue = "***REDACTED***"

// RedactingHandler wraps an slog.Handler and masks customer data in
// attributes before passing records on.
type RedactingHandler struct {
	// handler is the underlying slog handler that receives redacted records.
	handler slog.Handler
}

// NewRedactingHandler creates a RedactingHandler wrapping handler.
// If handler is nil, slog.Default().Handler() is used.
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactingHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle redacts the record's attributes and passes it to the underlying handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(redactAttr(a))
		return true
	})

	return h.handler.Handle(ctx, redacted)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are redacted before being added.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(redacted)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr masks a single attribute, recursing into groups.
func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			redacted[i] = redactAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}

	if isPIIKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString && isPIIValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}

	return a
}

// isPIIKey reports whether the key names customer data.
func isPIIKey(key string) bool {
	key = strings.ToLower(key)
	if piiKeys[key] {
		return true
	}
	for _, keyword := range piiKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isPIIValue reports whether the value looks like contact details.
func isPIIValue(value string) bool {
	value = strings.TrimSpace(value)
	for _, pattern := range piiPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// level returns Debug when verbose and Warn otherwise.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewLogger creates a text logger that redacts customer data.
// verbose lowers the level from Warn to Debug.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewRedactingHandler(textHandler))
}

// NewJSONLogger creates a JSON logger that redacts customer data.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewRedactingHandler(jsonHandler))
}
