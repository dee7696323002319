// Package debug provides category-based debug logging for dolmetsch.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): controlled via DOLMETSCH_DEBUG env or config
//   - Levels (HOW MUCH detail): controlled via the logging.level config key
//
// Usage:
//
//	debug.Log("backend", "request", "method", "POST", "url", url)
//	if debug.Enabled("backend") { /* expensive formatting */ }
//
// DOLMETSCH_DEBUG accepts either a comma-separated category list or a
// boolean ("true" enables all categories, "false" disables them), so the
// same variable works for quick on/off switches and fine-grained selection.
//
// Categories: backend, translate, streaming, transport, auth, storage, config, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LevelTrace is below slog.LevelDebug for maximum verbosity.
// At TRACE, full untruncated request/response bodies are logged.
const LevelTrace = slog.LevelDebug - 4

// categories holds the set of enabled debug categories.
// Access is read-only after Init(), so no synchronization needed.
var categories map[string]bool

func init() {
	// Initialize from environment for immediate availability.
	// Can be re-initialized later via Init() with config values.
	env := os.Getenv("DOLMETSCH_DEBUG")
	categories = parseCategories(normalizeSpec(env))
}

// Init configures the debug categories. Called at startup with the value
// derived from config. Environment overrides config.
func Init(configSpec string) {
	spec := os.Getenv("DOLMETSCH_DEBUG")
	if spec == "" {
		spec = configSpec
	}
	categories = parseCategories(normalizeSpec(spec))
}

// Enabled reports whether debug output is active for the given category.
// This is a constant-time map lookup with zero allocation.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug message for the given category.
// If the category is not enabled, this is a no-op (zero overhead).
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category.
// Only visible when logging.level is TRACE.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(nil, LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE level is active for the given category.
func TraceIsEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(nil, LevelTrace)
}

// Raw writes plain text to stderr without any slog formatting.
// Use this for copy-paste-ready output (full backend envelopes, stream lines).
// Only emitted when category is enabled AND level is TRACE.
func Raw(category string, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintln(os.Stderr, text)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the list of enabled categories (for health/status reporting).
func Categories() []string {
	var result []string
	for k := range categories {
		result = append(result, k)
	}
	return result
}

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// normalizeSpec maps boolean-ish specs onto category lists: "true" and its
// strconv.ParseBool variants become "all", "false" becomes empty. Anything
// else passes through as a category list.
func normalizeSpec(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return "all"
		}
		return ""
	}
	return s
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	if s == "" {
		return m
	}
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
