package usecase

import (
	"strings"
	"unicode/utf8"
)

// Model output arrives with code fences, leading prose, or trailing
// commentary often enough that strict decoding alone is not workable.
// These helpers cut out the innermost JSON value on a best-effort basis;
// callers fall through to their own deterministic extraction when even
// that fails.

func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	if i := strings.Index(raw, "\n"); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.LastIndex(raw, "```"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

func extractJSONObject(raw string) string {
	raw = stripCodeFences(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func extractJSONArray(raw string) string {
	raw = stripCodeFences(raw)
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// truncateAtRune caps s at max bytes without splitting a multibyte rune.
// Filing text carries non-ASCII characters (currency signs, dashes), so
// a plain byte slice could leave an invalid sequence at the cut point.
func truncateAtRune(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
