package util

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Truncate shortens a string to at most n bytes, appending "..." when it cuts
// and n is greater than 3; budgets of 3 or less cut without the ellipsis.
// Cuts land on rune boundaries.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		lastValid := 0
		for i := range s {
			if i > n {
				break
			}
			lastValid = i
		}
		return s[:lastValid]
	}
	targetLen := n - 3
	prevI := 0
	for i := range s {
		if i > targetLen {
			return s[:prevI] + "..."
		}
		prevI = i
	}
	return s[:prevI] + "..."
}

// SanitizeFilename makes a string safe for use as a filename. Pane ids
// like "%42" become "pct_42", which keeps stream files readable.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "%", "pct_")
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"\"", "-",
		"<", "-",
		">", "-",
		"|", "-",
		" ", "_",
		".", "_",
	)
	safe := replacer.Replace(name)

	if len(safe) > 64 {
		for i := 64; i >= 0; i-- {
			if utf8.RuneStart(safe[i]) {
				return safe[:i]
			}
		}
		return safe[:64]
	}
	return safe
}

// FormatBytes formats bytes in a human-readable way (e.g., "1.5 KB").
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// DecodeLossy converts raw pane bytes to a string, replacing invalid
// UTF-8 sequences with the replacement rune.
func DecodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
