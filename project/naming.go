package project

import (
	"regexp"
	"strings"
)

var (
	briefUnsafeRe = regexp.MustCompile(`[^a-zA-Z0-9\s\-_.,:;'"!?()[\]{}/+@#$%&*=<>]`)
	nameInvalidRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// SanitizeBrief removes control and other unsafe characters from a user
// brief before it is embedded in a prompt.
func SanitizeBrief(input string) string {
	return strings.TrimSpace(briefUnsafeRe.ReplaceAllString(input, ""))
}

// FormatProjectName normalizes an arbitrary name into the manifest name
// shape: lowercase, digits and single hyphens, no leading or trailing
// hyphen. An empty result falls back to "slipway-project".
func FormatProjectName(name string) string {
	formatted := strings.ToLower(strings.TrimSpace(name))
	formatted = nameInvalidRe.ReplaceAllString(formatted, "-")
	formatted = strings.Trim(formatted, "-")
	if formatted == "" {
		return "slipway-project"
	}
	return formatted
}

// Truncate shortens s to at most max characters, appending an ellipsis when
// anything was cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
