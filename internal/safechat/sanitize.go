package safechat

import "regexp"

var boldMarkerPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)

// Sanitize strips markdown bold delimiters from model output, keeping the
// inner content. Single regex pass, all occurrences; nested or unbalanced
// delimiters are left alone. Idempotent.
func Sanitize(text string) string {
	return boldMarkerPattern.ReplaceAllString(text, "$1")
}
