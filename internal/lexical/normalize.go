package lexical

import "strings"

// Normalize converts raw query or record text into its canonical comparison
// form: lowercased, with hyphens and underscores treated as word separators
// and runs of whitespace collapsed to single spaces. Normalization is
// idempotent.
// Parameters:
//   - text: raw input text.
// Returns:
//   - string: normalized text.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, "-", " ")
	text = strings.ReplaceAll(text, "_", " ")
	return strings.Join(strings.Fields(text), " ")
}
