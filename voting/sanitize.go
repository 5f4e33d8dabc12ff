package voting

import "strings"

// strippedChars are removed from every voter-supplied string before it
// reaches storage or comparison.
const strippedChars = `;'"\&/*`

// Sanitize removes unsafe characters and trims surrounding whitespace.
// Empty input passes through unchanged. Idempotent.
func Sanitize(text string) string {
	if text == "" {
		return text
	}
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedChars, r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(cleaned)
}
