package schema

import (
	"strings"
	"unicode"
)

// SnakeCase converts a Go identifier into the document key derived from it.
//
//   - "CreatedAt"  -> "created_at"
//   - "UserID"     -> "user_id"
//   - "HTTPServer" -> "http_server"
//   - "Field1Name" -> "field1_name"
func SnakeCase(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && startsWord(runes, i) && runes[i-1] != '_' {
			b.WriteRune('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// startsWord reports whether the upper-case rune at i opens a new word:
// after a lower-case letter or digit, or as the last capital of an acronym
// followed by a lower-case letter ("HTTPServer" splits before 'S').
func startsWord(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}

	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
