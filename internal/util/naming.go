package util

import (
	"strings"
	"unicode"
)

// commonInitialisms are segments rendered fully upper-cased in exported Go
// identifiers, matching the standard library's naming conventions.
var commonInitialisms = map[string]string{
	"id": "ID", "url": "URL", "api": "API", "http": "HTTP",
	"json": "JSON", "sql": "SQL", "uuid": "UUID", "ip": "IP",
	"db": "DB",
}

// SnakeToCamel converts a snake_case identifier to an exported CamelCase
// identifier, upper-casing well-known initialisms.
func SnakeToCamel(s string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if init, ok := commonInitialisms[p]; ok {
			b.WriteString(init)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// CamelToSnake converts a CamelCase identifier to snake_case. Runs of
// upper-case letters are treated as one segment.
func CamelToSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(runes[i-1]) ||
				(i+1 < len(runes) && !unicode.IsUpper(runes[i+1]))) {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "_")
}
