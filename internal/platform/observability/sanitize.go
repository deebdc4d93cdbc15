package observability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// clip drops control characters, which would let form input forge log lines, and keeps at
// most limit runes.
func clip(value string, limit int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if utf8.RuneCountInString(cleaned) <= limit {
		return cleaned
	}
	return string([]rune(cleaned)[:limit])
}

// SanitizeRoute bounds a request path for logs and span attributes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clip(route, 180)
}

func SanitizeMethod(method string) string {
	return clip(method, 10)
}

// SanitizeField bounds short free-form values such as user agents.
func SanitizeField(value string) string {
	return clip(value, 64)
}

// MaskEmail keeps the first character of the mailbox and the whole domain, enough to
// follow a customer through the logs without recording the address.
func MaskEmail(email string) string {
	email = clip(strings.TrimSpace(email), 254)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	first, _ := utf8.DecodeRuneInString(email)
	return string(first) + "***" + email[at:]
}
