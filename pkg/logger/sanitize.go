package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

const redacted = "[REDACTED]"

// query parameter names containing any of these have their values redacted
var sensitiveParams = []string{
	"pass", "token", "secret", "email", "auth", "csrf", "license", "login",
}

// maskTail keeps the first rune of s and stars the rest
func maskTail(s string) string {
	runes := []rune(s)
	if len(runes) <= 1 {
		return s
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}

// SanitizedEmail masks an email address, keeping the first letter and the TLD
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	labels := strings.Split(domain, ".")
	for i := range labels[:len(labels)-1] {
		labels[i] = strings.Repeat("*", len([]rune(labels[i])))
	}
	return maskTail(local) + "@" + strings.Join(labels, ".")
}

// SanitizedLogin masks a login identifier that may be either a username or an email
func SanitizedLogin(login string) string {
	if strings.Contains(login, "@") {
		return SanitizedEmail(login)
	}
	return maskTail(login)
}

// RedactedAttr hides value entirely in production
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		value = redacted
	}
	return slog.String(key, value)
}

// RedactQuery returns rawQuery with the values of credential-like parameters replaced.
// Pair order is preserved.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	pairs := strings.Split(rawQuery, "&")
	for i, pair := range pairs {
		key, _, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(key)
		switch {
		case err != nil:
			pairs[i] = redacted
		case isSensitiveParam(name):
			pairs[i] = key + "=" + redacted
		}
	}
	return strings.Join(pairs, "&")
}

func isSensitiveParam(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range sensitiveParams {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
