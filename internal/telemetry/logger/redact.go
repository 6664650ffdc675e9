package logger

import (
	"log/slog"
	"strings"
)

// Attribute key fragments that mark a value as secret.
var sensitiveKeyPatterns = []string{
	"seed",
	"share",
	"signing_key",
	"private",
	"secret",
	"mnemonic",
	"password",
	"token",
	"credential",
	"encryption_key",
}

const redactedValue = "***REDACTED***"

// redactSensitive replaces the value of any attribute whose key names
// secret material. Non-string values ([]byte, structs) are redacted too.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	if !IsSensitiveKey(a.Key) {
		return a
	}
	if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
		return a
	}
	return slog.String(a.Key, redactedValue)
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// MaskValue keeps the first and last three characters of value.
// Use it for identifiers that are useful in logs but should not appear in full.
func MaskValue(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}
