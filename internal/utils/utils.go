package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateRequestID creates a new random request ID
func GenerateRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Truncate shortens s to at most maxLen bytes, marking the cut with an ellipsis.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// NormalizeBaseURL prefixes a bare host[:port] with http:// and drops trailing
// slashes. An empty input stays empty.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	return strings.TrimRight(raw, "/")
}
