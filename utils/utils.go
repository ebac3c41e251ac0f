// Package utils provides utility functions for the application.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// ParseUUID parses a UUID string, trimming surrounding whitespace first.
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// NormalizeMatchValue lowercases and trims a value for case-insensitive
// rule matching.
func NormalizeMatchValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
