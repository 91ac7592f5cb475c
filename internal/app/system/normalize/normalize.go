// Package normalize provides helper functions for consistent string normalization
// across the application. Use these helpers instead of scattered strings.ToLower
// and strings.TrimSpace calls to ensure consistent behavior.
package normalize

import (
	"path"
	"strings"
)

// Email normalizes an email address by trimming whitespace and converting to lowercase.
// This is the canonical way to normalize emails before storage or comparison.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name normalizes a display name (folder name, username) by trimming whitespace.
// Use text.Fold() for case-insensitive comparison keys.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// FileName reduces an uploaded file name to its final path element.
// Browsers may send a full client path; separators of either style are stripped.
func FileName(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	if s == "" {
		return ""
	}
	base := path.Base(s)
	if base == "/" || base == "." || base == ".." {
		return ""
	}
	return base
}

// StorageKey normalizes a key taken from a URL path: surrounding slashes and
// whitespace are removed.
func StorageKey(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}

// QueryParam normalizes a query parameter by trimming whitespace.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
