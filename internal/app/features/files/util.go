package files

import (
	"fmt"
	"mime"
	"strings"
)

// FormatFileSize formats a file size in bytes to a human-readable string.
func FormatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// baseType drops parameters such as charset and lowercases the result.
func baseType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// FileKind classifies a content type for client-side icons.
func FileKind(contentType string) string {
	ct := baseType(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return "image"
	case strings.HasPrefix(ct, "video/"):
		return "video"
	case strings.HasPrefix(ct, "audio/"):
		return "audio"
	case ct == "application/pdf":
		return "pdf"
	case strings.HasPrefix(ct, "text/"), ct == "application/json":
		return "text"
	case strings.Contains(ct, "spreadsheet") || strings.Contains(ct, "excel"):
		return "spreadsheet"
	case strings.Contains(ct, "presentation") || strings.Contains(ct, "powerpoint"):
		return "presentation"
	case strings.Contains(ct, "document") || strings.Contains(ct, "word"):
		return "document"
	case strings.Contains(ct, "zip") || strings.Contains(ct, "compressed") || strings.Contains(ct, "archive"):
		return "archive"
	default:
		return "file"
	}
}

// IsViewable returns true if the content type can be displayed inline in a browser.
// HTML and SVG are excluded so shared content cannot run script on this origin.
func IsViewable(contentType string) bool {
	ct := baseType(contentType)
	switch {
	case ct == "text/html", ct == "image/svg+xml":
		return false
	case strings.HasPrefix(ct, "image/"):
		return true
	case strings.HasPrefix(ct, "video/"):
		return true
	case strings.HasPrefix(ct, "audio/"):
		return true
	case ct == "application/pdf":
		return true
	case strings.HasPrefix(ct, "text/"):
		return true
	default:
		return false
	}
}
