// internal/preview/preview.go
package preview

import (
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Normalize prepares tool-produced file content for dashboard display. HTML
// is converted to markdown; everything else passes through untouched.
// Conversion failures fall back to the original content.
func Normalize(content, mimeType string) string {
	if !isHTML(content, mimeType) {
		return content
	}
	md, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		return content
	}
	return md
}

func isHTML(content, mimeType string) bool {
	if strings.Contains(mimeType, "text/html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(content))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// extLanguages maps file extensions to display languages for syntax
// highlighting hints.
var extLanguages = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".rs":    "rust",
	".rb":    "ruby",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".sh":    "bash",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".md":    "markdown",
	".swift": "swift",
	".kt":    "kotlin",
}

// LanguageFor guesses a display language from a filename extension.
// Returns "" for unknown extensions.
func LanguageFor(filename string) string {
	return extLanguages[strings.ToLower(filepath.Ext(filename))]
}

// MimeFor guesses a mime type from a filename extension. Text-ish source
// files map to text/plain; only the handful of types the dashboard treats
// specially are distinguished.
func MimeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return "text/html"
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	default:
		return "text/plain"
	}
}
