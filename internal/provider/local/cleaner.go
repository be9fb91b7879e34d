package local

import (
	"path/filepath"
	"strings"

	"github.com/Digital-Shane/youtube-metadata/internal/media"
)

// CleanName performs basic cleaning on a media or folder name: id tokens,
// date prefixes and empty brackets are removed and separators trimmed.
func CleanName(name string) string {
	if name == "" {
		return ""
	}

	result := idTokenRe.ReplaceAllString(name, "")
	result = uploadDatePrefixRe.ReplaceAllString(result, "")

	// Remove empty brackets
	result = emptyBracketsRe.ReplaceAllString(result, "")

	// Remove multiple spaces
	result = strings.Join(strings.Fields(result), " ")

	// Drop leading/trailing separator characters that look odd when metadata is missing
	result = strings.Trim(result, "-_–—|: ")

	return strings.TrimSpace(result)
}

// TitleFromPath returns a display title for a file or folder path.
func TitleFromPath(path string, isFile bool) string {
	name := media.DisplayName(path)
	if !isFile {
		name = filepath.Base(path)
	}
	if cleaned := CleanName(name); cleaned != "" {
		return cleaned
	}
	return name
}
