package media

import (
	"path/filepath"
	"regexp"
	"strings"
)

// File classification helpers used when walking a library directory.
var (
	// videoRe matches video file extensions used to include media files.
	videoRe = regexp.MustCompile(`(?i)\.(mp4|mkv|avi|mov|wmv|flv|webm|mpeg|mpg|m4v|3gp|vob|ts|mts|m2ts|rmvb|divx)$`)

	// audioRe matches audio extensions yt-dlp commonly produces for music videos.
	audioRe = regexp.MustCompile(`(?i)\.(m4a|mp3|opus|ogg|flac|wav|aac)$`)

	// imageRe matches common image file extensions.
	imageRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|bmp|webp|tiff?)$`)

	// thumbnailRe matches the thumbnail formats yt-dlp writes next to downloads.
	thumbnailRe = regexp.MustCompile(`(?i)\.(jpg|webp)$`)

	// infoJSONRe matches yt-dlp info sidecars.
	infoJSONRe = regexp.MustCompile(`(?i)\.info\.json$`)
)

// InfoJSONExt is the sidecar extension yt-dlp writes with --write-info-json.
const InfoJSONExt = ".info.json"

// IsVideo reports whether filename has a recognized video extension.
func IsVideo(filename string) bool {
	return videoRe.MatchString(filename)
}

// IsAudio reports whether filename has a recognized audio extension.
func IsAudio(filename string) bool {
	return audioRe.MatchString(filename)
}

// IsMedia reports whether filename is a playable download.
func IsMedia(filename string) bool {
	return IsVideo(filename) || IsAudio(filename)
}

// IsImage reports whether filename has a recognized image extension.
func IsImage(filename string) bool {
	return imageRe.MatchString(filename)
}

// IsThumbnail reports whether filename is a jpg or webp image.
func IsThumbnail(filename string) bool {
	return thumbnailRe.MatchString(filename)
}

// IsInfoJSON reports whether filename is a yt-dlp info sidecar.
func IsInfoJSON(filename string) bool {
	return infoJSONRe.MatchString(filename)
}

// IsHidden reports whether name is a dotfile or a macOS resource fork artifact.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") || name == "Thumbs.db"
}

// SidecarPath returns the info sidecar path for a media file:
// "/dl/clip [id].mkv" -> "/dl/clip [id].info.json".
func SidecarPath(mediaPath string) string {
	return StripExtension(mediaPath) + InfoJSONExt
}

// StripExtension removes the final extension from path, keeping the directory.
func StripExtension(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// DisplayName returns the base name of path without its extension. Info
// sidecars lose their whole ".info.json" suffix.
func DisplayName(path string) string {
	base := filepath.Base(path)
	if IsInfoJSON(base) {
		return base[:len(base)-len(InfoJSONExt)]
	}
	return StripExtension(base)
}
