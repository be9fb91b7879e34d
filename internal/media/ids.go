package media

import (
	"regexp"
	"strings"
)

// IDKind identifies which kind of YouTube identifier a name carried.
type IDKind int

const (
	IDKindNone IDKind = iota
	IDKindVideo
	IDKindChannel
)

func (k IDKind) String() string {
	switch k {
	case IDKindVideo:
		return "video"
	case IDKindChannel:
		return "channel"
	default:
		return "none"
	}
}

const (
	videoIDLen   = 11
	channelIDLen = 24
)

var (
	// videoIDRe matches a bracketed video id, optionally prefixed with "youtube-":
	// "[dQw4w9WgXcQ]", "[youtube-dQw4w9WgXcQ]".
	videoIDRe = regexp.MustCompile(`\[(?:youtube-)?([A-Za-z0-9_-]{11})\]`)

	// channelIDRe matches a bracketed channel id: "[UCuAXFkgsw1L7xaCfnd5JJOw]".
	channelIDRe = regexp.MustCompile(`\[(UC[A-Za-z0-9_-]{22})\]`)

	idCharsRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ExtractVideoID returns the last bracketed video id found in name, or "".
func ExtractVideoID(name string) string {
	return lastSubmatch(videoIDRe, name)
}

// ExtractChannelID returns the last bracketed channel id found in name, or "".
// The returned id keeps its UC prefix.
func ExtractChannelID(name string) string {
	return lastSubmatch(channelIDRe, name)
}

// ExtractID tries a video id first and falls back to a channel id.
func ExtractID(name string) (string, IDKind) {
	if id := ExtractVideoID(name); id != "" {
		return id, IDKindVideo
	}
	if id := ExtractChannelID(name); id != "" {
		return id, IDKindChannel
	}
	return "", IDKindNone
}

// IsVideoID reports whether s is shaped like a video id.
func IsVideoID(s string) bool {
	return len(s) == videoIDLen && idCharsRe.MatchString(s)
}

// IsChannelID reports whether s is shaped like a channel id.
func IsChannelID(s string) bool {
	return len(s) == channelIDLen && strings.HasPrefix(s, "UC") && idCharsRe.MatchString(s)
}

func lastSubmatch(re *regexp.Regexp, s string) string {
	matches := re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}
