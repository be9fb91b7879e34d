package core

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
)

// LookupInfo describes a host item asking for metadata.
//
// Fields:
//   - Path: Media file path for videos, folder path for series. May be empty.
//   - Name: Display name known to the host. Series without a channel id in
//     their path are resolved by this name.
//   - Kind: Target shape of the result.
type LookupInfo struct {
	Path string
	Name string
	Kind metadata.Kind
}

// SearchInfo describes a search request from the host.
type SearchInfo struct {
	Name  string
	Kind  metadata.Kind
	Limit int
}

// LocalSource reads metadata and images that already exist beside the media.
type LocalSource interface {
	Lookup(mediaPath string) (*metadata.Record, error)
	HasChanged(mediaPath string, lastSaved time.Time) bool
	Series(ctx context.Context, dir string) (*metadata.Record, error)
	SeriesHasChanged(ctx context.Context, dir string, lastSaved time.Time) bool
	Image(ctx context.Context, mediaPath string) (string, error)
	SeriesImage(ctx context.Context, dir string) (string, error)
}

// RuntimeProber reads the playing time of a local media file.
type RuntimeProber interface {
	Runtime(ctx context.Context, path string) (time.Duration, error)
}

// FetchState tracks fetch outcomes for one cache key.
type FetchState struct {
	Attempts  int
	Failures  int
	LastFetch time.Time
	LastError string
}

// identify returns the id a lookup should be served from. Video kinds take a
// video id first and fall back to a channel id; series only take channel ids.
func identify(info LookupInfo) (string, media.IDKind) {
	sources := []string{filepath.Base(info.Path), info.Name}
	if info.Kind == metadata.KindSeries {
		sources = []string{info.Path, info.Name}
		for _, s := range sources {
			if id := media.ExtractChannelID(s); id != "" {
				return id, media.IDKindChannel
			}
		}
		return "", media.IDKindNone
	}

	for _, s := range sources {
		if id := media.ExtractVideoID(s); id != "" {
			return id, media.IDKindVideo
		}
	}
	for _, s := range sources {
		if id := media.ExtractChannelID(s); id != "" {
			return id, media.IDKindChannel
		}
	}
	return "", media.IDKindNone
}

// FormatLookupMessage returns a short progress label for info.
func FormatLookupMessage(info LookupInfo) string {
	name := strings.TrimSpace(info.Name)
	if name == "" && info.Path != "" {
		name = media.DisplayName(info.Path)
	}
	if name == "" {
		name = "(unnamed)"
	}
	return string(info.Kind) + ": " + name
}
