package ytdlp

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/Digital-Shane/youtube-metadata/internal/provider"
)

const (
	// fieldSep separates fields in --print output. Titles never contain it.
	fieldSep = "\x1f"

	// channelFilter restricts a results page to channels.
	channelFilter = "EgIQAg%253D%253D"

	// missing is what yt-dlp prints for absent template fields.
	missing = "NA"
)

var searchTemplate = strings.Join([]string{
	"%(id)s",
	"%(title)s",
	"%(channel_id)s",
	"%(uploader)s",
	"%(thumbnails.-1.url)s",
}, fieldSep)

// SearchVideos returns the first limit videos matching query.
func (p *Provider) SearchVideos(ctx context.Context, query string, limit int) ([]metadata.SearchResult, error) {
	if limit <= 0 {
		limit = 1
	}
	inv := invocation{
		URL:          fmt.Sprintf("ytsearch%d:%s", limit, query),
		FlatPlaylist: true,
		Print:        searchTemplate,
		Cookies:      p.cookieFile(),
	}
	stdout, err := p.invoke(ctx, query, inv)
	if err != nil {
		return nil, err
	}
	return parseSearchOutput(stdout), nil
}

// SearchChannels returns the first limit channels matching query.
func (p *Provider) SearchChannels(ctx context.Context, query string, limit int) ([]metadata.SearchResult, error) {
	if limit <= 0 {
		limit = 1
	}
	inv := invocation{
		URL:           channelSearchURL(query),
		FlatPlaylist:  true,
		PlaylistItems: fmt.Sprintf("1:%d", limit),
		Print:         searchTemplate,
		Cookies:       p.cookieFile(),
	}
	stdout, err := p.invoke(ctx, query, inv)
	if err != nil {
		return nil, err
	}
	results := parseSearchOutput(stdout)
	for i := range results {
		// Channel entries carry their own id in the id column.
		if results[i].ChannelID == "" {
			results[i].ChannelID = results[i].ID
		}
	}
	return results, nil
}

// ResolveChannel returns the id of the best channel match for name.
func (p *Provider) ResolveChannel(ctx context.Context, name string) (string, error) {
	inv := invocation{
		URL:           channelSearchURL(name),
		FlatPlaylist:  true,
		PlaylistItems: "1",
		Print:         "url",
		Cookies:       p.cookieFile(),
	}
	stdout, err := p.invoke(ctx, name, inv)
	if err != nil {
		return "", err
	}

	id := trailingSegment(stdout)
	if id == "" {
		return "", provider.NewError(providerName, provider.CodeNotFound, nil, "no channel found for %q", name)
	}
	return id, nil
}

func channelSearchURL(query string) string {
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(query) + "&sp=" + channelFilter
}

// trailingSegment returns the last path segment of the first output line.
func trailingSegment(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	line = strings.TrimRight(strings.TrimSpace(line), "/")
	if line == "" {
		return ""
	}
	if u, err := url.Parse(line); err == nil && u.Path != "" {
		line = u.Path
	}
	return path.Base(line)
}

// parseSearchOutput splits --print output into results, keeping line order.
// Lines without at least an id and title are skipped.
func parseSearchOutput(out string) []metadata.SearchResult {
	var results []metadata.SearchResult
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, fieldSep)
		if len(fields) < 2 {
			continue
		}
		get := func(i int) string {
			if i >= len(fields) {
				return ""
			}
			v := strings.TrimSpace(fields[i])
			if v == missing {
				return ""
			}
			return v
		}
		if get(0) == "" {
			continue
		}
		results = append(results, metadata.SearchResult{
			ID:           get(0),
			Name:         get(1),
			ChannelID:    get(2),
			Uploader:     get(3),
			ThumbnailURL: get(4),
		})
	}
	return results
}
