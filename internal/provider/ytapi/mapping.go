package ytapi

import (
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"google.golang.org/api/youtube/v3"
)

// publishedAt values are RFC 3339; records keep yt-dlp's yyyyMMdd form.
func uploadDate(publishedAt string) string {
	if publishedAt == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, publishedAt)
	if err != nil {
		return ""
	}
	return t.UTC().Format(metadata.UploadDateLayout)
}

// thumbnails returns the snippet thumbnails ordered worst to best, matching
// yt-dlp's ordering.
func thumbnails(details *youtube.ThumbnailDetails) []metadata.Thumbnail {
	if details == nil {
		return nil
	}
	ordered := []struct {
		id    string
		thumb *youtube.Thumbnail
	}{
		{"default", details.Default},
		{"medium", details.Medium},
		{"high", details.High},
		{"standard", details.Standard},
		{"maxres", details.Maxres},
	}
	var out []metadata.Thumbnail
	for _, entry := range ordered {
		if entry.thumb == nil || entry.thumb.Url == "" {
			continue
		}
		out = append(out, metadata.Thumbnail{
			URL:    entry.thumb.Url,
			ID:     entry.id,
			Width:  int(entry.thumb.Width),
			Height: int(entry.thumb.Height),
		})
	}
	return out
}

func videoRecord(video *youtube.Video) *metadata.Record {
	s := video.Snippet
	rec := &metadata.Record{
		ID:          video.Id,
		Title:       s.Title,
		Description: s.Description,
		Uploader:    s.ChannelTitle,
		Channel:     s.ChannelTitle,
		ChannelID:   s.ChannelId,
		UploadDate:  uploadDate(s.PublishedAt),
		Thumbnails:  thumbnails(s.Thumbnails),
		WebpageURL:  "https://www.youtube.com/watch?v=" + video.Id,
	}
	rec.Thumbnail = rec.BestThumbnail()
	return rec
}

func channelRecord(channel *youtube.Channel) *metadata.Record {
	s := channel.Snippet
	rec := &metadata.Record{
		ID:          channel.Id,
		Title:       s.Title,
		Description: s.Description,
		Uploader:    s.Title,
		UploaderID:  s.CustomUrl,
		Channel:     s.Title,
		ChannelID:   channel.Id,
		UploadDate:  uploadDate(s.PublishedAt),
		Thumbnails:  thumbnails(s.Thumbnails),
		WebpageURL:  "https://www.youtube.com/channel/" + channel.Id,
	}
	rec.Thumbnail = rec.BestThumbnail()
	return rec
}

func searchResult(item *youtube.SearchResult) (metadata.SearchResult, bool) {
	if item == nil || item.Id == nil || item.Snippet == nil {
		return metadata.SearchResult{}, false
	}
	id := item.Id.VideoId
	if id == "" {
		id = item.Id.ChannelId
	}
	if id == "" {
		return metadata.SearchResult{}, false
	}
	s := item.Snippet
	res := metadata.SearchResult{
		ID:        id,
		Name:      s.Title,
		Overview:  metadata.TruncateOverview(s.Description),
		ChannelID: s.ChannelId,
		Uploader:  s.ChannelTitle,
	}
	if th := thumbnails(s.Thumbnails); len(th) > 0 {
		res.ThumbnailURL = th[len(th)-1].URL
	}
	if d := uploadDate(s.PublishedAt); d != "" {
		res.ProductionYear = metadata.ParseUploadDate(d).Year()
	}
	return res, true
}
