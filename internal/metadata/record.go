package metadata

import "strings"

// Record is the cached info JSON for a single video or channel. Field names
// follow yt-dlp's info JSON so that sidecars written by yt-dlp, the cache
// files written by this module, and normalised API responses all decode into
// the same shape.
type Record struct {
	ID          string      `json:"id"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Uploader    string      `json:"uploader,omitempty"`
	UploaderID  string      `json:"uploader_id,omitempty"`
	Channel     string      `json:"channel,omitempty"`
	ChannelID   string      `json:"channel_id,omitempty"`
	UploadDate  string      `json:"upload_date,omitempty"`
	Track       string      `json:"track,omitempty"`
	Artist      string      `json:"artist,omitempty"`
	Album       string      `json:"album,omitempty"`
	Thumbnail   string      `json:"thumbnail,omitempty"`
	Thumbnails  []Thumbnail `json:"thumbnails,omitempty"`
	Duration    float64     `json:"duration,omitempty"`
	WebpageURL  string      `json:"webpage_url,omitempty"`
}

// Thumbnail is one entry of a record's thumbnail list. yt-dlp orders the list
// from worst to best.
type Thumbnail struct {
	URL        string `json:"url"`
	ID         string `json:"id,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// BestThumbnail returns the preferred thumbnail URL: the last list entry,
// falling back to the single thumbnail field.
func (r *Record) BestThumbnail() string {
	if r == nil {
		return ""
	}
	for i := len(r.Thumbnails) - 1; i >= 0; i-- {
		if u := strings.TrimSpace(r.Thumbnails[i].URL); u != "" {
			return u
		}
	}
	return r.Thumbnail
}

// DisplayUploader returns the best human name for the record's owner.
func (r *Record) DisplayUploader() string {
	if r == nil {
		return ""
	}
	for _, name := range []string{r.Uploader, r.Channel, r.Title} {
		if s := strings.TrimSpace(name); s != "" {
			return s
		}
	}
	return ""
}

// OwnerID returns the channel id a person or series should be keyed by.
func (r *Record) OwnerID() string {
	if r == nil {
		return ""
	}
	if r.ChannelID != "" {
		return r.ChannelID
	}
	return r.ID
}
