package metadata

import "time"

// ProviderName is the provider-id key attached to people and series.
const ProviderName = "YoutubeMetadata"

// Kind is the host item kind a record is projected onto.
type Kind string

const (
	KindMovie      Kind = "movie"
	KindEpisode    Kind = "episode"
	KindMusicVideo Kind = "music_video"
	KindSeries     Kind = "series"
	KindSeason     Kind = "season"
)

// ParseKind maps user input onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindMovie, KindEpisode, KindMusicVideo, KindSeries, KindSeason:
		return Kind(s), true
	case "music", "musicvideo":
		return KindMusicVideo, true
	case "show", "channel":
		return KindSeries, true
	}
	return "", false
}

// IsVideo reports whether the kind is backed by a single video id.
func (k Kind) IsVideo() bool {
	return k == KindMovie || k == KindEpisode || k == KindMusicVideo
}

// PersonType is the role a person holds on an item.
type PersonType string

const PersonDirector PersonType = "Director"

// Person is a credited person on an item.
type Person struct {
	Name        string            `json:"name"`
	Type        PersonType        `json:"type"`
	ProviderIDs map[string]string `json:"provider_ids,omitempty"`
}

// Image is a remote image candidate for an item.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Item holds the fields populated on a host item. Which fields are set
// depends on Kind.
type Item struct {
	Kind              Kind              `json:"kind"`
	Name              string            `json:"name"`
	Overview          string            `json:"overview,omitempty"`
	ForcedSortName    string            `json:"forced_sort_name,omitempty"`
	ProductionYear    int               `json:"production_year,omitempty"`
	PremiereDate      *time.Time        `json:"premiere_date,omitempty"`
	IndexNumber       int               `json:"index_number,omitempty"`
	ParentIndexNumber int               `json:"parent_index_number,omitempty"`
	Artists           []string          `json:"artists,omitempty"`
	Album             string            `json:"album,omitempty"`
	ProviderIDs       map[string]string `json:"provider_ids,omitempty"`
	RunTime           time.Duration     `json:"run_time,omitempty"`
}

// Result is what a metadata lookup hands back to the host.
type Result struct {
	HasMetadata bool     `json:"has_metadata"`
	Item        *Item    `json:"item,omitempty"`
	People      []Person `json:"people,omitempty"`
	// Stale is set when the record came from an expired cache entry because
	// the refresh failed.
	Stale bool `json:"stale,omitempty"`
}

// SearchResult is one remote search hit, in upstream order.
type SearchResult struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Overview       string `json:"overview,omitempty"`
	ChannelID      string `json:"channel_id,omitempty"`
	Uploader       string `json:"uploader,omitempty"`
	ThumbnailURL   string `json:"thumbnail_url,omitempty"`
	ProductionYear int    `json:"production_year,omitempty"`
}
