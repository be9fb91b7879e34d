package metadata

import (
	"path/filepath"
	"strings"
	"time"
)

// UploadDateLayout is the yt-dlp upload_date format.
const UploadDateLayout = "20060102"

// DefaultSeasonName names a season whose folder gives no name.
const DefaultSeasonName = "Season 1"

// overviewLimit caps search result overviews, counted in runes.
const overviewLimit = 200

var epoch = time.Unix(0, 0).UTC()

// ParseUploadDate parses a yyyyMMdd date. Empty or malformed input yields
// the Unix epoch so a bad date never drops an otherwise usable record.
func ParseUploadDate(s string) time.Time {
	t, err := time.Parse(UploadDateLayout, strings.TrimSpace(s))
	if err != nil {
		return epoch
	}
	return t
}

// CreatePerson returns the uploader credited as director, keyed by channel id.
func CreatePerson(name, channelID string) Person {
	return Person{
		Name:        name,
		Type:        PersonDirector,
		ProviderIDs: map[string]string{ProviderName: channelID},
	}
}

// Transform projects rec onto kind. Unknown kinds yield an empty result, as
// do seasons, which carry no record; see ToSeason.
func Transform(kind Kind, rec *Record) *Result {
	switch kind {
	case KindMovie:
		return ToMovie(rec)
	case KindEpisode:
		return ToEpisode(rec)
	case KindMusicVideo:
		return ToMusicVideo(rec)
	case KindSeries:
		return ToSeries(rec)
	default:
		return &Result{}
	}
}

// ToMovie maps a record onto a movie.
func ToMovie(rec *Record) *Result {
	if rec == nil {
		return &Result{}
	}
	item := dated(KindMovie, rec)
	item.Name = rec.Title
	return withUploader(item, rec)
}

// ToEpisode maps a record onto an episode. The forced sort name starts with
// the upload date so episodes of a channel sort chronologically. Without a
// valid upload date it is the bare title.
func ToEpisode(rec *Record) *Result {
	if rec == nil {
		return &Result{}
	}
	item := dated(KindEpisode, rec)
	item.Name = rec.Title
	item.ForcedSortName = item.Name
	if date, err := time.Parse(UploadDateLayout, strings.TrimSpace(rec.UploadDate)); err == nil {
		item.ForcedSortName = date.Format(UploadDateLayout) + "-" + item.Name
	}
	item.IndexNumber = 1
	item.ParentIndexNumber = 1
	return withUploader(item, rec)
}

// ToMusicVideo maps a record onto a music video, preferring the track name.
func ToMusicVideo(rec *Record) *Result {
	if rec == nil {
		return &Result{}
	}
	item := dated(KindMusicVideo, rec)
	item.Name = rec.Title
	if rec.Track != "" {
		item.Name = rec.Track
	}
	if rec.Artist != "" {
		item.Artists = []string{rec.Artist}
	}
	item.Album = rec.Album
	return withUploader(item, rec)
}

// ToSeries maps a channel record onto a series.
func ToSeries(rec *Record) *Result {
	if rec == nil {
		return &Result{}
	}
	return &Result{
		HasMetadata: true,
		Item: &Item{
			Kind:        KindSeries,
			Name:        rec.DisplayUploader(),
			Overview:    rec.Description,
			ProviderIDs: map[string]string{ProviderName: rec.OwnerID()},
		},
	}
}

// ToSeason names a season after its folder. Seasons have no remote record;
// the index starts at 1 until the re-indexer numbers the series.
func ToSeason(dir string) *Result {
	name := strings.TrimSpace(filepath.Base(filepath.Clean(dir)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = DefaultSeasonName
	}
	return &Result{
		HasMetadata: true,
		Item: &Item{
			Kind:        KindSeason,
			Name:        name,
			IndexNumber: 1,
		},
	}
}

// ImagesFor returns the remote image candidates of a record, best first.
func ImagesFor(rec *Record) []Image {
	if rec == nil {
		return nil
	}
	images := make([]Image, 0, len(rec.Thumbnails)+1)
	seen := make(map[string]struct{}, len(rec.Thumbnails)+1)
	add := func(img Image) {
		if img.URL == "" {
			return
		}
		if _, ok := seen[img.URL]; ok {
			return
		}
		seen[img.URL] = struct{}{}
		images = append(images, img)
	}
	for i := len(rec.Thumbnails) - 1; i >= 0; i-- {
		th := rec.Thumbnails[i]
		add(Image{URL: th.URL, Width: th.Width, Height: th.Height})
	}
	add(Image{URL: rec.Thumbnail})
	return images
}

// ToSearchResult builds the search hit for a record found by id.
func ToSearchResult(rec *Record) SearchResult {
	if rec == nil {
		return SearchResult{}
	}
	res := SearchResult{
		ID:           rec.ID,
		Name:         rec.Title,
		Overview:     TruncateOverview(rec.Description),
		ChannelID:    rec.ChannelID,
		Uploader:     rec.DisplayUploader(),
		ThumbnailURL: rec.BestThumbnail(),
	}
	if rec.UploadDate != "" {
		if d := ParseUploadDate(rec.UploadDate); !d.Equal(epoch) {
			res.ProductionYear = d.Year()
		}
	}
	return res
}

// TruncateOverview shortens s to the search overview limit, marking the cut.
func TruncateOverview(s string) string {
	r := []rune(s)
	if len(r) <= overviewLimit {
		return s
	}
	return string(r[:overviewLimit]) + "..."
}

func dated(kind Kind, rec *Record) *Item {
	date := ParseUploadDate(rec.UploadDate)
	return &Item{
		Kind:           kind,
		Overview:       rec.Description,
		ProductionYear: date.Year(),
		PremiereDate:   &date,
	}
}

func withUploader(item *Item, rec *Record) *Result {
	return &Result{
		HasMetadata: true,
		Item:        item,
		People:      []Person{CreatePerson(rec.Uploader, rec.ChannelID)},
	}
}
