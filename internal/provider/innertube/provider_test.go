package innertube

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/cache"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/Digital-Shane/youtube-metadata/internal/provider"
	"github.com/google/go-cmp/cmp"
	"github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestProvider(t *testing.T, fn videoFunc) (*Provider, *cache.Store) {
	t.Helper()
	store := cache.New(t.TempDir())
	logger, _ := test.NewNullLogger()
	p := New(Config{Store: store, Timeout: time.Second, Logger: logger})
	p.getVideo = fn
	return p, store
}

func TestFetch_Video(t *testing.T) {
	t.Parallel()
	p, store := newTestProvider(t, func(ctx context.Context, id string) (*youtube.Video, error) {
		return &youtube.Video{
			ID:          id,
			Title:       "Never Gonna Give You Up",
			Description: "The official video",
			Author:      "Rick Astley",
			ChannelID:   "UCuAXFkgsw1L7xaCfnd5JJOw",
			Duration:    213 * time.Second,
			PublishDate: time.Date(2009, 10, 25, 6, 57, 33, 0, time.UTC),
			Thumbnails: youtube.Thumbnails{
				{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg", Width: 120, Height: 90},
				{URL: ""},
				{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", Width: 1280, Height: 720},
			},
		}, nil
	})

	err := p.Fetch(context.Background(), provider.FetchRequest{ID: "dQw4w9WgXcQ", IDKind: media.IDKindVideo})
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	got, err := store.Read("dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := &metadata.Record{
		ID:          "dQw4w9WgXcQ",
		Title:       "Never Gonna Give You Up",
		Description: "The official video",
		Uploader:    "Rick Astley",
		Channel:     "Rick Astley",
		ChannelID:   "UCuAXFkgsw1L7xaCfnd5JJOw",
		UploadDate:  "20091025",
		Duration:    213,
		Thumbnail:   "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
		Thumbnails: []metadata.Thumbnail{
			{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg", Width: 120, Height: 90},
			{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", Width: 1280, Height: 720},
		},
		WebpageURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stored record mismatch (-want +got):\n%s", diff)
	}
}

func TestFetch_ChannelUnsupported(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(t, func(ctx context.Context, id string) (*youtube.Video, error) {
		t.Fatal("getVideo should not be called for channels")
		return nil, nil
	})
	err := p.Fetch(context.Background(), provider.FetchRequest{ID: "UCuAXFkgsw1L7xaCfnd5JJOw", IDKind: media.IDKindChannel})
	if provider.Code(err) != provider.CodeUnsupported {
		t.Errorf("Fetch() error = %v, want UNSUPPORTED", err)
	}
}

func TestFetch_Errors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		err      error
		wantCode string
	}{
		"login required": {err: youtube.ErrLoginRequired, wantCode: provider.CodeAuthFailed},
		"private":        {err: youtube.ErrVideoPrivate, wantCode: provider.CodeNotFound},
		"playability":    {err: &youtube.ErrPlayabiltyStatus{Status: "ERROR", Reason: "Video unavailable"}, wantCode: provider.CodeNotFound},
		"network":        {err: errors.New("connection reset"), wantCode: provider.CodeFetchFailed},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p, store := newTestProvider(t, func(ctx context.Context, id string) (*youtube.Video, error) {
				return nil, tc.err
			})
			err := p.Fetch(context.Background(), provider.FetchRequest{ID: "dQw4w9WgXcQ", IDKind: media.IDKindVideo})
			if got := provider.Code(err); got != tc.wantCode {
				t.Errorf("Fetch() code = %q, want %q", got, tc.wantCode)
			}
			if store.Exists("dQw4w9WgXcQ") {
				t.Error("failed fetch left a cache entry")
			}
		})
	}
}
