package innertube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/cache"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/Digital-Shane/youtube-metadata/internal/provider"
	"github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"
)

const (
	providerName = "innertube"

	// DefaultTimeout bounds a single page lookup.
	DefaultTimeout = 10 * time.Second
)

type videoFunc func(ctx context.Context, id string) (*youtube.Video, error)

// Config holds the settings for the key-less page backend.
type Config struct {
	Store   *cache.Store
	Timeout time.Duration
	Logger  *logrus.Logger
}

// Provider reads video metadata through YouTube's player endpoint without
// an API key or external tool.
type Provider struct {
	store    *cache.Store
	timeout  time.Duration
	logger   *logrus.Logger
	getVideo videoFunc
}

// New creates a key-less page backend.
func New(cfg Config) *Provider {
	p := &Provider{
		store:   cfg.Store,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}
	client := &youtube.Client{HTTPClient: &http.Client{Timeout: p.timeout}}
	p.getVideo = client.GetVideoContext
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Description returns the provider description.
func (p *Provider) Description() string {
	return "Key-less YouTube page lookups (videos only)"
}

// Capabilities returns what this provider can do.
func (p *Provider) Capabilities() provider.ProviderCapabilities {
	return provider.ProviderCapabilities{
		IDKinds:     []media.IDKind{media.IDKindVideo},
		Priority:    25,
		FetchBudget: p.timeout,
	}
}

// Fetch looks up a video and stores it as a record.
func (p *Provider) Fetch(ctx context.Context, request provider.FetchRequest) error {
	if request.IDKind != media.IDKindVideo {
		return provider.NewError(providerName, provider.CodeUnsupported, nil,
			"page backend cannot fetch identifier kind %s", request.IDKind)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	video, err := p.getVideo(ctx, request.ID)
	if err != nil {
		return classify(ctx, request.ID, err)
	}

	if err := p.store.Write(request.ID, videoRecord(video)); err != nil {
		return provider.NewError(providerName, provider.CodeFetchFailed, err,
			"storing page metadata for %s: %v", request.ID, err)
	}
	p.logger.WithFields(logrus.Fields{"backend": providerName, "id": request.ID}).Debug("page fetch stored")
	return nil
}

func classify(ctx context.Context, id string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeTimeout,
			Message:  "timeout error for id: " + id,
			Retry:    true,
			Err:      err,
		}
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	switch {
	case errors.Is(err, youtube.ErrLoginRequired):
		return provider.NewError(providerName, provider.CodeAuthFailed, err, "%s requires sign-in", id)
	case errors.Is(err, youtube.ErrVideoPrivate), errors.As(err, &statusErr):
		return provider.NewError(providerName, provider.CodeNotFound, err, "%s is not available: %v", id, err)
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID), errors.Is(err, youtube.ErrVideoIDMinLength):
		return provider.NewError(providerName, provider.CodeNotFound, err, "invalid video id %q", id)
	}
	return &provider.ProviderError{
		Provider: providerName,
		Code:     provider.CodeFetchFailed,
		Message:  fmt.Sprintf("page lookup for %s failed: %v", id, err),
		Retry:    true,
		Err:      err,
	}
}

func videoRecord(video *youtube.Video) *metadata.Record {
	rec := &metadata.Record{
		ID:          video.ID,
		Title:       video.Title,
		Description: video.Description,
		Uploader:    video.Author,
		Channel:     video.Author,
		ChannelID:   video.ChannelID,
		Duration:    video.Duration.Seconds(),
		WebpageURL:  "https://www.youtube.com/watch?v=" + video.ID,
	}
	if !video.PublishDate.IsZero() {
		rec.UploadDate = video.PublishDate.UTC().Format(metadata.UploadDateLayout)
	}
	for _, th := range video.Thumbnails {
		if th.URL == "" {
			continue
		}
		rec.Thumbnails = append(rec.Thumbnails, metadata.Thumbnail{
			URL:    th.URL,
			Width:  int(th.Width),
			Height: int(th.Height),
		})
	}
	rec.Thumbnail = rec.BestThumbnail()
	return rec
}
