package ytapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/cache"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/Digital-Shane/youtube-metadata/internal/provider"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	providerName = "ytapi"

	// DefaultCourtesyDelay is waited before every API call.
	DefaultCourtesyDelay = 10 * time.Second
	// DefaultTimeout bounds one API request, not counting the courtesy delay.
	DefaultTimeout = 10 * time.Second

	// rateLimitSlack covers a wait on the sliding window limiter.
	rateLimitSlack = time.Second

	applicationName = "Youtube Metadata"
)

// Config holds the settings for the YouTube Data API backend.
type Config struct {
	Store  *cache.Store
	APIKey string
	// CourtesyDelay is waited before each call. Negative disables it, zero
	// uses DefaultCourtesyDelay.
	CourtesyDelay time.Duration
	// Timeout bounds each request once the delay has passed. Zero uses
	// DefaultTimeout.
	Timeout time.Duration
	Logger  *logrus.Logger
	// Endpoint overrides the API base URL.
	Endpoint string
}

// Provider fetches metadata from the YouTube Data API v3.
type Provider struct {
	store       *cache.Store
	service     *youtube.Service
	delay       time.Duration
	timeout     time.Duration
	rateLimiter *provider.RateLimiter
	logger      *logrus.Logger
}

// New creates an API backend. An empty API key is accepted; every call then
// fails with an auth error without touching the network.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{
		store:       cfg.Store,
		delay:       cfg.CourtesyDelay,
		timeout:     cfg.Timeout,
		rateLimiter: provider.NewRateLimiter(10, time.Second),
		logger:      cfg.Logger,
	}
	switch {
	case p.delay == 0:
		p.delay = DefaultCourtesyDelay
	case p.delay < 0:
		p.delay = 0
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}

	if cfg.APIKey == "" {
		return p, nil
	}

	opts := []option.ClientOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithUserAgent(applicationName),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	p.service = service
	return p, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Description returns the provider description.
func (p *Provider) Description() string {
	return "YouTube Data API v3 (requires an API key)"
}

// Capabilities returns what this provider can do.
func (p *Provider) Capabilities() provider.ProviderCapabilities {
	return provider.ProviderCapabilities{
		IDKinds:        []media.IDKind{media.IDKindVideo, media.IDKindChannel},
		RequiresAuth:   true,
		SupportsSearch: true,
		Priority:       50,
		FetchBudget:    p.delay + rateLimitSlack + p.timeout,
	}
}

// Fetch retrieves the snippet for the requested id and stores it as a record.
// The request timeout starts once the courtesy delay has passed.
func (p *Provider) Fetch(ctx context.Context, request provider.FetchRequest) error {
	if err := p.ready(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		rec *metadata.Record
		err error
	)
	switch request.IDKind {
	case media.IDKindVideo:
		rec, err = p.fetchVideo(ctx, request.ID)
	case media.IDKindChannel:
		rec, err = p.fetchChannel(ctx, request.ID)
	default:
		return provider.NewError(providerName, provider.CodeUnsupported, nil,
			"API backend cannot fetch identifier kind %s", request.IDKind)
	}
	if err != nil {
		return err
	}

	if err := p.store.Write(request.ID, rec); err != nil {
		return provider.NewError(providerName, provider.CodeFetchFailed, err,
			"storing API response for %s: %v", request.ID, err)
	}
	p.logger.WithFields(logrus.Fields{"backend": providerName, "id": request.ID}).Debug("api fetch stored")
	return nil
}

func (p *Provider) fetchVideo(ctx context.Context, id string) (*metadata.Record, error) {
	resp, err := p.service.Videos.List([]string{"snippet"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(ctx, id, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, provider.NewError(providerName, provider.CodeNotFound, nil, "video %s not found", id)
	}
	return videoRecord(resp.Items[0]), nil
}

func (p *Provider) fetchChannel(ctx context.Context, id string) (*metadata.Record, error) {
	resp, err := p.service.Channels.List([]string{"snippet"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(ctx, id, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, provider.NewError(providerName, provider.CodeNotFound, nil, "channel %s not found", id)
	}
	return channelRecord(resp.Items[0]), nil
}

// ready checks the key, then waits out the courtesy delay and rate limit.
func (p *Provider) ready(ctx context.Context) error {
	if p.service == nil {
		return provider.NewError(providerName, provider.CodeAuthFailed, nil, "no YouTube API key configured")
	}
	if err := provider.Sleep(ctx, p.delay); err != nil {
		return err
	}
	return p.rateLimiter.Wait(ctx)
}

// classify maps an API failure onto a provider error code.
func classify(ctx context.Context, id string, err error) error {
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &provider.ProviderError{
				Provider: providerName,
				Code:     provider.CodeTimeout,
				Message:  "YouTube API timed out for " + id,
				Retry:    true,
				Err:      err,
			}
		}
		return ctx.Err()
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeFetchFailed,
			Message:  fmt.Sprintf("YouTube API request for %s failed: %v", id, err),
			Retry:    true,
			Err:      err,
		}
	}

	reason := ""
	if len(apiErr.Errors) > 0 {
		reason = apiErr.Errors[0].Reason
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests, isQuotaReason(reason):
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeRateLimited,
			Message:    fmt.Sprintf("YouTube API quota exhausted (%s)", apiErr.Message),
			Retry:      true,
			RetryAfter: 3600,
			Err:        err,
		}
	case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden,
		apiErr.Code == http.StatusBadRequest && isKeyReason(reason, apiErr.Message):
		return provider.NewError(providerName, provider.CodeAuthFailed, err,
			"YouTube API rejected the key: %s", apiErr.Message)
	case apiErr.Code == http.StatusNotFound:
		return provider.NewError(providerName, provider.CodeNotFound, err, "%s not found: %s", id, apiErr.Message)
	}
	return &provider.ProviderError{
		Provider: providerName,
		Code:     provider.CodeFetchFailed,
		Message:  fmt.Sprintf("YouTube API error %d for %s: %s", apiErr.Code, id, apiErr.Message),
		Retry:    apiErr.Code >= 500,
		Err:      err,
	}
}

func isQuotaReason(reason string) bool {
	switch reason {
	case "quotaExceeded", "rateLimitExceeded", "dailyLimitExceeded", "userRateLimitExceeded":
		return true
	}
	return false
}

func isKeyReason(reason, message string) bool {
	return strings.Contains(strings.ToLower(reason), "key") ||
		strings.Contains(strings.ToLower(message), "api key")
}
