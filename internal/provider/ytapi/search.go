package ytapi

import (
	"context"

	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/Digital-Shane/youtube-metadata/internal/provider"
)

// SearchVideos returns up to limit videos matching query in API order.
func (p *Provider) SearchVideos(ctx context.Context, query string, limit int) ([]metadata.SearchResult, error) {
	return p.search(ctx, query, "video", limit)
}

// SearchChannels returns up to limit channels matching query in API order.
func (p *Provider) SearchChannels(ctx context.Context, query string, limit int) ([]metadata.SearchResult, error) {
	results, err := p.search(ctx, query, "channel", limit)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].ChannelID == "" {
			results[i].ChannelID = results[i].ID
		}
	}
	return results, nil
}

// ResolveChannel returns the id of the best channel match for name.
func (p *Provider) ResolveChannel(ctx context.Context, name string) (string, error) {
	results, err := p.search(ctx, name, "channel", 1)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", provider.NewError(providerName, provider.CodeNotFound, nil, "no channel found for %q", name)
	}
	return results[0].ID, nil
}

func (p *Provider) search(ctx context.Context, query, kind string, limit int) ([]metadata.SearchResult, error) {
	if err := p.ready(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if limit <= 0 {
		limit = 1
	}

	resp, err := p.service.Search.List([]string{"snippet"}).
		Q(query).
		Type(kind).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(ctx, query, err)
	}

	results := make([]metadata.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if res, ok := searchResult(item); ok {
			results = append(results, res)
		}
	}
	return results, nil
}
