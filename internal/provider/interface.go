package provider

import (
	"context"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
)

// Fetcher is implemented by every metadata backend. A successful Fetch
// leaves a record for the requested id in the cache store the backend was
// built with; it returns nothing else.
type Fetcher interface {
	// Identification
	Name() string
	Description() string

	// Capability discovery
	Capabilities() ProviderCapabilities

	// Data fetching
	Fetch(ctx context.Context, request FetchRequest) error
}

// Searcher is implemented by backends that can look up videos and channels
// by free text. Results keep upstream order.
type Searcher interface {
	SearchVideos(ctx context.Context, query string, limit int) ([]metadata.SearchResult, error)
	SearchChannels(ctx context.Context, query string, limit int) ([]metadata.SearchResult, error)
	// ResolveChannel maps a channel display name to its channel id.
	ResolveChannel(ctx context.Context, name string) (string, error)
}

// ProviderCapabilities describes what a backend can do
type ProviderCapabilities struct {
	IDKinds      []media.IDKind // Which identifier kinds can be fetched
	RequiresAuth bool           // Whether an API key is required
	// WarmsChannel is set when fetching a video is cheap to follow with a
	// fetch of its uploader's channel.
	WarmsChannel   bool
	SupportsSearch bool
	Priority       int // Default priority for this backend (higher = preferred)
	// FetchBudget is the longest one Fetch may take, pacing included. Zero
	// means the caller's own limit applies.
	FetchBudget time.Duration
}

// Supports reports whether kind is in the capability list.
func (c ProviderCapabilities) Supports(kind media.IDKind) bool {
	for _, k := range c.IDKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// FetchRequest names the identifier to fetch.
type FetchRequest struct {
	ID     string
	IDKind media.IDKind
}
