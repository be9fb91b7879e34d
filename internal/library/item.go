package library

import (
	"context"
	"strings"
)

// Kind is a host catalog entity kind.
type Kind string

const (
	KindSeries  Kind = "Series"
	KindSeason  Kind = "Season"
	KindEpisode Kind = "Episode"
)

// Item is the slice of a host catalog entity the re-indexer reads and writes.
type Item struct {
	ID                string
	Kind              Kind
	Name              string
	ParentID          string
	Path              string
	IndexNumber       int
	ParentIndexNumber int
	ProviderIDs       map[string]string
}

// HasProviderID reports whether the item carries a non-empty id under key.
func (i Item) HasProviderID(key string) bool {
	return strings.TrimSpace(i.ProviderIDs[key]) != ""
}

// Query selects catalog items. Empty fields do not filter.
type Query struct {
	Kind Kind
	// ParentID restricts results to direct children.
	ParentID string
	// AncestorID restricts results to any descendant.
	AncestorID string
	// ProviderID restricts results to items carrying this provider-id key.
	ProviderID string
}

// Matches reports whether item satisfies the query. ancestors lists the
// item's ancestor ids.
func (q Query) Matches(item Item, ancestors []string) bool {
	if q.Kind != "" && item.Kind != q.Kind {
		return false
	}
	if q.ParentID != "" && item.ParentID != q.ParentID {
		return false
	}
	if q.ProviderID != "" && !item.HasProviderID(q.ProviderID) {
		return false
	}
	if q.AncestorID != "" {
		for _, id := range ancestors {
			if id == q.AncestorID {
				return true
			}
		}
		return false
	}
	return true
}

// Repository is the host persistence layer the re-indexer works against.
type Repository interface {
	Items(ctx context.Context, query Query) ([]Item, error)
	UpdateItem(ctx context.Context, item Item) error
}
