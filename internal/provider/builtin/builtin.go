// Package builtin registers the bundled metadata backends.
package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/cache"
	"github.com/Digital-Shane/youtube-metadata/internal/provider"
	"github.com/Digital-Shane/youtube-metadata/internal/provider/innertube"
	"github.com/Digital-Shane/youtube-metadata/internal/provider/ytapi"
	"github.com/Digital-Shane/youtube-metadata/internal/provider/ytdlp"
	"github.com/sirupsen/logrus"
)

// Options configures the bundled backends.
type Options struct {
	Store *cache.Store
	// Backend names the fetcher to use. Empty picks the highest priority one.
	Backend       string
	PluginsDir    string
	YtdlpPath     string
	FetchTimeout  time.Duration
	APIKey        string
	CourtesyDelay time.Duration
	Logger        *logrus.Logger
}

// Backends is the outcome of loading: the registry plus the selected
// fetcher and the searcher serving free-text lookups.
type Backends struct {
	Registry *provider.Registry
	Fetcher  provider.Fetcher
	Searcher provider.Searcher
}

// Load registers every bundled backend, enables the configured one and
// resolves the searcher. When the selected fetcher cannot search, yt-dlp is
// enabled for search as well.
func Load(ctx context.Context, opts Options) (*Backends, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("backends require a cache store")
	}
	registry := provider.NewRegistry()

	dlp := ytdlp.New(ytdlp.Config{
		Store:      opts.Store,
		PluginsDir: opts.PluginsDir,
		Executable: opts.YtdlpPath,
		Timeout:    opts.FetchTimeout,
		Logger:     opts.Logger,
	})
	api, err := ytapi.New(ctx, ytapi.Config{
		Store:         opts.Store,
		APIKey:        opts.APIKey,
		CourtesyDelay: opts.CourtesyDelay,
		Timeout:       opts.FetchTimeout,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API backend: %w", err)
	}
	page := innertube.New(innertube.Config{
		Store:   opts.Store,
		Timeout: opts.FetchTimeout,
		Logger:  opts.Logger,
	})

	for _, f := range []provider.Fetcher{dlp, api, page} {
		if err := registry.Register(f.Name(), f, f.Capabilities().Priority); err != nil {
			return nil, fmt.Errorf("failed to register %s backend: %w", f.Name(), err)
		}
	}

	return selectBackends(registry, opts.Backend, dlp.Name())
}

// selectBackends enables name (or every backend when name is empty) and
// picks the fetcher and searcher. fallbackSearch is enabled when the
// selected fetcher has no search.
func selectBackends(registry *provider.Registry, name, fallbackSearch string) (*Backends, error) {
	targets := []string{name}
	if name == "" {
		targets = registry.List()
	}
	for _, target := range targets {
		if err := registry.Enable(target); err != nil {
			return nil, fmt.Errorf("unknown backend %q: %w", target, err)
		}
	}

	fetcher, err := registry.Select(name)
	if err != nil {
		return nil, err
	}

	searcher, ok := registry.Searcher(fetcher.Name())
	if !ok {
		if err := registry.Enable(fallbackSearch); err != nil {
			return nil, fmt.Errorf("failed to enable search backend: %w", err)
		}
		searcher, _ = registry.Searcher(fallbackSearch)
	}

	return &Backends{Registry: registry, Fetcher: fetcher, Searcher: searcher}, nil
}
