package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/cache"
	"github.com/Digital-Shane/youtube-metadata/internal/log"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/Digital-Shane/youtube-metadata/internal/provider"
	"github.com/mhmtszr/concurrent-swiss-map"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultFetchTimeout bounds a detached fetch when neither the config nor
// the backend names a limit.
const DefaultFetchTimeout = 2 * time.Minute

// ErrNoSearcher is returned when a lookup needs search and the configured
// backend cannot search.
var ErrNoSearcher = errors.New("configured backend does not support search")

// RefresherConfig wires a Refresher. Store and Fetcher are required.
type RefresherConfig struct {
	Store    *cache.Store
	Fetcher  provider.Fetcher
	Searcher provider.Searcher
	Local    LocalSource
	Prober   RuntimeProber
	Logger   *logrus.Logger

	DisableLocalMetadata bool
	ProbeRuntime         bool
	// FetchTimeout is the least time a detached fetch gets. Backends whose
	// FetchBudget is larger get their budget instead.
	FetchTimeout time.Duration
}

// Refresher serves metadata from the cache, refreshing stale entries through
// the configured backend. At most one fetch per cache key is in flight; all
// concurrent callers for that key share its outcome.
type Refresher struct {
	store    *cache.Store
	fetcher  provider.Fetcher
	searcher provider.Searcher
	local    LocalSource
	prober   RuntimeProber
	logger   *logrus.Logger

	disableLocal  bool
	probeRuntime  bool
	fetchTimeout  time.Duration
	searchTimeout time.Duration

	group    singleflight.Group
	states   *csmap.CsMap[string, FetchState]
	flights  *csmap.CsMap[string, flight]
	sidecars *csmap.CsMap[string, sidecarRead]
}

// flight is the outcome of the last finished fetch of a key.
type flight struct {
	done time.Time
	err  error
}

// sidecarRead is a decoded local sidecar and the time reading it began.
type sidecarRead struct {
	record *metadata.Record
	readAt time.Time
}

// NewRefresher validates cfg and builds a Refresher.
func NewRefresher(cfg RefresherConfig) (*Refresher, error) {
	if cfg.Store == nil {
		return nil, errors.New("refresher requires a cache store")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("refresher requires a fetcher")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	searchTimeout := timeout
	if f, ok := cfg.Searcher.(provider.Fetcher); ok {
		searchTimeout = max(timeout, f.Capabilities().FetchBudget)
	}
	return &Refresher{
		store:         cfg.Store,
		fetcher:       cfg.Fetcher,
		searcher:      cfg.Searcher,
		local:         cfg.Local,
		prober:        cfg.Prober,
		logger:        logger,
		disableLocal:  cfg.DisableLocalMetadata,
		probeRuntime:  cfg.ProbeRuntime,
		fetchTimeout:  max(timeout, cfg.Fetcher.Capabilities().FetchBudget),
		searchTimeout: searchTimeout,
		states:        csmap.Create[string, FetchState](),
		flights:       csmap.Create[string, flight](),
		sidecars:      csmap.Create[string, sidecarRead](),
	}, nil
}

// GetMetadata returns the metadata for a host item. Items without an
// identifier yield a result with HasMetadata false and no error. When a
// refresh fails but an expired entry exists, the expired entry is returned
// with Stale set together with the refresh error.
func (r *Refresher) GetMetadata(ctx context.Context, info LookupInfo) (*metadata.Result, error) {
	switch info.Kind {
	case metadata.KindSeries:
		return r.seriesMetadata(ctx, info)
	case metadata.KindSeason:
		return metadata.ToSeason(info.Path), nil
	}
	if !info.Kind.IsVideo() {
		return nil, fmt.Errorf("unsupported item kind %q", info.Kind)
	}

	if rec := r.localRecord(info.Path); rec != nil {
		return r.finish(ctx, info, rec), nil
	}

	id, kind := identify(info)
	if id == "" {
		return &metadata.Result{}, nil
	}

	out, err := r.ensure(ctx, id, kind)
	if out.record == nil {
		return emptyResult(err)
	}

	if out.fetched && info.Kind == metadata.KindEpisode && kind == media.IDKindVideo {
		r.warmChannel(ctx, out.record.ChannelID)
	}

	result := r.finish(ctx, info, out.record)
	result.Stale = out.stale
	return result, err
}

// emptyResult is the answer for a lookup that produced no record: the error
// when there was one, otherwise a result without metadata.
func emptyResult(err error) (*metadata.Result, error) {
	if err != nil {
		return nil, err
	}
	return &metadata.Result{}, nil
}

// localRecord returns the sidecar record for a media path, or nil. A sidecar
// is decoded again only once it has been rewritten since the last read.
func (r *Refresher) localRecord(path string) *metadata.Record {
	if r.disableLocal || r.local == nil || path == "" {
		return nil
	}
	if last, ok := r.sidecars.Load(path); ok && !r.local.HasChanged(path, last.readAt) {
		return last.copyRecord()
	}
	readAt := time.Now()
	rec, err := r.local.Lookup(path)
	if err != nil {
		r.sidecars.Delete(path)
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.WithError(err).WithField("path", path).Warn("unreadable info sidecar")
		}
		return nil
	}
	read := sidecarRead{record: rec, readAt: readAt}
	r.sidecars.Store(path, read)
	return read.copyRecord()
}

// localSeries is localRecord for the channel sidecar of a series folder.
func (r *Refresher) localSeries(ctx context.Context, dir string) (*metadata.Record, error) {
	if last, ok := r.sidecars.Load(dir); ok && !r.local.SeriesHasChanged(ctx, dir, last.readAt) {
		return last.copyRecord(), nil
	}
	readAt := time.Now()
	rec, err := r.local.Series(ctx, dir)
	if err != nil {
		r.sidecars.Delete(dir)
		return nil, err
	}
	read := sidecarRead{record: rec, readAt: readAt}
	r.sidecars.Store(dir, read)
	return read.copyRecord(), nil
}

func (s sidecarRead) copyRecord() *metadata.Record {
	rec := *s.record
	return &rec
}

func (r *Refresher) seriesMetadata(ctx context.Context, info LookupInfo) (*metadata.Result, error) {
	if !r.disableLocal && r.local != nil && info.Path != "" {
		rec, err := r.localSeries(ctx, info.Path)
		switch {
		case err == nil:
			return metadata.ToSeries(rec), nil
		case !errors.Is(err, fs.ErrNotExist):
			r.logger.WithError(err).WithField("path", info.Path).Warn("unreadable series sidecar")
		}
	}

	var (
		out ensured
		err error
	)
	if id, _ := identify(info); id != "" {
		out, err = r.ensure(ctx, id, media.IDKindChannel)
	} else {
		out, err = r.ensureByName(ctx, info.Name)
	}
	if out.record == nil {
		return emptyResult(err)
	}
	result := metadata.ToSeries(out.record)
	result.Stale = out.stale
	return result, err
}

// ensureByName serves a series known only by display name. A missing or
// expired name entry is refreshed by resolving the name to a channel id,
// fetching that channel and aliasing it under the name.
func (r *Refresher) ensureByName(ctx context.Context, name string) (ensured, error) {
	key := cache.KeyForName(name)
	if cache.ValidateKey(key) != nil {
		return ensured{}, nil
	}
	if r.store.IsFresh(key) {
		if rec, err := r.store.Read(key); err == nil {
			return ensured{record: rec}, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return ensured{}, err
	}

	id, err := r.resolveChannel(ctx, name)
	if err != nil {
		return r.staleFallback(key, err)
	}
	out, err := r.ensure(ctx, id, media.IDKindChannel)
	if out.record == nil {
		if err == nil {
			return ensured{}, nil
		}
		return r.staleFallback(key, err)
	}
	if !out.stale {
		aliasErr := r.store.Alias(id, key)
		log.LogAlias(id, key, aliasErr)
		if aliasErr != nil {
			r.logger.WithError(aliasErr).WithFields(logrus.Fields{"id": id, "name": name}).Warn("could not alias channel record")
		}
	}
	return out, err
}

// ResolveChannel maps a channel display name or handle to its channel id.
// Names that already carry a channel id are answered without a search.
func (r *Refresher) ResolveChannel(ctx context.Context, name string) (string, error) {
	if id := media.ExtractChannelID(name); id != "" {
		return id, nil
	}
	if media.IsChannelID(strings.TrimSpace(name)) {
		return strings.TrimSpace(name), nil
	}
	return r.resolveChannel(ctx, strings.TrimSpace(name))
}

func (r *Refresher) resolveChannel(ctx context.Context, name string) (string, error) {
	if r.searcher == nil {
		return "", ErrNoSearcher
	}
	ch := r.group.DoChan("resolve\x00"+name, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.searchTimeout)
		defer cancel()
		id, err := r.searcher.ResolveChannel(fctx, name)
		log.LogResolve(name, id, err)
		return id, err
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// staleFallback returns the expired entry for key, if any, along with err.
func (r *Refresher) staleFallback(key string, err error) (ensured, error) {
	if rec, readErr := r.store.Read(key); readErr == nil {
		return ensured{record: rec, stale: true}, err
	}
	return ensured{}, err
}

// ensured is the outcome of serving one cache key.
type ensured struct {
	record  *metadata.Record
	fetched bool
	stale   bool
}

// ensure returns the record for id, fetching it first when it is missing or
// older than the freshness window.
func (r *Refresher) ensure(ctx context.Context, id string, kind media.IDKind) (ensured, error) {
	seenAt := time.Now()
	if r.store.IsFresh(id) {
		rec, err := r.store.Read(id)
		if err == nil {
			return ensured{record: rec}, nil
		}
		r.logger.WithError(err).WithField("id", id).Warn("fresh cache entry unreadable, refetching")
	}

	if err := ctx.Err(); err != nil {
		return ensured{}, err
	}
	fetchErr := r.fetch(ctx, id, kind, seenAt)
	if err := ctx.Err(); err != nil {
		return ensured{}, err
	}

	if fetchErr != nil {
		return r.staleFallback(id, fetchErr)
	}

	rec, err := r.store.Read(id)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return ensured{fetched: true}, nil
		}
		return ensured{fetched: true}, err
	}
	return ensured{record: rec, fetched: true}, nil
}

// fetch runs the backend for id through the single-flight group. The fetch
// itself is detached from ctx and bounded by the fetch timeout; ctx only
// stops this caller from waiting.
//
// seenAt is when the caller found the entry stale. A flight that finished
// after seenAt already answered this caller, even when the caller reaches
// the group only after that flight left it, so its outcome is reused.
func (r *Refresher) fetch(ctx context.Context, id string, kind media.IDKind, seenAt time.Time) error {
	ch := r.group.DoChan(id, func() (any, error) {
		if last, ok := r.flights.Load(id); ok && last.done.After(seenAt) {
			return nil, last.err
		}
		if r.freshAndReadable(id) {
			return nil, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()

		start := time.Now()
		err := r.fetcher.Fetch(fctx, provider.FetchRequest{ID: id, IDKind: kind})
		r.flights.Store(id, flight{done: time.Now(), err: err})
		r.recordFetch(id, start, err)
		log.LogFetch(id, r.fetcher.Name(), err)
		r.logFetch(id, kind, time.Since(start), err)
		return nil, err
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (r *Refresher) freshAndReadable(id string) bool {
	if !r.store.IsFresh(id) {
		return false
	}
	_, err := r.store.Read(id)
	return err == nil
}

func (r *Refresher) recordFetch(id string, at time.Time, err error) {
	state, _ := r.states.Load(id)
	state.Attempts++
	state.LastFetch = at
	state.LastError = ""
	if err != nil {
		state.Failures++
		state.LastError = err.Error()
	}
	r.states.Store(id, state)
}

func (r *Refresher) logFetch(id string, kind media.IDKind, took time.Duration, err error) {
	entry := r.logger.WithFields(logrus.Fields{
		"id":      id,
		"kind":    kind.String(),
		"backend": r.fetcher.Name(),
		"took":    took.Round(time.Millisecond).String(),
	})
	switch {
	case err == nil:
		entry.Info("metadata fetched")
	case provider.IsAuth(err):
		entry.WithError(err).Error("backend rejected credentials, check the API key or cookie file")
	default:
		entry.WithError(err).Warn("metadata refresh failed, will retry on next lookup")
	}
}

// warmChannel refreshes the uploader's channel entry after an episode fetch
// when the backend supports it and the entry is stale. Failures are logged
// and otherwise ignored.
func (r *Refresher) warmChannel(ctx context.Context, channelID string) {
	if !r.fetcher.Capabilities().WarmsChannel || !media.IsChannelID(channelID) {
		return
	}
	seenAt := time.Now()
	if r.store.IsFresh(channelID) {
		return
	}
	if err := r.fetch(ctx, channelID, media.IDKindChannel, seenAt); err != nil {
		r.logger.WithError(err).WithField("id", channelID).Debug("channel warm-up failed")
	}
}

// finish projects rec onto the requested kind and fills the runtime.
func (r *Refresher) finish(ctx context.Context, info LookupInfo, rec *metadata.Record) *metadata.Result {
	result := metadata.Transform(info.Kind, rec)
	if result.Item == nil || !info.Kind.IsVideo() {
		return result
	}
	if rec.Duration > 0 {
		result.Item.RunTime = time.Duration(rec.Duration * float64(time.Second))
	}
	if r.probeRuntime && r.prober != nil && info.Path != "" {
		runtime, err := r.prober.Runtime(ctx, info.Path)
		switch {
		case err != nil:
			r.logger.WithError(err).WithField("path", info.Path).Debug("runtime probe failed")
		case runtime > 0:
			result.Item.RunTime = runtime
		}
	}
	return result
}

// FetchStates returns a snapshot of per-key fetch outcomes.
func (r *Refresher) FetchStates() map[string]FetchState {
	out := make(map[string]FetchState, r.states.Count())
	r.states.Range(func(key string, value FetchState) bool {
		out[key] = value
		return false
	})
	return out
}

// Search looks up candidates for a host search. Names carrying an id are
// served from the cache (refreshing if stale); other names go to the
// backend's free-text search.
func (r *Refresher) Search(ctx context.Context, info SearchInfo) ([]metadata.SearchResult, error) {
	lookup := LookupInfo{Name: info.Name, Kind: info.Kind}
	if id, kind := identify(lookup); id != "" {
		out, err := r.ensure(ctx, id, kind)
		if out.record == nil {
			return nil, err
		}
		return []metadata.SearchResult{metadata.ToSearchResult(out.record)}, err
	}

	query := strings.TrimSpace(info.Name)
	if query == "" {
		return nil, nil
	}
	if r.searcher == nil {
		return nil, ErrNoSearcher
	}
	if info.Kind == metadata.KindSeries {
		return r.searcher.SearchChannels(ctx, query, info.Limit)
	}
	return r.searcher.SearchVideos(ctx, query, info.Limit)
}

// RemoteImages returns remote image candidates for a host item, best first.
func (r *Refresher) RemoteImages(ctx context.Context, info LookupInfo) ([]metadata.Image, error) {
	var (
		out ensured
		err error
	)
	id, kind := identify(info)
	switch {
	case id != "":
		out, err = r.ensure(ctx, id, kind)
	case info.Kind == metadata.KindSeries:
		out, err = r.ensureByName(ctx, info.Name)
	default:
		return nil, nil
	}
	return metadata.ImagesFor(out.record), err
}

// LocalImages returns image files stored next to the item, if any.
func (r *Refresher) LocalImages(ctx context.Context, info LookupInfo) ([]string, error) {
	if r.local == nil || info.Path == "" {
		return nil, nil
	}
	var (
		path string
		err  error
	)
	if info.Kind == metadata.KindSeries {
		path, err = r.local.SeriesImage(ctx, info.Path)
	} else {
		path, err = r.local.Image(ctx, info.Path)
	}
	if err != nil || path == "" {
		return nil, err
	}
	return []string{path}, nil
}
