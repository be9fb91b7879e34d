package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	gocache "github.com/patrickmn/go-cache"
)

const (
	// FreshnessWindow is how long a cached record is served without refetching.
	FreshnessWindow = 10 * 24 * time.Hour

	// Namespace is the directory under the cache root that holds all records.
	Namespace = "youtubemetadata"

	// FileName is the per-id record file name.
	FileName = "ytvideo.info.json"

	// NamePrefix starts every key derived from a channel name. Video and
	// channel ids never contain a dot, so name keys cannot collide with them.
	NamePrefix = "name."

	memoTTL     = 10 * time.Minute
	memoCleanup = 5 * time.Minute
)

var (
	// ErrNotFound is returned by Read when no record exists for an id.
	ErrNotFound = fmt.Errorf("metadata cache entry %w", fs.ErrNotExist)

	// ErrInvalidKey is returned for ids that cannot be used as a directory name.
	ErrInvalidKey = errors.New("invalid cache key")
)

// PathFor returns the record path for id under cacheRoot.
func PathFor(cacheRoot, id string) string {
	return filepath.Join(cacheRoot, Namespace, id, FileName)
}

// ValidateKey rejects ids that would escape or collapse the per-id directory.
func ValidateKey(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, id)
	case strings.ContainsAny(id, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, id)
	}
	return nil
}

// KeyForName derives a cache key from a free-text channel name. A blank name
// yields an empty, invalid key.
func KeyForName(name string) string {
	key := strings.TrimSpace(name)
	key = strings.NewReplacer("/", "_", "\\", "_", "\x00", "").Replace(key)
	if key == "" {
		return ""
	}
	return NamePrefix + key
}

// Store is the on-disk record cache. It is safe for concurrent use; every
// write is a temp file plus rename so readers never observe partial records.
type Store struct {
	root string
	now  func() time.Time
	memo *gocache.Cache
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store rooted at cacheRoot.
func New(cacheRoot string, opts ...Option) *Store {
	s := &Store{
		root: cacheRoot,
		now:  time.Now,
		memo: gocache.New(memoTTL, memoCleanup),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the record path for id.
func (s *Store) Path(id string) string {
	return PathFor(s.root, id)
}

// Exists reports whether a record file exists for id, fresh or not.
func (s *Store) Exists(id string) bool {
	if ValidateKey(id) != nil {
		return false
	}
	info, err := os.Stat(s.Path(id))
	return err == nil && info.Mode().IsRegular()
}

// IsFresh reports whether id has a record written within FreshnessWindow.
// The boundary is inclusive.
func (s *Store) IsFresh(id string) bool {
	if ValidateKey(id) != nil {
		return false
	}
	return IsFresh(s.Path(id), s.now())
}

// IsFresh reports whether path exists and was modified no more than
// FreshnessWindow before now.
func IsFresh(path string, now time.Time) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return now.Sub(info.ModTime()) <= FreshnessWindow
}

// ModTime returns the last write time of id's record.
func (s *Store) ModTime(id string) (time.Time, error) {
	if err := ValidateKey(id); err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

type memoEntry struct {
	modTime time.Time
	size    int64
	record  *metadata.Record
}

// Read decodes the record stored for id. Missing records fail with
// ErrNotFound; corrupt records fail with a decode error.
func (s *Store) Read(id string) (*metadata.Record, error) {
	if err := ValidateKey(id); err != nil {
		return nil, err
	}
	path := s.Path(id)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if cached, ok := s.memo.Get(id); ok {
		entry := cached.(memoEntry)
		if entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
			rec := *entry.record
			return &rec, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	rec, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	s.memo.Set(id, memoEntry{modTime: info.ModTime(), size: info.Size(), record: rec}, gocache.DefaultExpiration)
	out := *rec
	return &out, nil
}

// Write stores rec under id, replacing any previous record atomically.
func (s *Store) Write(id string, rec *metadata.Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", id, err)
	}
	return s.write(id, data)
}

// WriteRaw stores an info JSON document as produced by yt-dlp. The document
// must decode as a record; it is stored byte for byte.
func (s *Store) WriteRaw(id string, data []byte) error {
	if _, err := decode(data); err != nil {
		return fmt.Errorf("invalid info json for %s: %w", id, err)
	}
	return s.write(id, data)
}

// Alias copies the record stored under from to the key to. Channel records
// resolved from a display name are stored under both the channel id and the
// name so later name lookups hit the cache.
func (s *Store) Alias(from, to string) error {
	if err := ValidateKey(from); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	data, err := os.ReadFile(s.Path(from))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, from)
		}
		return err
	}
	return s.write(to, data)
}

// Remove deletes the record for id. Removing a missing record is not an error.
func (s *Store) Remove(id string) error {
	if err := ValidateKey(id); err != nil {
		return err
	}
	s.memo.Delete(id)
	if err := os.RemoveAll(filepath.Dir(s.Path(id))); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

// Keys lists the ids with a record directory in the store, sorted. A store
// that was never written to has no keys.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, Namespace))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list cache: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && ValidateKey(e.Name()) == nil {
			keys = append(keys, e.Name())
		}
	}
	return keys, nil
}

// Prune removes every record last written more than maxAge ago, and record
// directories left without a record file. It returns the removed ids.
func (s *Store) Prune(maxAge time.Duration) ([]string, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-maxAge)
	var removed []string
	for _, id := range keys {
		modTime, err := s.ModTime(id)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return removed, err
		case !modTime.Before(cutoff):
			continue
		}
		if err := s.Remove(id); err != nil {
			return removed, err
		}
		removed = append(removed, id)
	}
	return removed, nil
}

func (s *Store) write(id string, data []byte) error {
	if err := ValidateKey(id); err != nil {
		return err
	}
	s.memo.Delete(id)
	if err := WriteFileAtomic(s.Path(id), data); err != nil {
		return fmt.Errorf("write record %s: %w", id, err)
	}
	return nil
}

func decode(data []byte) (*metadata.Record, error) {
	var rec metadata.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
