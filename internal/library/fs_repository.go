package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Digital-Shane/treeview"
	"github.com/Digital-Shane/youtube-metadata/internal/cache"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
)

const (
	// StateDir is the hidden directory under a library root holding index state.
	StateDir = ".youtube-metadata"
	// StateFile is the index state file name inside StateDir.
	StateFile = "index.json"

	// series, season and episode levels, plus the root when the tree
	// builder includes it
	scanDepth = 4
)

// SeriesSource finds the channel record of a series folder without a
// channel id in its name.
type SeriesSource interface {
	Series(ctx context.Context, dir string) (*metadata.Record, error)
}

type treeBuilderFunc func(context.Context, string, bool, ...treeview.Option[treeview.FileInfo]) (*treeview.Tree[treeview.FileInfo], error)

// indexState is the persisted numbering of one item.
type indexState struct {
	IndexNumber       int `json:"index_number"`
	ParentIndexNumber int `json:"parent_index_number,omitempty"`
}

type stateFile struct {
	Version int                   `json:"version"`
	Items   map[string]indexState `json:"items"`
}

// FSRepository is a Repository over a library folder laid out as
// series/season/episode. Item ids are slash separated paths relative to the
// root. Index numbers live in StateDir/StateFile under the root.
type FSRepository struct {
	root      string
	series    SeriesSource
	buildTree treeBuilderFunc

	mu        sync.Mutex
	items     []Item
	ancestors map[string][]string
	state     map[string]indexState
	scanned   bool
}

// NewFSRepository creates a repository rooted at root. series may be nil.
func NewFSRepository(root string, series SeriesSource) *FSRepository {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &FSRepository{
		root:      root,
		series:    series,
		buildTree: treeview.NewTreeFromFileSystem,
	}
}

// StatePath returns the index state file path.
func (r *FSRepository) StatePath() string {
	return filepath.Join(r.root, StateDir, StateFile)
}

// Items returns the items matching query in folder order. The library is
// scanned on first use.
func (r *FSRepository) Items(ctx context.Context, query Query) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.scanned {
		if err := r.scanUnsafe(ctx); err != nil {
			return nil, err
		}
	}

	var out []Item
	for _, item := range r.items {
		if query.Matches(item, r.ancestors[item.ID]) {
			out = append(out, r.withState(item))
		}
	}
	return out, nil
}

// UpdateItem persists the index numbers of item.
func (r *FSRepository) UpdateItem(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		if err := r.loadStateUnsafe(); err != nil {
			return err
		}
	}
	next := make(map[string]indexState, len(r.state)+1)
	for k, v := range r.state {
		next[k] = v
	}
	next[item.ID] = indexState{IndexNumber: item.IndexNumber, ParentIndexNumber: item.ParentIndexNumber}

	data, err := json.MarshalIndent(stateFile{Version: 1, Items: next}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index state: %w", err)
	}
	if err := cache.WriteFileAtomic(r.StatePath(), data); err != nil {
		return fmt.Errorf("write index state: %w", err)
	}
	r.state = next
	return nil
}

// Rescan drops the scanned tree so the next query walks the folder again.
func (r *FSRepository) Rescan() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanned = false
}

func (r *FSRepository) withState(item Item) Item {
	if st, ok := r.state[item.ID]; ok {
		item.IndexNumber = st.IndexNumber
		item.ParentIndexNumber = st.ParentIndexNumber
	}
	return item
}

func (r *FSRepository) loadStateUnsafe() error {
	data, err := os.ReadFile(r.StatePath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.state = make(map[string]indexState)
			return nil
		}
		return fmt.Errorf("read index state: %w", err)
	}
	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("decode index state: %w", err)
	}
	if sf.Items == nil {
		sf.Items = make(map[string]indexState)
	}
	r.state = sf.Items
	return nil
}

func (r *FSRepository) scanUnsafe(ctx context.Context) error {
	if err := r.loadStateUnsafe(); err != nil {
		return err
	}

	tree, err := r.buildTree(ctx, r.root, false,
		treeview.WithMaxDepth[treeview.FileInfo](scanDepth),
		treeview.WithFilterFunc(func(fi treeview.FileInfo) bool {
			if media.IsHidden(fi.Name()) {
				return false
			}
			if fi.IsDir() {
				return true
			}
			return fi.FileInfo.Mode().IsRegular() && media.IsVideo(fi.Name())
		}),
	)
	if err != nil {
		return fmt.Errorf("scan library %s: %w", r.root, err)
	}

	items := make([]Item, 0)
	ancestors := make(map[string][]string)
	for ni := range tree.BreadthFirst(ctx) {
		data := ni.Node.Data()
		id := r.relID(data.Path)
		if id == "." {
			continue
		}
		item := Item{ID: id, Name: itemName(data.Name(), data.IsDir()), Path: data.Path}

		switch level := strings.Count(id, "/"); {
		case level == 0 && data.IsDir():
			item.Kind = KindSeries
			item.ProviderIDs = r.seriesProviderIDs(ctx, data.Path)
		case level == 1 && data.IsDir():
			item.Kind = KindSeason
		case level == 2 && !data.IsDir():
			item.Kind = KindEpisode
			if vid := media.ExtractVideoID(data.Name()); vid != "" {
				item.ProviderIDs = map[string]string{metadata.ProviderName: vid}
			}
		default:
			continue
		}

		if item.Kind != KindSeries {
			item.ParentID = path.Dir(id)
			ancestors[id] = append([]string{item.ParentID}, ancestors[item.ParentID]...)
		}
		items = append(items, item)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.items = items
	r.ancestors = ancestors
	r.scanned = true
	return nil
}

// seriesProviderIDs finds the channel id of a series folder, from its name
// first and its info sidecars second.
func (r *FSRepository) seriesProviderIDs(ctx context.Context, dir string) map[string]string {
	id := media.ExtractChannelID(filepath.Base(dir))
	if id == "" && r.series != nil {
		if rec, err := r.series.Series(ctx, dir); err == nil {
			id = rec.OwnerID()
		}
	}
	if id == "" {
		return nil
	}
	return map[string]string{metadata.ProviderName: id}
}

func (r *FSRepository) relID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// itemName is the display name the host would sort by: folder names as is,
// file names without extension.
func itemName(name string, isDir bool) string {
	if isDir {
		return name
	}
	return media.StripExtension(name)
}
