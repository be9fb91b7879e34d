package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Digital-Shane/treeview"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/sirupsen/logrus"
)

const (
	providerName = "local"

	// seriesDepth bounds how far below a series folder sidecars are searched.
	seriesDepth = 4
)

// ErrNoSidecar is returned when a media file has no info sidecar.
var ErrNoSidecar = fmt.Errorf("info sidecar %w", fs.ErrNotExist)

type treeBuilderFunc func(context.Context, string, bool, ...treeview.Option[treeview.FileInfo]) (*treeview.Tree[treeview.FileInfo], error)

// Provider reads metadata that yt-dlp already wrote next to downloaded media.
type Provider struct {
	logger    *logrus.Logger
	buildTree treeBuilderFunc
}

// New creates a new local sidecar provider
func New(logger *logrus.Logger) *Provider {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Provider{
		logger:    logger,
		buildTree: treeview.NewTreeFromFileSystem,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// Lookup reads the info sidecar of a media file. A sidecar without a title
// gets one from the file name.
func (p *Provider) Lookup(mediaPath string) (*metadata.Record, error) {
	sidecar := media.SidecarPath(mediaPath)
	p.logger.WithField("path", sidecar).Debug("local sidecar lookup")
	rec, err := readRecord(sidecar)
	if err != nil {
		return nil, err
	}
	if rec.Title == "" {
		rec.Title = TitleFromPath(mediaPath, true)
	}
	return rec, nil
}

// HasChanged reports whether the sidecar of mediaPath was written after
// lastSaved.
func (p *Provider) HasChanged(mediaPath string, lastSaved time.Time) bool {
	info, err := os.Stat(media.SidecarPath(mediaPath))
	if err != nil {
		return false
	}
	return info.ModTime().After(lastSaved)
}

// SeriesSidecar returns the first info sidecar under dir whose path carries a
// channel id, shallowest first. An empty path means none was found.
func (p *Provider) SeriesSidecar(ctx context.Context, dir string) (string, error) {
	return p.findFirst(ctx, dir, seriesDepth, func(fi treeview.FileInfo) bool {
		return media.IsInfoJSON(fi.Name()) && media.ExtractChannelID(fi.Path) != ""
	})
}

// Series reads the channel sidecar found under dir.
func (p *Provider) Series(ctx context.Context, dir string) (*metadata.Record, error) {
	path, err := p.SeriesSidecar(ctx, dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, ErrNoSidecar
	}
	return readRecord(path)
}

// SeriesHasChanged reports whether the series sidecar under dir was written
// after lastSaved.
func (p *Provider) SeriesHasChanged(ctx context.Context, dir string, lastSaved time.Time) bool {
	path, err := p.SeriesSidecar(ctx, dir)
	if err != nil || path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.ModTime().After(lastSaved)
}

// Image returns a thumbnail next to mediaPath carrying the same video id. An
// empty path means none was found.
func (p *Provider) Image(ctx context.Context, mediaPath string) (string, error) {
	id := media.ExtractVideoID(filepath.Base(mediaPath))
	if id == "" {
		return "", nil
	}
	return p.findFirst(ctx, filepath.Dir(mediaPath), 1, func(fi treeview.FileInfo) bool {
		return media.IsThumbnail(fi.Name()) && media.ExtractVideoID(fi.Name()) == id
	})
}

// SeriesImage returns the first channel thumbnail under dir.
func (p *Provider) SeriesImage(ctx context.Context, dir string) (string, error) {
	return p.findFirst(ctx, dir, seriesDepth, func(fi treeview.FileInfo) bool {
		return media.IsThumbnail(fi.Name()) && media.ExtractChannelID(fi.Path) != ""
	})
}

// findFirst walks dir breadth first and returns the first regular file
// matching match.
func (p *Provider) findFirst(ctx context.Context, dir string, depth int, match func(treeview.FileInfo) bool) (string, error) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", nil
	}
	tree, err := p.buildTree(ctx, dir, false,
		treeview.WithMaxDepth[treeview.FileInfo](depth),
		treeview.WithFilterFunc(func(fi treeview.FileInfo) bool {
			if media.IsHidden(fi.Name()) {
				return false
			}
			return fi.IsDir() || fi.FileInfo.Mode().IsRegular()
		}),
	)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", dir, err)
	}

	for ni := range tree.BreadthFirst(ctx) {
		data := ni.Node.Data()
		if data.IsDir() {
			continue
		}
		if match(*data) {
			return data.Path, nil
		}
	}
	return "", ctx.Err()
}

func readRecord(path string) (*metadata.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSidecar, path)
		}
		return nil, err
	}
	var rec metadata.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &rec, nil
}
