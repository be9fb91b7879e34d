package core

import (
	"context"

	"github.com/Digital-Shane/treeview"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
)

// CollectLookups returns one lookup per series folder and media file in a
// library tree. Folders at the top of the tree are series, so callers unwrap
// the library root node first; media files at any depth are looked up as
// videoKind. Series come first so channel
// records are warm before their videos are processed.
func CollectLookups(ctx context.Context, tree *treeview.Tree[treeview.FileInfo], videoKind metadata.Kind) []LookupInfo {
	if tree == nil {
		return nil
	}
	if !videoKind.IsVideo() {
		videoKind = metadata.KindEpisode
	}

	var series, videos []LookupInfo
	seen := make(map[string]bool)

	for ni := range tree.BreadthFirst(ctx) {
		data := ni.Node.Data()
		if data == nil || seen[data.Path] || media.IsHidden(data.Name()) {
			continue
		}

		switch {
		case data.IsDir() && ni.Depth == 0:
			seen[data.Path] = true
			series = append(series, LookupInfo{
				Path: data.Path,
				Name: data.Name(),
				Kind: metadata.KindSeries,
			})
		case !data.IsDir() && media.IsMedia(data.Name()):
			seen[data.Path] = true
			videos = append(videos, LookupInfo{
				Path: data.Path,
				Name: media.DisplayName(data.Path),
				Kind: videoKind,
			})
		}
	}

	return append(series, videos...)
}
