package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/Digital-Shane/treeview"
	"github.com/Digital-Shane/youtube-metadata/internal/core"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/Digital-Shane/youtube-metadata/internal/tui/progress"
	"github.com/Digital-Shane/youtube-metadata/internal/tui/theme"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var refreshKind string

var refreshCmd = &cobra.Command{
	Use:   "refresh [library]",
	Short: "Refresh cached metadata for a library folder",
	Long: `Walk a library folder and make sure every channel folder and video has
fresh metadata in the cache.

Top level folders are treated as channels. Every video file below them is
looked up by the YouTube id in its name. Entries younger than ten days are
served from the cache without contacting YouTube.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefreshCommand,
}

func runRefreshCommand(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	kind, ok := metadata.ParseKind(refreshKind)
	if !ok || !kind.IsVideo() {
		return fmt.Errorf("invalid --kind %q: use episode, movie or music_video", refreshKind)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	svc, err := current.newServices(ctx)
	if err != nil {
		return err
	}

	tree, err := scanLibrary(ctx, root)
	if err != nil {
		return err
	}
	items := core.CollectLookups(ctx, tree, kind)

	engine := core.NewMetadataEngine(core.MetadataEngineConfig{
		Looker:      svc.refresher,
		Items:       items,
		WorkerCount: current.cfg.WorkerCount,
	})

	var (
		summary core.MetadataSummary
		errs    []error
	)
	if noTUI {
		summary, errs = runEnginePlain(ctx, engine, current.logger)
	} else {
		model := progress.NewMetadataProgressModel(engine, svc.backends.Fetcher.Name(), theme.Default())
		final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
		if err != nil {
			return err
		}
		mm, ok := final.(*progress.MetadataProgressModel)
		if !ok {
			return fmt.Errorf("unexpected model type %T after refresh", final)
		}
		summary, errs = mm.Summary(), mm.Errors()
	}

	for _, err := range errs {
		current.logger.WithError(err).Warn("lookup failed")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d items: %d fresh, %d stale, %d missing, %d errors\n",
		summary.TotalItems, summary.FoundItems, summary.StaleItems, summary.MissingItems, len(errs))
	printFetchFailures(cmd.OutOrStdout(), svc.refresher.FetchStates())

	if summary.Canceled {
		return context.Canceled
	}
	return nil
}

// printFetchFailures lists the cache keys whose last fetch failed, sorted.
func printFetchFailures(w io.Writer, states map[string]core.FetchState) {
	var ids []string
	for id, state := range states {
		if state.LastError != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	slices.Sort(ids)
	fmt.Fprintln(w, "Failed fetches:")
	for _, id := range ids {
		state := states[id]
		fmt.Fprintf(w, "  %s (%d of %d attempts failed): %s\n",
			id, state.Failures, state.Attempts, runewidth.Truncate(state.LastError, 100, "..."))
	}
}

// runEnginePlain drives the engine without a terminal UI, logging each
// processed item.
func runEnginePlain(ctx context.Context, engine *core.MetadataEngine, logger *logrus.Logger) (core.MetadataSummary, []error) {
	processed := 0
	for evt := range engine.Start(ctx) {
		if evt.Summary.ProcessedItems == processed {
			continue
		}
		processed = evt.Summary.ProcessedItems
		entry := logger.WithField("item", evt.Summary.LastItem)
		if evt.Err != nil {
			entry = entry.WithError(evt.Err)
		}
		entry.Infof("processed %d/%d", evt.Summary.ProcessedItems, evt.Summary.TotalItems)
	}
	return engine.SummarySnapshot(), engine.Errors()
}

// scanLibrary builds the library tree, with the scan progress view unless
// --no-tui is set, and unwraps the root folder.
func scanLibrary(ctx context.Context, root string) (*treeview.Tree[treeview.FileInfo], error) {
	var (
		tree *treeview.Tree[treeview.FileInfo]
		err  error
	)
	if noTUI {
		tree, err = treeview.NewTreeFromFileSystem(ctx, root, false,
			treeview.WithMaxDepth[treeview.FileInfo](progress.DefaultScanDepth),
			treeview.WithFilterFunc(progress.DefaultScanFilter),
		)
	} else {
		model := progress.NewScanProgressModel(root, progress.ScanConfig{}, theme.Default())
		final, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()
		if runErr != nil {
			return nil, runErr
		}
		sm, ok := final.(*progress.ScanProgressModel)
		if !ok {
			return nil, fmt.Errorf("unexpected model type %T after scanning", final)
		}
		if !sm.Done() {
			return nil, context.Canceled
		}
		tree, err = sm.Tree(), sm.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("scanning %s produced no tree", root)
	}
	return treeview.NewTree(unwrapRoot(tree, root)), nil
}

// unwrapRoot returns the children of the library root node, when the tree
// has one, so channel folders sit at the top of the tree.
func unwrapRoot(t *treeview.Tree[treeview.FileInfo], root string) []*treeview.Node[treeview.FileInfo] {
	ns := t.Nodes()
	if len(ns) == 1 && ns[0].Data().IsDir() && samePath(ns[0].Data().Path, root) {
		children := ns[0].Children()
		cloned := make([]*treeview.Node[treeview.FileInfo], len(children))
		for i, child := range children {
			clone := treeview.NewNodeClone(child)
			clone.SetChildren(child.Children())
			cloned[i] = clone
		}
		return cloned
	}
	return ns
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func init() {
	refreshCmd.Flags().StringVar(&refreshKind, "kind", string(metadata.KindEpisode), "Kind videos are looked up as: episode, movie or music_video")
	rootCmd.AddCommand(refreshCmd)
}
