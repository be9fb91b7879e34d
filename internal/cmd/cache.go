package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/cache"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/spf13/cobra"
)

var pruneAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or prune the metadata cache",
}

var cacheInspectCmd = &cobra.Command{
	Use:   "inspect <id or channel name>",
	Short: "Show where and when a cache entry was written",
	Long: `Show the record path, write time and freshness of one cache entry.

Video and channel ids are used as they are. Anything else is treated as a
channel display name.`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheInspect,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cache entries",
	Long: `Remove every cache entry older than the ten day freshness window.

With --all every entry is removed.`,
	Args: cobra.NoArgs,
	RunE: runCachePrune,
}

// entryInfo describes one cache entry for inspect.
type entryInfo struct {
	Key     string    `json:"key"`
	Path    string    `json:"path"`
	Exists  bool      `json:"exists"`
	Written time.Time `json:"written"`
	Fresh   bool      `json:"fresh"`
}

// cacheKey maps a command argument onto the cache key it is stored under.
func cacheKey(arg string) string {
	arg = strings.TrimSpace(arg)
	if media.IsVideoID(arg) || media.IsChannelID(arg) || strings.HasPrefix(arg, cache.NamePrefix) {
		return arg
	}
	return cache.KeyForName(arg)
}

func inspectEntry(store *cache.Store, key string) (entryInfo, error) {
	if err := cache.ValidateKey(key); err != nil {
		return entryInfo{}, err
	}
	info := entryInfo{Key: key, Path: store.Path(key), Exists: store.Exists(key)}
	if !info.Exists {
		return info, nil
	}
	written, err := store.ModTime(key)
	if err != nil {
		return info, err
	}
	info.Written = written
	info.Fresh = store.IsFresh(key)
	return info, nil
}

func runCacheInspect(cmd *cobra.Command, args []string) error {
	store := cache.New(current.cfg.CacheDir)
	info, err := inspectEntry(store, cacheKey(args[0]))
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), info)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Key:     %s\n", info.Key)
	fmt.Fprintf(out, "Path:    %s\n", info.Path)
	if !info.Exists {
		fmt.Fprintln(out, "Status:  not cached")
		return nil
	}
	status := "expired"
	if info.Fresh {
		status = "fresh"
	}
	fmt.Fprintf(out, "Written: %s (%s ago)\n", info.Written.Format(time.RFC3339), time.Since(info.Written).Round(time.Minute))
	fmt.Fprintf(out, "Status:  %s\n", status)
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	store := cache.New(current.cfg.CacheDir)
	maxAge := cache.FreshnessWindow
	if pruneAll {
		maxAge = 0
	}
	removed, err := store.Prune(maxAge)
	for _, id := range removed {
		current.logger.WithField("id", id).Debug("cache entry removed")
	}
	if err != nil {
		return fmt.Errorf("prune %s: %w", store.Root(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries.\n", len(removed))
	return nil
}

func init() {
	cacheInspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the entry as JSON")
	cachePruneCmd.Flags().BoolVar(&pruneAll, "all", false, "Remove fresh entries too")
	cacheCmd.AddCommand(cacheInspectCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
