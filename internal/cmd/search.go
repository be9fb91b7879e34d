package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Digital-Shane/youtube-metadata/internal/core"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

var (
	searchLimit int
	jsonOutput  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search YouTube for videos or channels",
	Long: `Search YouTube through the configured backend.

A query carrying a video or channel id is answered from the cache, refreshing
the entry first when it is older than ten days.`,
}

var searchVideosCmd = &cobra.Command{
	Use:   "videos <query>",
	Short: "Search for videos",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args, metadata.KindEpisode)
	},
}

var searchChannelsCmd = &cobra.Command{
	Use:   "channels <query>",
	Short: "Search for channels",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args, metadata.KindSeries)
	},
}

var resolveChannelCmd = &cobra.Command{
	Use:   "resolve-channel <name>",
	Short: "Print the channel id for a channel name or handle",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolveChannel,
}

func runSearch(cmd *cobra.Command, args []string, kind metadata.Kind) error {
	svc, err := current.newServices(cmd.Context())
	if err != nil {
		return err
	}

	limit := searchLimit
	if limit <= 0 {
		limit = current.cfg.SearchLimit
	}
	results, err := svc.refresher.Search(cmd.Context(), core.SearchInfo{
		Name:  strings.Join(args, " "),
		Kind:  kind,
		Limit: limit,
	})
	if err != nil && len(results) == 0 {
		return err
	}
	if err != nil {
		current.logger.WithError(err).Warn("serving expired cache entry")
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), results)
	}
	printSearchResults(cmd.OutOrStdout(), results)
	return nil
}

func runResolveChannel(cmd *cobra.Command, args []string) error {
	svc, err := current.newServices(cmd.Context())
	if err != nil {
		return err
	}
	id, err := svc.refresher.ResolveChannel(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

// printSearchResults writes one line per result: id, year and a name
// truncated to fit a terminal line.
func printSearchResults(w io.Writer, results []metadata.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for _, r := range results {
		year := "    "
		if r.ProductionYear > 0 {
			year = fmt.Sprintf("%04d", r.ProductionYear)
		}
		name := runewidth.Truncate(r.Name, 60, "...")
		if r.Uploader != "" {
			name += " - " + runewidth.Truncate(r.Uploader, 30, "...")
		}
		fmt.Fprintf(w, "%-24s  %s  %s\n", r.ID, year, name)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	searchCmd.PersistentFlags().IntVar(&searchLimit, "limit", 0, "Maximum number of results (default from config)")
	searchCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	searchCmd.AddCommand(searchVideosCmd, searchChannelsCmd)
	rootCmd.AddCommand(searchCmd, resolveChannelCmd)
}
