package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/Digital-Shane/youtube-metadata/internal/library"
	"github.com/Digital-Shane/youtube-metadata/internal/provider/local"
	"github.com/spf13/cobra"
)

var reindexWatch bool

var reindexCmd = &cobra.Command{
	Use:   "reindex [library]",
	Short: "Number seasons and episodes of channel folders by name",
	Long: `Number the seasons of every channel folder, and the episodes inside each
season, in name order. yt-dlp output templates starting with the upload date
therefore number episodes in upload order.

Only items whose numbers change are written. With --watch the pass repeats on
the configured reindex interval until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReindexCommand,
}

func runReindexCommand(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("library %s is not a directory", root)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	repo := library.NewFSRepository(root, local.New(current.logger))
	reindexer := library.NewReindexer(repo, current.logger)
	out := cmd.OutOrStdout()

	if reindexWatch {
		scheduler := library.NewScheduler(reindexer, current.cfg.ReindexInterval, current.logger)
		scheduler.OnReport = func(report library.Report) {
			printReport(out, report)
			repo.Rescan()
		}
		current.logger.WithField("interval", current.cfg.ReindexInterval).Info("watching library")
		if err := scheduler.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	report, err := reindexer.Run(ctx, func(pct float64) {
		current.logger.Debugf("re-index %.0f%%", pct)
	})
	if err != nil {
		return err
	}
	printReport(out, report)
	return nil
}

func printReport(w io.Writer, report library.Report) {
	fmt.Fprintf(w, "%d series, %d seasons, %d episodes: %d updated, %d errors\n",
		report.Series, report.Seasons, report.Episodes, report.Updated, len(report.Errors))
}

func init() {
	reindexCmd.Flags().BoolVar(&reindexWatch, "watch", false, "Repeat on the configured reindex interval until interrupted")
	rootCmd.AddCommand(reindexCmd)
}
