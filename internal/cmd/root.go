package cmd

import (
	"os"

	"github.com/Digital-Shane/youtube-metadata/internal/log"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "youtube-metadata",
	Short: "Cache and refresh YouTube metadata for a media library",
	Long: `youtube-metadata keeps a local cache of YouTube video and channel metadata
for libraries of yt-dlp downloads. Entries older than ten days are refreshed
through yt-dlp, the YouTube Data API or the innertube player endpoint.

It also re-numbers seasons and episodes of channel folders so they sort the
way they were uploaded.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

// execute runs the command line and writes the session journal, also when
// the command failed.
func execute() error {
	err := rootCmd.Execute()
	if endErr := log.EndSession(); endErr != nil && current != nil {
		current.logger.WithError(endErr).Warn("failed to write operation journal")
	}
	return err
}

var (
	configPath string
	noTUI      bool
	logLevel   string
)

func init() {
	// Global flags for all commands
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is $XDG_CONFIG_HOME/youtube-metadata/config.json)")
	rootCmd.PersistentFlags().BoolVar(&noTUI, "no-tui", false, "Print plain progress lines instead of the interactive progress view")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
}
