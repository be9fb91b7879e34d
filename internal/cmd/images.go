package cmd

import (
	"fmt"

	"github.com/Digital-Shane/youtube-metadata/internal/core"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/spf13/cobra"
)

var (
	imagesKind  string
	imagesLocal bool
)

var imagesCmd = &cobra.Command{
	Use:   "images <path or name>",
	Short: "List image candidates for a video or channel",
	Long: `List thumbnail URLs for a media file, channel folder or id, best first.

With --local the images stored next to the media are listed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runImagesCommand,
}

func runImagesCommand(cmd *cobra.Command, args []string) error {
	kind, ok := metadata.ParseKind(imagesKind)
	if !ok {
		return fmt.Errorf("invalid --kind %q", imagesKind)
	}
	info := core.LookupInfo{Path: args[0], Name: media.DisplayName(args[0]), Kind: kind}

	svc, err := current.newServices(cmd.Context())
	if err != nil {
		return err
	}

	if imagesLocal {
		paths, err := svc.refresher.LocalImages(cmd.Context(), info)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), paths)
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	}

	images, err := svc.refresher.RemoteImages(cmd.Context(), info)
	if err != nil {
		if len(images) == 0 {
			return err
		}
		current.logger.WithError(err).Warn("serving expired cache entry")
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), images)
	}
	for _, img := range images {
		if img.Width > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%dx%d  %s\n", img.Width, img.Height, img.URL)
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), img.URL)
	}
	return nil
}

func init() {
	imagesCmd.Flags().StringVar(&imagesKind, "kind", string(metadata.KindEpisode), "Item kind: episode, movie, music_video or series")
	imagesCmd.Flags().BoolVar(&imagesLocal, "local", false, "List images stored next to the media")
	imagesCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.AddCommand(imagesCmd)
}
