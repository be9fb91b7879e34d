package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/Digital-Shane/youtube-metadata/internal/log"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent sessions from the operation journal",
	Long: `Every command run writes a journal of the fetches, channel resolutions and
index changes it made. journal lists the most recent sessions, newest first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := log.ReadSessions(journalLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), sessions)
		}
		printSessions(cmd.OutOrStdout(), sessions)
		return nil
	},
}

// printSessions writes one line per session followed by its failed
// operations.
func printSessions(w io.Writer, sessions []*log.LogSession) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	for _, s := range sessions {
		md := s.Metadata
		command := runewidth.Truncate(strings.Join(md.CommandArgs, " "), 40, "...")
		fmt.Fprintf(w, "%s  %s  %d ok, %d failed\n",
			md.Timestamp.Format("2006-01-02 15:04:05"),
			runewidth.FillRight(command, 40),
			md.SuccessfulOps, md.FailedOps)
		for _, op := range s.Operations {
			if !op.Success {
				fmt.Fprintf(w, "    %s %s: %s\n", op.Type, op.Target, op.Error)
			}
		}
	}
}

func init() {
	journalCmd.Flags().IntVar(&journalLimit, "limit", 10, "Number of sessions to list (0 for all)")
	journalCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print sessions as JSON")
	rootCmd.AddCommand(journalCmd)
}
