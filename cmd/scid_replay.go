/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/tick-ingestor/internal/bootstrap"
	"github.com/spf13/cobra"
)

// scidReplayCmd represents the scidReplay command
var scidReplayCmd = &cobra.Command{
	Use:   "scid-replay",
	Short: "Replay binary tick files into the ingestion server",
	Long: `Decodes one or more SierraChart .scid files from the last bookkept byte
offset and replays the records as raw_data messages against the ingestion
server. The per-symbol offset is advanced only after the frames have been
flushed, so a crashed replay resumes without re-reading committed records.`,
	Run: bootstrap.StartScidReplay,
}

func init() {
	rootCmd.AddCommand(scidReplayCmd)
	scidReplayCmd.PersistentFlags().StringSlice("symbols", []string{}, "symbols to replay, e.g. ES,NQ,CL")
}
