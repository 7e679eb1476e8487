/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/tick-ingestor/internal/bootstrap"
	"github.com/spf13/cobra"
)

// ingestServerCmd represents the ingestServer command
var ingestServerCmd = &cobra.Command{
	Use:   "ingest-server",
	Short: "Run the tick ingestion server",
	Long: `Runs the TCP ingestion server and the batch writer.

The server accepts persistent connections from tick producers, frames
newline-delimited JSON messages, normalizes them into typed write operations
and enqueues them. A single batch writer drains the queue and applies
idempotent upserts to PostgreSQL in bounded transactions.`,
	Run: bootstrap.StartIngestServer,
}

func init() {
	rootCmd.AddCommand(ingestServerCmd)
}
