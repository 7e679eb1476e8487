package bootstrap

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/krobus00/tick-ingestor/internal/config"
	"github.com/krobus00/tick-ingestor/internal/scid"
	"github.com/krobus00/tick-ingestor/internal/service/replay"
	"github.com/krobus00/tick-ingestor/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartScidReplay(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	symbols, _ := cmd.Flags().GetStringSlice("symbols")
	if len(symbols) == 0 {
		logrus.Fatal("at least one symbol is required, e.g. --symbols ESH24,NQM24")
	}

	cfg := config.Env.Scid

	bookkeepingPath := cfg.BookkeepingPath
	if bookkeepingPath == "" {
		bookkeepingPath = "./commodity_settings.json"
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}

	serverAddr := cfg.ServerAddr
	if serverAddr == "" {
		serverAddr = "127.0.0.1:5555"
	}

	store := scid.NewBookkeepingStore(bookkeepingPath, dataDir)
	replayer := replay.New(serverAddr, store)

	err := replayer.ReplayAll(ctx, symbols)
	util.ContinueOrFatal(err)
}
