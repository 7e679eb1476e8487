package bootstrap

import (
	"context"
	"strings"

	"github.com/krobus00/tick-ingestor/internal/config"
	"github.com/krobus00/tick-ingestor/internal/infrastructure"
	"github.com/krobus00/tick-ingestor/internal/queue"
	"github.com/krobus00/tick-ingestor/internal/repository"
	"github.com/krobus00/tick-ingestor/internal/server"
	"github.com/krobus00/tick-ingestor/internal/service/ingest"
	"github.com/krobus00/tick-ingestor/internal/util"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartIngestServer(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbCfg := config.Env.Database["market_data"]

	// Schema must be confirmed before the listener starts accepting.
	err := infrastructure.EnsureDatabase(ctx, dbCfg)
	util.ContinueOrFatal(err)

	db, err := infrastructure.NewPostgresConnection(ctx, dbCfg)
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, dbCfg.PingInterval)

	err = infrastructure.EnsureTables(db, "market_data")
	util.ContinueOrFatal(err)

	writeQueue := queue.NewWriteQueue()

	rawRepo := repository.NewRawContractRepository(db)
	continuousRepo := repository.NewContinuousContractRepository(db)
	applier := ingest.NewTxApplier(db, rawRepo, continuousRepo)

	hooks := make([]ingest.PostCommitHook, 0)

	var natsCleanup operation
	if strings.TrimSpace(config.Env.NatsJetstream.URL) != "" {
		conn, js, err := infrastructure.NewJetstream()
		util.ContinueOrFatal(err)

		publisher := ingest.NewTickPublisher(js)
		err = publisher.EnsureStream(ctx)
		util.ContinueOrFatal(err)

		hooks = append(hooks, publisher)
		natsCleanup = func(ctx context.Context) error {
			return infrastructure.CloseJetstream(conn)
		}
	}

	var redisClient *redis.Client
	if cacheCfg, ok := config.Env.Redis["cache"]; ok && cacheCfg.CacheDSN != "" {
		redisClient, err = infrastructure.NewRedisClient(ctx, cacheCfg.CacheDSN)
		util.ContinueOrFatal(err)

		hooks = append(hooks, ingest.NewLatestPriceHook(repository.NewLatestPriceCache(redisClient)))
	}

	writer := ingest.NewWriter(writeQueue, applier, config.Env.Ingest, hooks...)

	writerDone := make(chan struct{})
	go func() {
		writer.Run(ctx)
		close(writerDone)
	}()

	srv := server.New(config.Env.Ingest, writeQueue)
	err = srv.Listen()
	util.ContinueOrFatal(err)

	go func() {
		if err := srv.Serve(ctx); err != nil {
			logrus.Errorf("ingest server stopped: %v", err)
		}
	}()

	ops := map[string]operation{
		"ingest listener": func(ctx context.Context) error {
			return srv.Shutdown()
		},
		"batch writer": func(ctx context.Context) error {
			writeQueue.Close()
			<-writerDone
			return nil
		},
		"database": func(ctx context.Context) error {
			// Cleanup ops run concurrently; the writer drains the queue
			// through this connection, so close it only once the drain
			// has finished.
			<-writerDone
			cancel()
			return db.Close()
		},
	}
	if natsCleanup != nil {
		ops["nats connection"] = natsCleanup
	}
	if redisClient != nil {
		ops["redis cache"] = func(ctx context.Context) error {
			return redisClient.Close()
		}
	}

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, ops)

	<-wait
}
