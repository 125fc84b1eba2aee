package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/deploywatch/scanner-qualys/pkg/etc"
	"github.com/deploywatch/scanner-qualys/pkg/ext"
	"github.com/deploywatch/scanner-qualys/pkg/http/api"
	v1 "github.com/deploywatch/scanner-qualys/pkg/http/api/v1"
	"github.com/deploywatch/scanner-qualys/pkg/metrics"
	"github.com/deploywatch/scanner-qualys/pkg/persistence"
	redisstore "github.com/deploywatch/scanner-qualys/pkg/persistence/redis"
	rethinkstore "github.com/deploywatch/scanner-qualys/pkg/persistence/rethinkdb"
	"github.com/deploywatch/scanner-qualys/pkg/qscanner"
	"github.com/deploywatch/scanner-qualys/pkg/queue"
	"github.com/deploywatch/scanner-qualys/pkg/redisx"
	"github.com/deploywatch/scanner-qualys/pkg/scan"
)

var (
	// Default wise GoReleaser sets three ldflags:
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: etc.GetLogLevel(),
	}))
	slog.SetDefault(logger)

	info := etc.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	if err := run(info); err != nil {
		slog.Error("Error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(info etc.BuildInfo) error {
	slog.Info("Starting scanner-qualys",
		slog.String("version", info.Version),
		slog.String("commit", info.Commit),
		slog.String("built_at", info.Date),
	)

	config, err := etc.GetConfig()
	if err != nil {
		return fmt.Errorf("getting config: %w", err)
	}
	if err = etc.Check(config); err != nil {
		return fmt.Errorf("checking config: %w", err)
	}

	// The job queue always runs on redis; only the result store is
	// switchable.
	rdb, err := redisx.NewClient(config.RedisPool)
	if err != nil {
		return fmt.Errorf("constructing redis client: %w", err)
	}

	store, err := setupStore(config, rdb)
	if err != nil {
		return err
	}

	wrapper := qscanner.NewWrapper(config.Scanner, ext.DefaultAmbassador)
	clock := &scan.SystemClock{}

	controller := scan.NewController(config, store, wrapper,
		scan.NewNormalizer(),
		scan.NewCache(store, clock),
		scan.NewLogNotifier(),
		clock,
		wrapper.Version(),
	)

	enqueuer := queue.NewEnqueuer(config.JobQueue, rdb)
	worker := queue.NewWorker(config.JobQueue, rdb, controller)

	apiServer, err := api.NewServer(config.API, v1.NewAPIHandler(enqueuer, store))
	if err != nil {
		return fmt.Errorf("constructing API server: %w", err)
	}
	metricsServer := metrics.NewServer(config.Metrics)

	ctx, cancel := context.WithCancel(context.Background())

	shutdownComplete := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		captured := <-sigint
		slog.Debug("Trapped os signal", slog.String("signal", captured.String()))

		apiServer.Shutdown()
		metricsServer.Shutdown(context.Background())
		worker.Stop()
		cancel()

		close(shutdownComplete)
	}()

	worker.Start(ctx)
	metricsServer.ListenAndServe()
	apiServer.ListenAndServe()

	<-shutdownComplete
	return nil
}

func setupStore(config etc.Config, rdb *redis.Client) (persistence.Store, error) {
	switch strings.ToLower(config.Store.Type) {
	case "redis":
		return redisstore.NewStore(config.RedisStore, rdb), nil
	case "rethinkdb":
		db, err := etc.GetRethinkdbConnection(config.Rethink)
		if err != nil {
			return nil, fmt.Errorf("connecting to rethinkdb: %w", err)
		}
		return rethinkstore.NewStore(db, config.Rethink), nil
	}
	return nil, fmt.Errorf("invalid store type %s", config.Store.Type)
}
