package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/smeta/internal/blob"
	"github.com/alexanderramin/smeta/internal/classify"
	"github.com/alexanderramin/smeta/internal/cli"
	"github.com/alexanderramin/smeta/internal/config"
	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/jobs"
	"github.com/alexanderramin/smeta/internal/llm"
	"github.com/alexanderramin/smeta/internal/logger"
	"github.com/alexanderramin/smeta/internal/repository"
	"github.com/alexanderramin/smeta/internal/service"
	"github.com/alexanderramin/smeta/internal/snapshot"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("SMETA_CONFIG"))
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	database, err := db.OpenDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	blobs, closeBlobs, err := openBlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeBlobs()

	// Close drains queued imports and snapshots before the process exits.
	queue := jobs.NewQueue(ctx, log, jobs.Options{
		Workers:     cfg.Jobs.Workers,
		QueueSize:   cfg.Jobs.QueueSize,
		MaxAttempts: cfg.Jobs.MaxAttempts,
		RetryDelay:  cfg.Jobs.RetryDelay,
	})
	defer func() {
		if err := queue.Close(); err != nil {
			log.Warn("job queue shutdown", "error", err)
		}
	}()

	// Wire repositories
	estimateRepo := repository.NewSQLiteEstimateRepo(database)
	sectionRepo := repository.NewSQLiteSectionRepo(database)
	itemRepo := repository.NewSQLiteLineItemRepo(database)
	sessionRepo := repository.NewSQLiteImportSessionRepo(database)
	normativeRepo := repository.NewSQLiteNormativeRepo(database)

	uow := db.NewSQLiteUnitOfWork(database)
	observer := service.NewLogUseCaseObserver(log)

	strategies := []classify.Strategy{
		classify.NewRegexStrategy(),
		classify.NewNormativeDBStrategy(normativeRepo),
	}
	llmCfg := cfg.LLMConfig()
	if llmCfg.Enabled {
		var llmObserver llm.Observer = llm.NoopObserver{}
		if llmCfg.LogCalls {
			llmObserver = llm.NewLogObserver(log)
		}
		strategies = append(strategies, classify.NewAIStrategy(
			llm.NewOllamaClient(llmCfg, llmObserver),
			classify.AIConfig{
				Enabled:           true,
				ChunkSize:         cfg.Classification.ChunkSize,
				DefaultConfidence: cfg.Classification.AIConfidence,
			},
			log,
		))
	}
	pipeline := classify.NewPipeline(log, strategies...)

	snapshots := service.NewSnapshotService(estimateRepo,
		snapshot.NewAssembler(service.SQLiteSources(database)), blobs, queue, log, observer)

	app := &cli.App{
		Estimates: service.NewEstimateService(estimateRepo, blobs, uow, log),
		Structure: service.NewStructureService(sectionRepo, uow, pipeline, snapshots),
		Imports: service.NewImportService(estimateRepo, sessionRepo, itemRepo, uow, pipeline, queue, snapshots, log,
			service.ImportConfig{ChunkSize: cfg.Classification.ChunkSize}),
		Snapshots:  snapshots,
		Normatives: service.NewNormativeService(uow),
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

// openBlobStore builds the configured snapshot backend behind a read cache.
// A zero cache size disables the cache.
func openBlobStore(ctx context.Context, cfg config.Storage) (blob.Store, func(), error) {
	var (
		store   blob.Store
		closers []func()
	)
	switch cfg.Backend {
	case "gcs":
		gcs, err := blob.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredFile)
		if err != nil {
			return nil, nil, fmt.Errorf("opening gcs bucket %q: %w", cfg.GCSBucket, err)
		}
		store = gcs
		closers = append(closers, func() { _ = gcs.Close() })
	default:
		local, err := blob.NewLocalStore(cfg.LocalDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening snapshot dir: %w", err)
		}
		store = local
	}

	if cfg.CacheMaxBytes > 0 {
		cached, err := blob.NewCachedStore(store, cfg.CacheMaxBytes)
		if err != nil {
			return nil, nil, err
		}
		store = cached
		closers = append([]func(){cached.Close}, closers...)
	}

	return store, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
