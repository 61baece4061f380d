package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/LoanDesk/internal/config"
	"github.com/dharsanguruparan/LoanDesk/internal/database"
	"github.com/dharsanguruparan/LoanDesk/internal/notify"
	"github.com/dharsanguruparan/LoanDesk/internal/policy"
	"github.com/dharsanguruparan/LoanDesk/internal/repository"
	"github.com/dharsanguruparan/LoanDesk/internal/s3storage"
	"github.com/dharsanguruparan/LoanDesk/internal/sqlstore"
	"github.com/dharsanguruparan/LoanDesk/internal/stages"
	"github.com/dharsanguruparan/LoanDesk/internal/storage"
)

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Printf("using postgres request store")
		return repository.NewRequestRepository(pool), pool.Close, nil
	case config.StoreSQLite:
		store, err := sqlstore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("using sqlite request store at %s", cfg.SQLitePath)
		return store, func() { _ = store.Close() }, nil
	default:
		log.Printf("using in-memory request store")
		return storage.NewMemoryStore(), func() {}, nil
	}
}

func loadPolicy(cfg *config.Config) (*policy.Policy, error) {
	if cfg.PolicyPath == "" {
		p := policy.DefaultPolicy()
		log.Printf("using built-in policy %s@%s", p.PolicyID, p.PolicyVersion)
		return &p, nil
	}
	loaded, err := policy.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	log.Printf("loaded policy %s@%s (%s)", loaded.Policy.PolicyID, loaded.Policy.PolicyVersion, loaded.Hash)
	return &loaded.Policy, nil
}

func stageSet(cfg *config.Config) stages.Set {
	if !cfg.RemoteStages() {
		log.Printf("using in-process stage simulations")
		return stages.Local()
	}
	client := &http.Client{}
	log.Printf("using remote stages: extraction=%s credit=%s property=%s", cfg.ExtractionURL, cfg.CreditURL, cfg.PropertyURL)
	return stages.Set{
		Extractor: stages.NewHTTPExtractor(cfg.ExtractionURL, client),
		Credit:    stages.NewHTTPCreditChecker(cfg.CreditURL, client),
		Property:  stages.NewHTTPPropertyEvaluator(cfg.PropertyURL, client),
	}
}

// openNotifier always delivers through a Dispatcher so the request path never
// waits on the log file or Redis.
func openNotifier(ctx context.Context, cfg *config.Config) (notify.Notifier, func(), error) {
	var (
		next    notify.Notifier
		cleanup = func() {}
	)
	switch cfg.NotifyMode {
	case config.NotifyQueue:
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		next = notify.NewQueueNotifier(client)
		cleanup = func() { _ = client.Close() }
		log.Printf("notifications queued on redis %s", cfg.RedisAddr)
	case config.NotifyLog:
		next = notify.NewLogNotifier(cfg.NotifyLog)
		log.Printf("notifications written to %s", cfg.NotifyLog)
	default:
		return nil, nil, fmt.Errorf("unknown notify mode %q", cfg.NotifyMode)
	}
	d := notify.NewDispatcher(ctx, next, cfg.NotifyWorkers, cfg.StageTimeout)
	return d, func() {
		d.Close()
		cleanup()
	}, nil
}

func openArchive(ctx context.Context, cfg *config.Config) (*s3storage.Archive, error) {
	archive, err := s3storage.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Printf("archiving decisions to s3://%s", cfg.ArchiveBucket)
	return archive, nil
}
