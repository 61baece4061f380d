package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/LoanDesk/internal/config"
	"github.com/dharsanguruparan/LoanDesk/internal/notify"
	"github.com/dharsanguruparan/LoanDesk/internal/worker"
)

// The worker drains loan:notify tasks enqueued by a server running with
// LOANDESK_NOTIFY_MODE=queue and appends them to the notification log.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.NotifyMode != config.NotifyQueue {
		log.Printf("notify mode is %q; the server will not enqueue notifications", cfg.NotifyMode)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.NotifyWorkers,
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.Printf("[worker] task %s failed: %v", task.Type(), err)
		}),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Printf("[worker] shutting down")
		srv.Shutdown()
	}()

	deliver := worker.NewProcessor(notify.NewLogNotifier(cfg.NotifyLog))
	log.Printf("[worker] delivering notifications to %s (concurrency %d)", cfg.NotifyLog, cfg.NotifyWorkers)
	if err := srv.Run(deliver.Handler()); err != nil {
		log.Printf("[worker] stopped: %v", err)
		os.Exit(1)
	}
}
