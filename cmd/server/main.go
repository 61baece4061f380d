// Package main runs the LoanDesk API: it wires the request store, the stage
// collaborators, notifications and the decision archive around the pipeline.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/LoanDesk/internal/api"
	"github.com/dharsanguruparan/LoanDesk/internal/config"
	"github.com/dharsanguruparan/LoanDesk/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open %s store: %v", cfg.Store, err)
	}
	defer closeStore()

	pol, err := loadPolicy(cfg)
	if err != nil {
		log.Fatalf("load policy: %v", err)
	}

	notifier, closeNotifier, err := openNotifier(ctx, cfg)
	if err != nil {
		log.Fatalf("init notifier: %v", err)
	}
	defer closeNotifier()

	opts := pipeline.Options{StageTimeout: cfg.StageTimeout, Policy: pol}
	var signer api.URLSigner
	if cfg.ArchiveEnabled() {
		archive, err := openArchive(ctx, cfg)
		if err != nil {
			log.Fatalf("init archive: %v", err)
		}
		opts.Archive = archive
		signer = archive
	}

	p, err := pipeline.New(store, stageSet(cfg), notifier, opts)
	if err != nil {
		log.Fatalf("init pipeline: %v", err)
	}

	srv := api.New(cfg, p, signer)
	if err := srv.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
