// Package main serves the simulated extraction, credit and property services
// over HTTP, so the API can be run against remote stages.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dharsanguruparan/LoanDesk/internal/config"
	"github.com/dharsanguruparan/LoanDesk/internal/stages"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.StagesAddress,
		Handler:           stages.NewHandler(stages.Local()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("stage services listening on %s", cfg.StagesAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("stages stopped: %v", err)
		os.Exit(1)
	}
}
