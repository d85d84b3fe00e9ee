package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tokenvest/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config (VESTING_* env, optional VESTING_CONFIG file).
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve HTTP until SIGINT/SIGTERM.
func main() {
	log.Println("vesting api starting")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildAPI(ctx, "")
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Printf("vesting api stopped with error: %v", err)
	}
}
