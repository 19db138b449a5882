package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"RxivScanner/internal/app"
	"RxivScanner/internal/config"
	"RxivScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application := app.New(ctx, cfg, logger)

	// A termination signal turns into a cooperative stop so the current
	// batch can flush its aggregates and log artifact.
	go func() {
		<-ctx.Done()
		application.Pipeline().State().RequestStopNow()
	}()

	err := application.Run(ctx)
	if cerr := application.Close(); cerr != nil {
		logger.Warn("shutdown cleanup failed", "error", cerr)
	}
	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
