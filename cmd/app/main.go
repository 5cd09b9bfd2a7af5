package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"amm_go/internal/app"
	"amm_go/internal/infra"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Pprof server, localhost only.
	go func() {
		slog.Info("Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	infra.PrintBanner(bootstrap.Config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Start(ctx); err != nil {
		slog.Error("Startup failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.InfoContext(ctx, "System operational. Press Ctrl+C to exit.")

	<-ctx.Done()

	slog.Info("Shutting down gracefully...")
	bootstrap.Shutdown(context.Background())
}
