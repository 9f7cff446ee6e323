package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/race-comb/app/api"
	"github.com/lysyi3m/race-comb/app/bootstrap"
	"github.com/lysyi3m/race-comb/app/cfg"
	"github.com/lysyi3m/race-comb/app/tasks"
)

func main() {
	appConfig, err := cfg.Load()
	if errors.Is(err, cfg.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	bootstrap.SetupLogging(appConfig.Debug)
	slog.Info("Starting Race Comb server", "version", appConfig.Version)

	app, err := bootstrap.New(appConfig, bootstrap.Options{})
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// cancelled on shutdown; in-flight runs release their browser sessions
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	scheduler := tasks.NewScheduler(app.Orchestrator, app.Providers, appConfig.SchedulerIntervalDuration())
	scheduler.Start()

	handler := api.NewHandler(runCtx, app.Orchestrator, app.Providers, app.Events)
	server := api.NewServer(handler, appConfig.APIAccessKey)

	// no write timeout: POST /api/runs?wait=true holds the connection for a whole run
	httpServer := &http.Server{
		Addr:        ":" + appConfig.Port,
		Handler:     server,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appConfig.Port,
			"api_enabled", appConfig.APIAccessKey != "",
			"scheduler_interval", appConfig.SchedulerIntervalDuration().String())

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// cancel runs first so ?wait=true requests get their report and return
	// before the server drains connections
	cancelRuns()
	scheduler.Stop()

	if err := app.Orchestrator.Wait(shutdownCtx); err != nil {
		slog.Error("Active run did not finish before shutdown", "error", err)
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Race Comb server shutdown complete")
}
