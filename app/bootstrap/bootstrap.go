package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/lysyi3m/race-comb/app/cfg"
	"github.com/lysyi3m/race-comb/app/database"
	"github.com/lysyi3m/race-comb/app/dedup"
	"github.com/lysyi3m/race-comb/app/ingest"
	"github.com/lysyi3m/race-comb/app/normalize"
	"github.com/lysyi3m/race-comb/app/providers"
	"github.com/lysyi3m/race-comb/app/source"
)

// SetupLogging installs the process-wide text logger.
func SetupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// App holds the wired pipeline shared by the server and the CLI.
type App struct {
	Config       *cfg.Cfg
	DB           *database.DB
	Events       *database.SQLEventRepository
	Providers    *providers.ConfigCache
	Registry     *source.Registry
	BrowserPool  source.BrowserPool
	Orchestrator *ingest.Orchestrator
}

type Options struct {
	DryRun bool
}

// New opens the database, applies migrations, loads provider configs and
// builds the orchestrator.
func New(c *cfg.Cfg, opts Options) (*App, error) {
	slog.Info("Opening database", "path", c.DBPath)
	db, err := database.NewConnection(c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	registry := source.NewRegistry()

	configCache := providers.NewConfigCache(c.ProvidersDir, registry.KindFor)
	if err := configCache.Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load provider configurations: %w", err)
	}
	slog.Info("Provider configurations loaded", "dir", c.ProvidersDir, "count", configCache.GetConfigCount(),
		"enabled", len(configCache.GetEnabledConfigs()))

	events := database.NewEventRepository(db)
	pool := source.NewChromePool(c.BrowserPoolSize, c.ChromePath, c.UserAgent)

	orchestrator := ingest.New(configCache, registry, normalize.NewNormalizer(), dedup.NewEngine(events), ingest.Options{
		BrowserPool:     pool,
		HTTPConcurrency: c.HTTPConcurrency,
		AdapterTimeout:  c.AdapterTimeoutDuration(),
		FetchAttempts:   c.FetchAttempts,
		UserAgent:       c.UserAgent,
		HTTPClient:      &http.Client{},
		DryRun:          opts.DryRun,
	})

	return &App{
		Config:       c,
		DB:           db,
		Events:       events,
		Providers:    configCache,
		Registry:     registry,
		BrowserPool:  pool,
		Orchestrator: orchestrator,
	}, nil
}

func (a *App) Close() error {
	return errors.Join(a.BrowserPool.Close(), a.DB.Close())
}
