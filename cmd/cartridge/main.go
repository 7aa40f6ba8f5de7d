package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pikestaff/cartridge/internal/api"
	"github.com/pikestaff/cartridge/internal/api/middleware"
	"github.com/pikestaff/cartridge/internal/backup"
	"github.com/pikestaff/cartridge/internal/catalog"
	"github.com/pikestaff/cartridge/internal/config"
	"github.com/pikestaff/cartridge/internal/database"
	"github.com/pikestaff/cartridge/internal/event"
	"github.com/pikestaff/cartridge/internal/franchise"
	"github.com/pikestaff/cartridge/internal/logging"
	"github.com/pikestaff/cartridge/internal/maintenance"
	"github.com/pikestaff/cartridge/internal/metrics"
	"github.com/pikestaff/cartridge/internal/provider"
	"github.com/pikestaff/cartridge/internal/provider/igdb"
	"github.com/pikestaff/cartridge/internal/search"
	"github.com/pikestaff/cartridge/internal/syncer"
	"github.com/pikestaff/cartridge/internal/version"
)

func main() {
	// Handle subcommands before starting the server
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "sync":
			if err := runSync(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging via the logging Manager
	logManager, logger := logging.NewManager(logConfig(cfg))
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	// Open database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	// Catalog store and search adapter
	store := catalog.NewStore(db)
	adapter := catalog.NewQueryAdapter(store, logger)
	if n, err := store.Count(context.Background()); err == nil {
		logger.Info("catalog loaded", slog.Int("games", n))
	}

	m := metrics.New()

	// Event bus; discovery results flow through it into the catalog
	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	persister := catalog.NewPersister(store, m, logger)
	eventBus.Subscribe(event.GamesDiscovered, persister.HandleEvent)

	// Franchise map for sister-game expansion
	franchises, err := franchise.New(cfg.Search.FranchisePath, logger)
	if err != nil {
		return fmt.Errorf("loading franchise map: %w", err)
	}

	// LoadCalibration logs and degrades to defaults on a bad file.
	cal, _ := search.LoadCalibration(cfg.Search.WeightsPath, logger)

	// Provider infrastructure. Missing credentials disable the provider and
	// searches serve catalog results only.
	gate := provider.NewGate(provider.GateConfig{
		RequestsPerSecond: cfg.IGDB.RequestsPerSecond,
		MaxConcurrent:     int64(cfg.IGDB.MaxConcurrent),
		MaxRetries:        uint64(cfg.IGDB.MaxRetries),
	}, m, logger)
	cache := provider.NewResultCache(cfg.Cache.Capacity, time.Duration(cfg.Cache.TTLHours)*time.Hour)

	var (
		igdbClient     *igdb.Adapter
		searchProvider search.Provider
	)
	if cfg.IGDB.ClientID != "" && cfg.IGDB.ClientSecret != "" {
		igdbClient = igdb.New(igdb.Config{
			ClientID:     cfg.IGDB.ClientID,
			ClientSecret: cfg.IGDB.ClientSecret,
			BaseURL:      cfg.IGDB.BaseURL,
			TokenURL:     cfg.IGDB.TokenURL,
		}, logger)
		searchProvider = provider.NewFallbackSearcher(igdbClient, adapter, cache, gate, eventBus, m, logger)
	} else {
		logger.Warn("igdb credentials not configured, serving catalog results only")
	}

	searchService := search.NewService(search.Deps{
		Catalog:     adapter,
		Provider:    searchProvider,
		Franchise:   franchises,
		Calibration: cal,
		Config: search.Config{
			DefaultLimit:      cfg.Search.DefaultLimit,
			MaxLimit:          cfg.Search.MaxLimit,
			MinCatalogResults: cfg.Search.MinCatalogResults,
			PoolLimit:         cfg.Search.ProviderLimit,
			MaxSisterLookups:  cfg.Search.MaxSisterLookups,
		},
		Metrics: m,
		Logger:  logger,
	})

	maintenanceService := maintenance.NewService(db, cfg.Database.Path, cache, logger)

	logger.Info("starting cartridge",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewSearchRateLimiter(ctx, cfg.RateLimit.SearchPerSecond, cfg.RateLimit.SearchBurst)

	router := api.NewRouter(api.RouterDeps{
		SearchService: searchService,
		Catalog:       adapter,
		Metrics:       m,
		SearchLimiter: limiter,
		Logger:        logger,
		BasePath:      cfg.Server.BasePath,
	})

	// Hot reload of the franchise override file
	watcher := franchise.NewWatcher(franchises, eventBus, logger)
	go watcher.Start(ctx)

	// SIGHUP reloads the config file: logging settings apply immediately and
	// the franchise map re-reads its override.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				reloaded, err := config.Load(configPath())
				if err != nil {
					logger.Error("config reload failed", "error", err)
					continue
				}
				logManager.Reconfigure(logConfig(reloaded))
				if err := franchises.Reload(); err != nil && !os.IsNotExist(err) {
					logger.Warn("franchise reload failed", "error", err)
				}
				logger.Info("configuration reloaded")
			}
		}
	}()

	// Start catalog sync scheduler
	if cfg.Sync.Enabled && cfg.Sync.IntervalHours > 0 {
		if igdbClient == nil {
			logger.Warn("catalog sync enabled but igdb credentials missing, sync disabled")
		} else {
			syncService := syncer.NewService(syncer.Deps{
				Store:   store,
				Fetcher: igdbClient,
				Gate:    gate,
				Bus:     eventBus,
				Config: syncer.Config{
					BatchSize:  cfg.Sync.BatchSize,
					StaleAfter: time.Duration(cfg.Sync.StaleAfterDays) * 24 * time.Hour,
				},
				Metrics: m,
				Logger:  logger,
			})
			go syncService.StartScheduler(ctx, time.Duration(cfg.Sync.IntervalHours)*time.Hour)
		}
	}

	// Start maintenance scheduler
	if cfg.Maintenance.Enabled {
		hours := cfg.Maintenance.IntervalHours
		if hours <= 0 {
			hours = 24
		}
		go maintenanceService.StartScheduler(ctx, time.Duration(hours)*time.Hour)
	}

	// Start catalog snapshot scheduler
	if cfg.Backup.Enabled {
		backupDir := cfg.Backup.Path
		if backupDir == "" {
			backupDir = filepath.Join(filepath.Dir(cfg.Database.Path), "backups")
		}
		backupService := backup.NewService(db, backupDir, cfg.Backup.Retention, cfg.Backup.MaxAgeDays, logger)
		hours := cfg.Backup.IntervalHours
		if hours <= 0 {
			hours = 24
		}
		go backupService.StartScheduler(ctx, time.Duration(hours)*time.Hour)
	}

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// runSync refreshes one batch of stale catalog rows and exits. Intended for
// cron and for warming a fresh database from the command line.
func runSync() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.IGDB.ClientID == "" || cfg.IGDB.ClientSecret == "" {
		return fmt.Errorf("igdb credentials are required for sync")
	}

	logManager, logger := logging.NewManager(logConfig(cfg))
	defer logManager.Close() //nolint:errcheck

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	store := catalog.NewStore(db)
	m := metrics.New()

	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	gate := provider.NewGate(provider.GateConfig{
		RequestsPerSecond: cfg.IGDB.RequestsPerSecond,
		MaxConcurrent:     int64(cfg.IGDB.MaxConcurrent),
		MaxRetries:        uint64(cfg.IGDB.MaxRetries),
	}, m, logger)

	client := igdb.New(igdb.Config{
		ClientID:     cfg.IGDB.ClientID,
		ClientSecret: cfg.IGDB.ClientSecret,
		BaseURL:      cfg.IGDB.BaseURL,
		TokenURL:     cfg.IGDB.TokenURL,
	}, logger)

	syncService := syncer.NewService(syncer.Deps{
		Store:   store,
		Fetcher: client,
		Gate:    gate,
		Bus:     eventBus,
		Config: syncer.Config{
			BatchSize:  cfg.Sync.BatchSize,
			StaleAfter: time.Duration(cfg.Sync.StaleAfterDays) * 24 * time.Hour,
		},
		Metrics: m,
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := syncService.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("Refreshed %d games.\n", n)
	return nil
}

// configPath returns the config file location, defaulting to /data/config.yaml.
func configPath() string {
	if p := os.Getenv("CART_CONFIG_PATH"); p != "" {
		return p
	}
	return "/data/config.yaml"
}

// logConfig maps application config onto the logging manager's config.
func logConfig(cfg *config.Config) logging.Config {
	return logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FilePath:       cfg.Logging.FilePath,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxFiles:   cfg.Logging.FileMaxFiles,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	}
}
