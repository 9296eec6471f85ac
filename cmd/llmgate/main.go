package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tripflow/llmgate/internal/analytics"
	"github.com/tripflow/llmgate/internal/app"
	"github.com/tripflow/llmgate/internal/budget"
	"github.com/tripflow/llmgate/internal/cache"
	"github.com/tripflow/llmgate/internal/config"
	"github.com/tripflow/llmgate/internal/gateway"
	"github.com/tripflow/llmgate/internal/pricing"
	"github.com/tripflow/llmgate/internal/provider"
	"github.com/tripflow/llmgate/internal/secrets"
	"github.com/tripflow/llmgate/internal/tokenizer"
	"github.com/tripflow/llmgate/internal/transport/http/handler"
)

func main() {
	logger := setupLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := openDatabase(cfg.Cache.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	enc, err := secrets.NewAES()
	if err != nil {
		return fmt.Errorf("init encryption: %w", err)
	}
	sqlStore, err := secrets.NewSQLiteStore(db, enc)
	if err != nil {
		return fmt.Errorf("init secret store: %w", err)
	}
	resolver, err := secrets.NewResolver(secrets.Chain{&secrets.EnvStore{}, sqlStore}, 5*time.Minute)
	if err != nil {
		return fmt.Errorf("init secret resolver: %w", err)
	}
	defer resolver.Close()

	prices, err := pricing.Load()
	if err != nil {
		return fmt.Errorf("load pricing table: %w", err)
	}
	counter := tokenizer.New()

	providers, err := provider.NewRegistry(cfg, resolver, prices, counter)
	if err != nil {
		return err
	}

	budgetMgr := budget.NewManager(cfg.Budget, budget.WithLogger(logger))
	cacheMgr, err := cache.NewManagerWithDB(cfg.Cache, db, cache.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	collector := analytics.NewCollector(cfg.Analytics, analytics.WithLogger(logger))

	gw := gateway.New(cfg, providers, budgetMgr, cacheMgr, collector, prices, counter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background loops stop when the signal context is cancelled.
	go collector.Run(ctx)
	go cacheMgr.RunSweeper(ctx)

	repo := handler.NewRepo(gw, budgetMgr, cacheMgr, collector)
	router := app.NewRouter(repo, &app.RouterOptions{Logger: logger})
	srv := app.NewServer(cfg, router, logger)

	printStartupBanner(cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openDatabase opens the shared SQLite database used by the cache and
// secret store.
func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
