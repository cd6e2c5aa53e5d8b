// Caracara - Fraud risk scoring for trade receivables.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/caracara/internal/agent"
	"github.com/opensource-finance/caracara/internal/alerting"
	"github.com/opensource-finance/caracara/internal/api"
	"github.com/opensource-finance/caracara/internal/bus"
	"github.com/opensource-finance/caracara/internal/cache"
	"github.com/opensource-finance/caracara/internal/domain"
	"github.com/opensource-finance/caracara/internal/engine"
	"github.com/opensource-finance/caracara/internal/metrics"
	"github.com/opensource-finance/caracara/internal/registry"
	"github.com/opensource-finance/caracara/internal/repository"
	"github.com/opensource-finance/caracara/internal/synthetic"
	"github.com/opensource-finance/caracara/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("CARACARA_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting caracara",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("CARACARA_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	if os.Getenv("CARACARA_AUTOSEED") == "true" {
		cfg.Seed.AutoSeed = true
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Scoring Engine
	eng := engine.New(cfg.Engine)
	slog.Info("scoring engine initialized",
		"top_n", cfg.Engine.TopN,
		"alert_threshold", cfg.Engine.AlertThreshold,
	)

	// Initialize Alert Engine
	alerts, err := alerting.NewEngine(100)
	if err != nil {
		slog.Error("failed to initialize alert engine", "error", err)
		os.Exit(1)
	}
	if err := loadAlertRules(ctx, repo, alerts); err != nil {
		slog.Error("failed to load alert rules", "error", err)
		os.Exit(1)
	}
	slog.Info("alert engine initialized", "rules_count", alerts.Count())

	// Initialize Institution Registry
	reg := registry.New(cacheImpl, logger)
	slog.Info("institution registry initialized", "entries", len(reg.All()))

	// Initialize Prometheus collector
	collector := metrics.NewCollector()

	// Initialize Investigation Worker
	investigator := agent.NewInvestigator(repo, reg, cacheImpl, logger)
	investigationWorker := worker.NewWorker(busImpl, repo, investigator, collector)
	if err := investigationWorker.Start(); err != nil {
		slog.Error("failed to start investigation worker", "error", err)
		os.Exit(1)
	}

	// Auto-seed the dataset when requested and the database is empty
	if cfg.Seed.AutoSeed {
		if err := autoSeed(ctx, repo, cfg.Seed); err != nil {
			slog.Error("failed to auto-seed dataset", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, eng, alerts, reg, collector, cfg.Seed, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("caracara is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the worker first so in-flight investigations finish
	if err := investigationWorker.Stop(); err != nil {
		slog.Error("failed to stop investigation worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("caracara shutdown complete")
}

// loadAlertRules loads rules from the database into the alert engine,
// installing the builtin set on a fresh database.
func loadAlertRules(ctx context.Context, repo domain.Repository, alerts *alerting.Engine) error {
	dbRules, err := repo.ListAlertRules(ctx)
	if err != nil {
		slog.Warn("failed to list alert rules from database", "error", err)
		return nil // start empty, rules can be added via API
	}

	if len(dbRules) == 0 {
		slog.Info("no alert rules in database, installing builtin set")
		for _, rule := range alerting.DefaultRules() {
			r := rule
			now := time.Now().UTC()
			r.CreatedAt, r.UpdatedAt = now, now
			if err := repo.SaveAlertRule(ctx, &r); err != nil {
				return err
			}
		}
		return alerts.Reload(alerting.DefaultRules())
	}

	rules := make([]domain.AlertRule, 0, len(dbRules))
	for _, r := range dbRules {
		rules = append(rules, *r)
	}
	slog.Info("loading alert rules from database", "count", len(rules))
	return alerts.Reload(rules)
}

// autoSeed populates an empty database with a synthetic dataset.
func autoSeed(ctx context.Context, repo domain.Repository, cfg domain.SeedConfig) error {
	total, err := repo.CountReceivables(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		slog.Info("dataset already present, skipping auto-seed", "total", total)
		return nil
	}

	dataset := synthetic.NewFactory(cfg.Seed, time.Now().UTC()).Generate(cfg)
	if err := repo.SaveReceivables(ctx, dataset); err != nil {
		return err
	}

	slog.Info("dataset auto-seeded",
		"total", len(dataset),
		"seed", cfg.Seed,
		"fraud_rate", cfg.FraudRate,
	)
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              🦅 CARACARA                  ║")
	fmt.Println("  ║    Receivables Fraud Scoring Engine       ║")
	fmt.Println("  ║     Every duplicata, double-checked.      ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /v1/analyze              - Score a batch of duplicatas")
	fmt.Println("    POST   /v1/dataset/seed         - Seed a synthetic dataset")
	fmt.Println("    GET    /v1/dataset/status       - Dataset status")
	fmt.Println("    DELETE /v1/dataset              - Clear the dataset")
	fmt.Println("    GET    /v1/reports/frauds       - Fraud report over the dataset")
	fmt.Println("    GET    /v1/analytics/summary    - Dataset KPIs")
	fmt.Println("    GET    /v1/alert-rules          - List alert rules")
	fmt.Println("    POST   /v1/alert-rules          - Create an alert rule")
	fmt.Println("    POST   /v1/alert-rules/reload   - Hot-reload alert rules")
	fmt.Println("    GET    /v1/verdicts             - Investigation verdicts")
	fmt.Println("    GET    /mocks/institutions      - Simulated regulator registry")
	fmt.Println("    GET    /metrics                 - Prometheus metrics")
	fmt.Println("    GET    /health                  - Health check")
	fmt.Println()
}
