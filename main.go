package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/praxishq/praxis/internal/api"
	"github.com/praxishq/praxis/internal/capability"
	"github.com/praxishq/praxis/internal/events"
	"github.com/praxishq/praxis/internal/feedback"
	"github.com/praxishq/praxis/internal/metrics"
	"github.com/praxishq/praxis/internal/platform"
	"github.com/praxishq/praxis/internal/queue"
	"github.com/praxishq/praxis/internal/selftrain"
	"github.com/praxishq/praxis/internal/store"
	"github.com/praxishq/praxis/internal/trainer"
	"github.com/praxishq/praxis/pkg/config"
)

func main() {
	fmt.Println("Praxis - Chat-AI Training Orchestrator")
	fmt.Println("======================================")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfigFromFile(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v", configPath, err)
		log.Printf("Using default configuration")
		cfg = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Praxis failed: %v", err)
	}
}

func run(cfg *config.Config) error {
	m := metrics.NewMetrics()

	var db *store.Store
	var err error
	switch cfg.Database.Type {
	case "postgres":
		db, err = store.NewPostgres(cfg.Database.DSN)
	default:
		db, err = store.New(cfg.Database.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	registry := platform.NewRegistryFromConfig(cfg.Platforms)
	log.Printf("Registered platforms: %v", registry.List())

	fb := feedback.NewChannel(feedback.DefaultMaxUpdates, m)

	var sink queue.StatusSink = fb
	var publisher *events.Publisher
	if cfg.Events.Enabled {
		publisher, err = events.NewPublisher(events.Config{
			URL:     cfg.Events.URL,
			Subject: cfg.Events.Subject,
		})
		if err != nil {
			log.Printf("Warning: NATS publishing disabled: %v", err)
		} else {
			defer publisher.Close()
			sink = &events.Tap{Sink: fb, Publisher: publisher}
		}
	}

	qopts := queue.Options{
		IdleWait:        cfg.Queue.IdleWait,
		FailureBackoff:  cfg.Queue.FailureBackoff,
		ShutdownTimeout: cfg.Queue.ShutdownTimeout,
	}

	tm, err := trainer.NewManager(registry, db, trainer.Options{
		MaxRecentSessions: cfg.Training.MaxRecentSessions,
		MaxInsights:       cfg.Training.MaxInsights,
		Status:            sink,
		Metrics:           m,
		Queue:             qopts,
	})
	if err != nil {
		return fmt.Errorf("failed to create training manager: %w", err)
	}
	if err := tm.Start(); err != nil {
		return fmt.Errorf("failed to start training manager: %w", err)
	}
	defer tm.Stop()

	model, err := capability.NewModel(db, m)
	if err != nil {
		return fmt.Errorf("failed to create capability model: %w", err)
	}

	var system *selftrain.System
	if cfg.SelfTrain.Enabled {
		system, err = selftrain.NewSystem(model, tm, db, fb, selftrain.Options{
			PollInterval:    cfg.SelfTrain.PollInterval,
			SessionTimeout:  cfg.SelfTrain.SessionTimeout,
			GapThreshold:    cfg.SelfTrain.GapThreshold,
			RequireApproval: cfg.SelfTrain.RequireApproval,
			Metrics:         m,
			Queue:           qopts,
		})
		if err != nil {
			return fmt.Errorf("failed to create self-training system: %w", err)
		}
		if err := system.Start(); err != nil {
			return fmt.Errorf("failed to start self-training system: %w", err)
		}
		defer system.Stop()
		log.Printf("Self-training loop enabled (poll=%s timeout=%s)",
			cfg.SelfTrain.PollInterval, cfg.SelfTrain.SessionTimeout)
	}

	server := api.NewServer(tm, system, fb, model, db, m)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on :%d", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	return nil
}
