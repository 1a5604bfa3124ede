package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/combat-engine/internal/config"
	"github.com/jwebster45206/combat-engine/internal/logger"
	"github.com/jwebster45206/combat-engine/internal/services"
	"github.com/jwebster45206/combat-engine/internal/services/queue"
	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/internal/worker"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/outcome"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg, "combat-worker")

	log.Info("Starting Combat Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"storage_driver", cfg.StorageDriver)

	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()
	combatQueue := queue.NewCombatQueue(queueClient)
	log.Info("Queue service initialized successfully")

	profiles, err := combat.LoadProfiles(cfg.OutcomeProfiles)
	if err != nil {
		log.Error("Failed to load outcome profiles", "error", err, "path", cfg.OutcomeProfiles)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	store, err := storage.Open(storageCtx, storage.Options{
		Driver:        cfg.StorageDriver,
		RedisURL:      cfg.RedisURL,
		SQLitePath:    cfg.SQLitePath,
		DataDir:       cfg.DataDir,
		ResolutionTTL: cfg.ResolutionTTL,
	}, log)
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()
	log.Info("Storage service initialized successfully")

	var src outcome.Source = outcome.GlobalSource{}
	if cfg.RNGSeed != 0 {
		src = outcome.NewLockedSource(outcome.NewSource(cfg.RNGSeed))
	}
	combatService := services.NewCombatService(store, combat.NewResolver(src, cfg.FallbackPolicy, profiles), log)

	w := worker.New(combatQueue, combatService, queueClient.GetRedisClient(), log, cfg.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")
	w.Stop()

	// Give the worker time to finish its current request
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	log.Info("Worker exited")
}
