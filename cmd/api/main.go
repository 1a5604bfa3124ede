package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/combat-engine/internal/config"
	"github.com/jwebster45206/combat-engine/internal/handlers"
	"github.com/jwebster45206/combat-engine/internal/logger"
	"github.com/jwebster45206/combat-engine/internal/middleware"
	"github.com/jwebster45206/combat-engine/internal/services"
	"github.com/jwebster45206/combat-engine/internal/services/events"
	"github.com/jwebster45206/combat-engine/internal/services/queue"
	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/outcome"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg, "combat-api")

	log.Info("Starting Combat Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_driver", cfg.StorageDriver,
		"fallback_policy", cfg.FallbackPolicy)

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
	log.Info("Storage connection established successfully")

	var src outcome.Source = outcome.GlobalSource{}
	if cfg.RNGSeed != 0 {
		src = outcome.NewLockedSource(outcome.NewSource(cfg.RNGSeed))
		log.Info("Using seeded random source", "seed", cfg.RNGSeed)
	}
	combatService := services.NewCombatService(store, combat.NewResolver(src, cfg.FallbackPolicy, profiles), log)

	// The queue is optional: without Redis the API still resolves synchronously.
	var combatQueue *queue.CombatQueue
	var broadcaster *events.Broadcaster
	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Warn("Combat queue unavailable", "error", err)
	} else {
		defer func() {
			if err := queueClient.Close(); err != nil {
				log.Error("Error closing queue client", "error", err)
			}
		}()
		combatQueue = queue.NewCombatQueue(queueClient)
		broadcaster = events.NewBroadcaster(queueClient.GetRedisClient(), log)
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, combatQueue, cfg.FallbackPolicy, log)
	mux.Handle("/health", healthHandler)

	combatHandler := handlers.NewCombatHandler(combatService, store, combatQueue, broadcaster, log)
	mux.Handle("/v1/combat", combatHandler)
	mux.Handle("/v1/combat/", combatHandler)

	creatureHandler := handlers.NewCreatureHandler(log, store)
	mux.Handle("/v1/creatures", creatureHandler)
	mux.Handle("/v1/creatures/", creatureHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Logger(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
