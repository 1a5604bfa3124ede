package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/internal/logger"
	"github.com/jwebster45206/combat-engine/internal/services"
	"github.com/jwebster45206/combat-engine/internal/services/events"
	"github.com/jwebster45206/combat-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/combat-engine/pkg/queue"
	"github.com/redis/go-redis/v9"
)

const (
	workerTimeout  = 5 * time.Second
	lockTTL        = 30 * time.Second
	lockRetryDelay = 200 * time.Millisecond
)

var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Worker resolves combat requests pulled from the queue
type Worker struct {
	id          string
	queue       *queue.CombatQueue
	combat      *services.CombatService
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(combatQueue *queue.CombatQueue, combatService *services.CombatService, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       combatQueue,
		combat:      combatService,
		broadcaster: events.NewBroadcaster(redisClient, log),
		redisClient: redisClient,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker id
func (w *Worker) ID() string {
	return w.id
}

// Start begins processing requests from the queue. It returns after Stop.
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				select {
				case <-w.ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	req, err := w.queue.BlockingDequeueRequest(w.ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"attacker_id", req.Combat.AttackerID,
	)

	// Resolutions for one attacker are recorded in order.
	locked, err := w.acquireAttackerLock(req.Combat.AttackerID)
	if err != nil {
		return fmt.Errorf("failed to acquire attacker lock: %w", err)
	}
	if !locked {
		w.log.Debug("Attacker already locked, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"attacker_id", req.Combat.AttackerID,
		)
		// Back to the head so the attacker's later requests stay behind it.
		if err := w.queue.RequeueRequest(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		select {
		case <-w.ctx.Done():
		case <-time.After(lockRetryDelay):
		}
		return nil
	}
	defer w.releaseAttackerLock(req.Combat.AttackerID)

	return w.processRequest(req)
}

func attackerLockKey(attackerID int) string {
	return fmt.Sprintf("attacker-lock:%d", attackerID)
}

// acquireAttackerLock returns false if another worker holds the lock
func (w *Worker) acquireAttackerLock(attackerID int) (bool, error) {
	return w.redisClient.SetNX(w.ctx, attackerLockKey(attackerID), w.id, lockTTL).Result()
}

// releaseAttackerLock deletes the lock only if this worker owns it
func (w *Worker) releaseAttackerLock(attackerID int) {
	// The worker context may already be cancelled on shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseLockScript.Run(ctx, w.redisClient, []string{attackerLockKey(attackerID)}, w.id).Err(); err != nil && err != redis.Nil {
		w.log.Error("Failed to release attacker lock", "error", err, "attacker_id", attackerID)
	}
}

// processRequest resolves one combat request and publishes the result
func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()
	log := logger.WithCombat(w.log, req.RequestID, req.Combat).With("worker_id", w.id)

	res, err := w.combat.Resolve(w.ctx, req.Combat)
	if err != nil {
		logger.WithError(log, err).Warn("Combat request failed")
		if pubErr := w.broadcaster.PublishCombatFailed(w.ctx, req.RequestID, req.Combat, err.Error()); pubErr != nil {
			log.Error("Failed to publish failure event", "error", pubErr)
		}
		// A rejected request is a handled outcome, not a worker fault.
		return nil
	}

	log.Info("Combat request processed",
		"resolution_id", res.ID.String(),
		"outcome", res.Outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := w.broadcaster.PublishCombatResolved(w.ctx, req.RequestID, res); err != nil {
		log.Error("Failed to publish resolution event", "error", err)
	}
	return nil
}
