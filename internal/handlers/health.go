package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/combat-engine/internal/services/queue"
	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/pkg/combat"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
	Fallback   string            `json:"fallback_policy,omitempty"`
	QueueDepth *int              `json:"queue_depth,omitempty"`
}

type HealthHandler struct {
	storage storage.Storage
	queue   *queue.CombatQueue
	policy  combat.FallbackPolicy
	logger  *slog.Logger
}

// NewHealthHandler creates the health endpoint. combatQueue may be nil when
// the API runs without Redis.
func NewHealthHandler(storage storage.Storage, combatQueue *queue.CombatQueue, policy combat.FallbackPolicy, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		queue:   combatQueue,
		policy:  policy,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["storage"] = "healthy"
	}

	var queueDepth *int
	if h.queue == nil {
		components["queue"] = "disabled"
	} else if depth, err := h.queue.Depth(ctx); err != nil {
		h.logger.Warn("Queue health check failed", "error", err)
		components["queue"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["queue"] = "healthy"
		queueDepth = &depth
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "combat-engine",
		Components: components,
		Fallback:   string(h.policy),
		QueueDepth: queueDepth,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, response)
}
