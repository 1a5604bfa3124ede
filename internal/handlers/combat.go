package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/internal/services"
	"github.com/jwebster45206/combat-engine/internal/services/events"
	"github.com/jwebster45206/combat-engine/internal/services/queue"
	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/outcome"
	queuePkg "github.com/jwebster45206/combat-engine/pkg/queue"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxBodyBytes        = 1 << 20
)

type QueueResponse struct {
	RequestID string `json:"request_id"`
}

type CombatHandler struct {
	service     *services.CombatService
	storage     storage.Storage
	queue       *queue.CombatQueue
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

// NewCombatHandler creates the combat endpoints. combatQueue and broadcaster
// may be nil, in which case queued resolution is unavailable.
func NewCombatHandler(service *services.CombatService, storage storage.Storage, combatQueue *queue.CombatQueue, broadcaster *events.Broadcaster, logger *slog.Logger) *CombatHandler {
	return &CombatHandler{
		service:     service,
		storage:     storage,
		queue:       combatQueue,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ServeHTTP routes combat requests:
// POST /v1/combat/resolve - resolve an attack now
// POST /v1/combat/queue   - queue an attack for a worker
// GET  /v1/combat/{id}    - read a stored resolution
// GET  /v1/combat         - list an attacker's recent resolutions
func (h *CombatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/combat"), "/")

	switch {
	case path == "resolve":
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Use POST")
			return
		}
		h.handleResolve(w, r)
	case path == "queue":
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Use POST")
			return
		}
		h.handleQueue(w, r)
	case r.Method != http.MethodGet:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Use GET")
	case path == "":
		h.handleList(w, r)
	default:
		id, err := uuid.Parse(path)
		if err != nil {
			h.logger.Warn("Invalid resolution ID", "id", path, "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid resolution ID format")
			return
		}
		h.handleGet(w, r, id)
	}
}

func (h *CombatHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (combat.Request, bool) {
	var req combat.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid combat request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func (h *CombatHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	res, err := h.service.Resolve(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to resolve combat", "error", err)
			writeError(w, h.logger, status, "Failed to resolve combat")
			return
		}
		writeError(w, h.logger, status, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *CombatHandler) handleQueue(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	// Reject weights the worker could never sample.
	if err := h.service.Check(req); err != nil {
		writeError(w, h.logger, statusFor(err), err.Error())
		return
	}

	if h.queue == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Combat queue is not configured")
		return
	}

	queued := queuePkg.NewRequest(req)
	if err := h.queue.EnqueueRequest(r.Context(), queued); err != nil {
		h.logger.Error("Failed to enqueue combat request", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to queue combat request")
		return
	}

	if h.broadcaster != nil {
		if err := h.broadcaster.PublishRequestQueued(r.Context(), queued.RequestID, req); err != nil {
			h.logger.Warn("Failed to publish queued event", "error", err, "request_id", queued.RequestID)
		}
	}

	h.logger.Info("Combat request queued",
		"request_id", queued.RequestID,
		"attacker_id", req.AttackerID)
	writeJSON(w, h.logger, http.StatusAccepted, QueueResponse{RequestID: queued.RequestID})
}

func (h *CombatHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	res, err := h.storage.GetResolution(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Resolution not found")
			return
		}
		h.logger.Error("Failed to load resolution", "error", err, "id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load resolution")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *CombatHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	attackerID, err := strconv.Atoi(query.Get("attacker_id"))
	if err != nil || attackerID <= 0 {
		writeError(w, h.logger, http.StatusBadRequest, "attacker_id query parameter must be a positive integer")
		return
	}

	limit := defaultHistoryLimit
	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}
	limit = min(limit, maxHistoryLimit)

	list, err := h.storage.ListResolutions(r.Context(), attackerID, limit)
	if err != nil {
		h.logger.Error("Failed to list resolutions", "error", err, "attacker_id", attackerID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list resolutions")
		return
	}
	if list == nil {
		list = []*combat.Resolution{}
	}
	writeJSON(w, h.logger, http.StatusOK, list)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, combat.ErrBadRequest), errors.Is(err, combat.ErrUnknownMethod):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, outcome.ErrInvalidWeights), errors.Is(err, combat.ErrNoProfile):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
