package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jwebster45206/combat-engine/internal/storage"
)

// CreatureSummary is the list view of a creature
type CreatureSummary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	AC   int    `json:"ac"`
}

type CreatureHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewCreatureHandler(log *slog.Logger, storage storage.Storage) *CreatureHandler {
	return &CreatureHandler{
		log:     log,
		storage: storage,
	}
}

func (h *CreatureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Use GET")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/creatures"), "/")
	if path == "" {
		h.listCreatures(w, r)
		return
	}

	id, err := strconv.Atoi(path)
	if err != nil || id <= 0 {
		writeError(w, h.log, http.StatusBadRequest, "Invalid creature ID")
		return
	}
	h.getCreature(w, r, id)
}

func (h *CreatureHandler) listCreatures(w http.ResponseWriter, r *http.Request) {
	creatures, err := h.storage.ListCreatures(r.Context())
	if err != nil {
		h.log.Error("Failed to list creatures", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list creatures")
		return
	}

	// Initialize as empty slice instead of nil
	list := make([]CreatureSummary, 0, len(creatures))
	for _, c := range creatures {
		list = append(list, CreatureSummary{ID: c.ID, Name: c.Name, Kind: string(c.Kind), AC: c.AC})
	}
	writeJSON(w, h.log, http.StatusOK, list)
}

func (h *CreatureHandler) getCreature(w http.ResponseWriter, r *http.Request, id int) {
	c, err := h.storage.GetCreature(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.log, http.StatusNotFound, "Creature not found")
			return
		}
		h.log.Error("Failed to load creature", "error", err, "id", id)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to load creature")
		return
	}
	writeJSON(w, h.log, http.StatusOK, c)
}
