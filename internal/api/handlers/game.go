package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/pkg/logger"
)

// GameHandler serves the collected riders and races
type GameHandler struct {
	source contracts.SnapshotSource
	logger *logger.Logger
}

// NewGameHandler creates a new game data handler
func NewGameHandler(source contracts.SnapshotSource, log *logger.Logger) *GameHandler {
	return &GameHandler{source: source, logger: log}
}

// GetRiders returns the riders of the latest snapshot
// GET /api/riders
func (h *GameHandler) GetRiders(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, snap.Riders)
}

// GetRaces returns the race calendar of the latest snapshot
// GET /api/races
func (h *GameHandler) GetRaces(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, snap.Races)
}

// latest loads the snapshot; nothing collected yet is served as empty lists
func (h *GameHandler) latest(w http.ResponseWriter, r *http.Request) (*contracts.Snapshot, bool) {
	snap, err := h.source.Latest(r.Context())
	if errors.Is(err, contracts.ErrNoSnapshot) {
		return &contracts.Snapshot{Riders: []contracts.Candidate{}, Races: []contracts.Period{}}, true
	}
	if err != nil {
		respondFailure(w, h.logger, err)
		return nil, false
	}
	return snap, true
}
