package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/wielermanager/internal/collector"
	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/pkg/logger"
)

// Collector builds snapshots and refreshes results
type Collector interface {
	Collect(ctx context.Context, cfg collector.Config) (*contracts.Snapshot, error)
	RefreshResults(ctx context.Context, snap *contracts.Snapshot) (int, error)
}

// SnapshotStore reads and writes snapshots
type SnapshotStore interface {
	contracts.SnapshotSource
	contracts.SnapshotSink
}

// CollectHandler triggers data collection
type CollectHandler struct {
	collector Collector
	store     SnapshotStore
	config    collector.Config
	logger    *logger.Logger
}

// NewCollectHandler creates a new collect handler
func NewCollectHandler(c Collector, store SnapshotStore, cfg collector.Config, log *logger.Logger) *CollectHandler {
	return &CollectHandler{collector: c, store: store, config: cfg, logger: log}
}

// CollectResponse summarizes a collection run
type CollectResponse struct {
	Riders      int       `json:"riders"`
	Races       int       `json:"races"`
	Updated     int       `json:"updated_races,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
}

// Collect scrapes a fresh snapshot and stores it
// POST /api/collect
func (h *CollectHandler) Collect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.collector.Collect(ctx, h.config)
	if err != nil {
		h.logger.WithError(err).Error("Collection failed")
		respondError(w, http.StatusBadGateway, "Collection failed: "+err.Error())
		return
	}
	if err := h.store.Save(ctx, snap); err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, CollectResponse{
		Riders:      len(snap.Riders),
		Races:       len(snap.Races),
		CollectedAt: snap.CollectedAt,
	})
}

// RefreshResults pulls race results into the latest snapshot
// POST /api/results
func (h *CollectHandler) RefreshResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.store.Latest(ctx)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	updated, err := h.collector.RefreshResults(ctx, snap)
	if err != nil {
		h.logger.WithError(err).Error("Results refresh failed")
		respondError(w, http.StatusBadGateway, "Results refresh failed: "+err.Error())
		return
	}
	if updated > 0 {
		if err := h.store.Save(ctx, snap); err != nil {
			respondFailure(w, h.logger, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, CollectResponse{
		Riders:      len(snap.Riders),
		Races:       len(snap.Races),
		Updated:     updated,
		CollectedAt: snap.CollectedAt,
	})
}
