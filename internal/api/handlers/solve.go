package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/wielermanager/internal/audit"
	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/plan"
	"github.com/wonny/wielermanager/pkg/logger"
)

// PlanService produces and looks up plans
type PlanService interface {
	Plan(ctx context.Context, strategy contracts.Strategy, req *contracts.PlanRequest) (*plan.Result, error)
	Get(ctx context.Context, id string) (*contracts.Plan, error)
}

// SolveHandler runs the planning strategies
// ⭐ SSOT: planning endpoints are served by this handler only
type SolveHandler struct {
	plans  PlanService
	source contracts.SnapshotSource
	rules  contracts.Rules
	logger *logger.Logger
}

// NewSolveHandler creates a new solve handler. rules apply to requests
// that do not carry their own.
func NewSolveHandler(plans PlanService, source contracts.SnapshotSource, rules contracts.Rules, log *logger.Logger) *SolveHandler {
	return &SolveHandler{plans: plans, source: source, rules: rules, logger: log}
}

// SolveMILP optimizes the season
// POST /api/solve
func (h *SolveHandler) SolveMILP(w http.ResponseWriter, r *http.Request) {
	h.solve(w, r, contracts.StrategyMILP)
}

// SolveRank picks squads by top-competitor rank
// POST /api/solve/rank
func (h *SolveHandler) SolveRank(w http.ResponseWriter, r *http.Request) {
	h.solve(w, r, contracts.StrategyRank)
}

func (h *SolveHandler) solve(w http.ResponseWriter, r *http.Request, strategy contracts.Strategy) {
	req, err := h.request(r)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	res, err := h.plans.Plan(r.Context(), strategy, req)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	cache := "miss"
	if res.Cached {
		cache = "hit"
	}
	w.Header().Set("X-Plan-Cache", cache)
	respondJSON(w, http.StatusOK, res.Plan)
}

// request reads the body. An empty body, or one without riders and races,
// plans over the latest snapshot; missing rules fall back to the game rules.
func (h *SolveHandler) request(r *http.Request) (*contracts.PlanRequest, error) {
	var req contracts.PlanRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, contracts.NewValidationError("body", "invalid JSON: %v", err)
	}

	if req.Rules == (contracts.Rules{}) {
		req.Rules = h.rules
	}

	if len(req.Candidates) == 0 && len(req.Periods) == 0 {
		snap, err := h.source.Latest(r.Context())
		if err != nil {
			return nil, err
		}
		return snap.Request(req.Rules), nil
	}
	return &req, nil
}

// GetPlan returns a stored plan
// GET /api/plans/{id}
func (h *SolveHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.plans.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// GetRealized scores a stored plan against the results collected so far
// GET /api/plans/{id}/realized
func (h *SolveHandler) GetRealized(w http.ResponseWriter, r *http.Request) {
	p, err := h.plans.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	snap, err := h.source.Latest(r.Context())
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	report := audit.Realized(p, snap.Races, snap.Riders)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"report":   report,
		"accuracy": report.Accuracy(),
	})
}
