package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/milp"
	"github.com/wonny/wielermanager/internal/optimizer"
	"github.com/wonny/wielermanager/internal/plan"
	"github.com/wonny/wielermanager/pkg/logger"
)

// maxBodyBytes bounds request bodies (a full season request is well below)
const maxBodyBytes = 8 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondFailure maps domain errors to status codes
func respondFailure(w http.ResponseWriter, log *logger.Logger, err error) {
	var verr *contracts.ValidationError
	var serr *optimizer.SolveError

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Error(),
			"field": verr.Field,
		})
	case errors.As(err, &serr):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"status": string(serr.Status),
			"error":  serr.Error(),
		})
	case errors.Is(err, milp.ErrModelTooLarge):
		// the backend refused before searching; cbc handles full seasons
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"status": string(milp.StatusNotSolved),
			"error":  err.Error(),
			"hint":   "install cbc or set SOLVER_BACKEND=cbc",
		})
	case errors.Is(err, contracts.ErrNoSnapshot):
		respondError(w, http.StatusNotFound, "No rider data available")
	case errors.Is(err, plan.ErrPlanNotFound):
		respondError(w, http.StatusNotFound, "Plan not found")
	default:
		log.WithError(err).Error("Request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
