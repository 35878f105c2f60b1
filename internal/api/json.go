package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"routeopt/internal/solver"
	"routeopt/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeSolverProblem maps solver and store errors onto problem
// responses: malformed instances are the client's fault, structurally
// infeasible ones are unprocessable.
func writeSolverProblem(w http.ResponseWriter, err error, path string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), path)
	case errors.Is(err, solver.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), path)
	case errors.Is(err, solver.ErrInfeasible):
		writeProblem(w, http.StatusUnprocessableEntity, "Infeasible instance", err.Error(), path)
	default:
		writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), path)
	}
}
