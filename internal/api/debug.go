package api

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"routeopt/internal/buildinfo"
)

// DebugJSON reports build info and the effective environment wiring.
// Secrets are reported as presence flags only.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	if !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                 os.Getenv("PORT"),
			"AUTH_MODE":            os.Getenv("AUTH_MODE"),
			"SOLVE_RATE_LIMIT":     os.Getenv("SOLVE_RATE_LIMIT"),
			"SOLVE_RATE_BURST":     os.Getenv("SOLVE_RATE_BURST"),
			"SOLVER_METAHEURISTIC": os.Getenv("SOLVER_METAHEURISTIC"),
			"SOLVER_MAX_RUNS":      os.Getenv("SOLVER_MAX_RUNS"),
			"WEBHOOK_MAX_ATTEMPTS": os.Getenv("WEBHOOK_MAX_ATTEMPTS"),
			"HAS_DATABASE_URL":     os.Getenv("DATABASE_URL") != "",
			"HAS_REDIS_URL":        os.Getenv("REDIS_URL") != "",
		},
		"solverDefaults": s.Defaults,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
