package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"routeopt/internal/buildinfo"
	"routeopt/internal/metrics"
	"routeopt/internal/model"
	"routeopt/internal/solver"
)

// InstancesHandler handles POST/GET /v1/instances.
func (s *Server) InstancesHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodPost:
		if !p.CanSolve() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "operator or admin required", r.URL.Path)
			return
		}
		var in model.InstanceIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateInstanceIn(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
			return
		}
		// Surface structural problems at creation, not first solve.
		inst, err := toSolverInstance(in)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
			return
		}
		if err := inst.Validate(); err != nil {
			writeSolverProblem(w, err, r.URL.Path)
			return
		}
		out, err := s.Store.CreateInstance(r.Context(), p.Tenant, in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create instance failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListInstances(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List instances failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// InstanceByIDHandler handles GET /v1/instances/{id}.
func (s *Server) InstanceByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/instances/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	in, out, err := s.Store.GetInstance(r.Context(), p.Tenant, id)
	if err != nil {
		writeSolverProblem(w, err, r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"instance": out, "definition": in})
}

// SolveHandler handles POST /v1/solve: synchronous by default, async
// with pre-assigned run IDs when requested, batched when runs > 1.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanSolve() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "operator or admin required", r.URL.Path)
		return
	}
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req, s.Defaults.MaxRuns); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	in, _, err := s.Store.GetInstance(r.Context(), p.Tenant, req.InstanceID)
	if err != nil {
		writeSolverProblem(w, err, r.URL.Path)
		return
	}
	inst, err := toSolverInstance(in)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		return
	}
	tenantCfg, _ := s.Store.GetSolverConfig(r.Context(), p.Tenant)
	cfg, err := toSolverConfig(req, s.Defaults, tenantCfg)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	// Entry checks run synchronously so async callers still get
	// validation errors on submission.
	if err := inst.Validate(); err != nil {
		writeSolverProblem(w, err, r.URL.Path)
		return
	}
	if err := inst.CheckFleetCapacity(); err != nil {
		writeSolverProblem(w, err, r.URL.Path)
		return
	}

	runs := req.Runs
	if runs < 1 {
		runs = 1
	}
	runIDs := make([]string, runs)
	for i := range runIDs {
		runIDs[i] = uuid.New().String()
	}

	if req.Async {
		for _, id := range runIDs {
			placeholder := model.RunOut{
				ID: id, InstanceID: req.InstanceID, Status: "running",
				Metaheuristic: cfg.Metaheuristic.String(), Seed: cfg.Seed,
			}
			if _, err := s.Store.CreateRun(r.Context(), p.Tenant, placeholder, nil); err != nil {
				writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
				return
			}
		}
		go s.executeSolve(context.Background(), p.Tenant, req.InstanceID, inst, cfg, runIDs)
		writeJSON(w, http.StatusAccepted, map[string]any{"runIds": runIDs, "status": "running"})
		return
	}

	out, err := s.executeSolve(r.Context(), p.Tenant, req.InstanceID, inst, cfg, runIDs)
	if err != nil {
		writeSolverProblem(w, err, r.URL.Path)
		return
	}
	if len(out.Runs) == 1 {
		writeJSON(w, http.StatusOK, out.Runs[0])
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// executeSolve runs the search, persists results, publishes broker
// events and enqueues webhooks. Callers pass one run ID per requested
// run.
func (s *Server) executeSolve(ctx context.Context, tenant, instanceID string, inst *solver.Instance, cfg solver.Config, runIDs []string) (model.BatchOut, error) {
	if len(runIDs) == 1 {
		runID := runIDs[0]
		cfg.ProgressEvery = s.Defaults.ProgressEvery
		cfg.Progress = func(ev solver.ProgressEvent) {
			evt := Event{Type: "solve.progress", Data: map[string]any{
				"runId":       runID,
				"iteration":   ev.Iteration,
				"bestCost":    ev.BestCost,
				"currentCost": ev.CurrentCost,
			}}
			s.Progress.Put(tenant, runID, evt)
			s.Broker.Publish(runID, evt)
		}
		res, err := solver.Solve(ctx, inst, cfg)
		if err != nil {
			s.finishFailed(ctx, tenant, instanceID, cfg, runID, err)
			return model.BatchOut{}, err
		}
		run := s.finishRun(ctx, tenant, instanceID, cfg, runID, res)
		return model.BatchOut{Runs: []model.RunOut{run}, Best: runID, MeanCost: run.TotalCost}, nil
	}

	batch, err := solver.SolveN(ctx, inst, cfg, len(runIDs))
	if err != nil {
		for _, id := range runIDs {
			s.finishFailed(ctx, tenant, instanceID, cfg, id, err)
		}
		return model.BatchOut{}, err
	}
	out := model.BatchOut{Best: runIDs[batch.Best], MeanCost: batch.MeanCost}
	for i, res := range batch.Results {
		out.Runs = append(out.Runs, s.finishRun(ctx, tenant, instanceID, cfg, runIDs[i], res))
	}
	return out, nil
}

func (s *Server) finishRun(ctx context.Context, tenant, instanceID string, cfg solver.Config, runID string, res solver.Result) model.RunOut {
	run := toRunOut(runID, instanceID, cfg.Metaheuristic, cfg.Seed, res)
	stored, err := s.Store.CreateRun(ctx, tenant, run, res.Trace)
	if err == nil {
		run = stored
	}
	mh := cfg.Metaheuristic.String()
	metrics.SolveRuns.WithLabelValues(mh, run.Status).Inc()
	metrics.SolveDuration.WithLabelValues(mh).Observe(res.Elapsed.Seconds())
	metrics.SolveIterations.WithLabelValues(mh).Observe(float64(res.Iterations))
	metrics.SolveBestCost.WithLabelValues(mh).Set(res.TotalCost)

	evtType, hookType := "solve.completed", "run.completed"
	if run.Status == "failed" {
		evtType, hookType = "solve.failed", "run.failed"
	}
	evt := Event{Type: evtType, Data: map[string]any{
		"runId":     runID,
		"status":    run.Status,
		"totalCost": run.TotalCost,
		"feasible":  run.Feasible,
	}}
	s.Progress.Put(tenant, runID, evt)
	s.Broker.Publish(runID, evt)
	s.Pub.Emit(ctx, tenant, hookType, run)
	return run
}

func (s *Server) finishFailed(ctx context.Context, tenant, instanceID string, cfg solver.Config, runID string, cause error) {
	run := model.RunOut{
		ID: runID, InstanceID: instanceID, Status: "failed",
		Metaheuristic: cfg.Metaheuristic.String(), Seed: cfg.Seed, Error: cause.Error(),
	}
	if stored, err := s.Store.CreateRun(ctx, tenant, run, nil); err == nil {
		run = stored
	}
	metrics.SolveRuns.WithLabelValues(cfg.Metaheuristic.String(), "failed").Inc()
	evt := Event{Type: "solve.failed", Data: map[string]any{
		"runId": runID, "status": "failed", "error": cause.Error(),
	}}
	s.Progress.Put(tenant, runID, evt)
	s.Broker.Publish(runID, evt)
	s.Pub.Emit(ctx, tenant, "run.failed", run)
}

// RunsIndexHandler handles GET /v1/runs.
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListRuns(r.Context(), p.Tenant, q.Get("instanceId"), q.Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} plus the /trace,
// /events/stream (SSE) and /ws (WebSocket) subresources.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	p := s.getPrincipal(r)

	if len(parts) > 1 {
		switch {
		case parts[1] == "trace" && len(parts) == 2:
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			trace, err := s.Store.GetRunTrace(r.Context(), p.Tenant, id)
			if err != nil {
				writeSolverProblem(w, err, r.URL.Path)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"runId": id, "trace": trace})
			return
		case parts[1] == "events" && len(parts) == 3 && parts[2] == "stream":
			s.streamRunEvents(w, r, id)
			return
		case parts[1] == "ws" && len(parts) == 2:
			s.ProgressWSHandler(w, r, id)
			return
		}
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	run, err := s.Store.GetRun(r.Context(), p.Tenant, id)
	if err != nil {
		writeSolverProblem(w, err, r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// streamRunEvents serves solve lifecycle events for one run over SSE
// with periodic heartbeats.
func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(runID)
	defer s.Broker.Unsubscribe(runID, ch)

	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"runId\":%q,\"ts\":%q}\n\n", runID, time.Now().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()
	// Replay the last known state for late subscribers.
	if snap, ok := s.Progress.Get(s.getPrincipal(r).Tenant, runID); ok {
		b, _ := json.Marshal(snap.Data)
		fmt.Fprintf(w, "event: %s\n", snap.Type)
		fmt.Fprintf(w, "data: %s\n\n", string(b))
		flusher.Flush()
	}
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			heartbeat()
		}
	}
}

// SolverConfigHandler handles GET/PUT /v1/solver/config: effective
// defaults on GET, per-tenant overrides on PUT (admin only).
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodGet:
		d := s.Defaults
		tenantCfg, _ := s.Store.GetSolverConfig(r.Context(), p.Tenant)
		applyTenantOverrides(&d, tenantCfg)
		writeJSON(w, http.StatusOK, map[string]any{
			"defaults": map[string]any{
				"metaheuristic":   d.Metaheuristic,
				"iterationLimit":  d.IterationLimit,
				"timeBudgetMs":    d.TimeBudgetMs,
				"seed":            d.Seed,
				"unservedPenalty": d.UnservedPenalty,
				"initialTemp":     d.SA.InitialTemp,
				"cooling":         d.SA.Cooling,
				"tenure":          d.Tabu.Tenure,
				"candidates":      d.Tabu.Candidates,
				"reward":          d.ALNS.Reward,
				"decay":           d.ALNS.Decay,
			},
			"overrides": tenantCfg,
		})
	case http.MethodPut:
		if !p.IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, http.StatusBadRequest, "Missing config", "", r.URL.Path)
			return
		}
		if v, ok := body.Config["metaheuristic"].(string); ok {
			if _, valid := solver.ParseMetaheuristic(v); !valid {
				writeProblem(w, http.StatusBadRequest, "Invalid config", "unknown metaheuristic: "+v, r.URL.Path)
				return
			}
		}
		if err := s.Store.SaveSolverConfig(r.Context(), p.Tenant, body.Config); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodPost:
		if !p.IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events required", r.URL.Path)
			return
		}
		req.TenantID = p.Tenant
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, r.URL.Query().Get("cursor"), limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Delete failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthHandler handles GET /healthz.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

// ReadyHandler handles GET /readyz.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
