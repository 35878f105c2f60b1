package api

import (
	"fmt"
	"time"

	"routeopt/internal/config"
	"routeopt/internal/model"
	"routeopt/internal/solver"
)

// toSolverInstance maps the wire instance onto the solver's model. The
// solver validates semantics itself; this only rejects shapes it cannot
// represent at all.
func toSolverInstance(in model.InstanceIn) (*solver.Instance, error) {
	nodes := make([]solver.Node, 0, len(in.Nodes))
	for _, n := range in.Nodes {
		node := solver.Node{
			ID:            n.ID,
			X:             n.X,
			Y:             n.Y,
			Demand:        n.Demand,
			ServiceSec:    n.ServiceSec,
			Depot:         n.Depot,
			Tags:          n.Tags,
			AllowedDepots: n.AllowedDepots,
		}
		if n.Window != nil {
			node.Window = &solver.TimeWindow{Start: n.Window.Start, End: n.Window.End}
		}
		nodes = append(nodes, node)
	}
	vehicles := make([]solver.VehicleType, 0, len(in.Vehicles))
	for _, v := range in.Vehicles {
		vehicles = append(vehicles, solver.VehicleType{
			ID: v.ID, Capacity: v.Capacity, Count: v.Count, Tags: v.Tags, Depot: v.Depot,
		})
	}
	var m *solver.Matrix
	if in.Matrix != nil {
		if len(in.Matrix.Slots) == 0 {
			return nil, fmt.Errorf("matrix needs at least one slot")
		}
		n := len(nodes)
		m = solver.NewTimeSliced(n, len(in.Matrix.Slots), in.Matrix.SlotSec)
		for si, slot := range in.Matrix.Slots {
			if len(slot) != n {
				return nil, fmt.Errorf("matrix slot %d: %d rows, want %d", si, len(slot), n)
			}
			for i, row := range slot {
				if len(row) != n {
					return nil, fmt.Errorf("matrix slot %d row %d: %d cols, want %d", si, i, len(row), n)
				}
				for j, c := range row {
					m.Set(si, i, j, c)
				}
			}
		}
	}
	return solver.NewInstance(nodes, vehicles, m), nil
}

// toConstraints builds the evaluator configuration from the request,
// defaulting every family to hard mode.
func toConstraints(in *model.ConstraintsIn, unservedPenalty float64) (solver.ConstraintConfig, error) {
	cfg := solver.DefaultConstraints()
	cfg.UnservedPenalty = unservedPenalty
	if in == nil {
		return cfg, nil
	}
	if len(in.Enabled) > 0 {
		cfg.Enabled = 0
		for _, name := range in.Enabled {
			c, ok := solver.ParseConstraint(name)
			if !ok {
				return cfg, fmt.Errorf("unknown constraint family: %s", name)
			}
			cfg.Enabled |= c
		}
	}
	if m := toMode(in.Capacity); m != nil {
		cfg.Capacity = *m
	}
	if m := toMode(in.TimeWindow); m != nil {
		cfg.TimeWindow = *m
	}
	if m := toMode(in.Fleet); m != nil {
		cfg.Fleet = *m
	}
	if m := toMode(in.Depot); m != nil {
		cfg.Depot = *m
	}
	if in.AllowWaiting != nil {
		cfg.AllowWaiting = *in.AllowWaiting
	}
	if in.UnservedPenalty > 0 {
		cfg.UnservedPenalty = in.UnservedPenalty
	}
	return cfg, nil
}

func toMode(m *model.ModeIn) *solver.Mode {
	if m == nil {
		return nil
	}
	if m.Hard {
		h := solver.HardMode()
		return &h
	}
	s := solver.SoftMode(m.Weight)
	return &s
}

// toSolverConfig layers request knobs over per-tenant overrides over
// service defaults.
func toSolverConfig(req model.SolveRequest, defaults config.Solver, tenantCfg map[string]any) (solver.Config, error) {
	d := defaults
	applyTenantOverrides(&d, tenantCfg)

	cfg := solver.DefaultConfig()
	name := req.Metaheuristic
	if name == "" {
		name = d.Metaheuristic
	}
	mh, ok := solver.ParseMetaheuristic(name)
	if !ok {
		return solver.Config{}, fmt.Errorf("unknown metaheuristic: %s", name)
	}
	cfg.Metaheuristic = mh
	cfg.IterationLimit = d.IterationLimit
	if req.IterationLimit > 0 {
		cfg.IterationLimit = req.IterationLimit
	}
	cfg.TimeLimit = time.Duration(d.TimeBudgetMs) * time.Millisecond
	if req.TimeBudgetMs > 0 {
		cfg.TimeLimit = time.Duration(req.TimeBudgetMs) * time.Millisecond
	}
	cfg.Seed = d.Seed
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	cfg.SA = solver.SAParams{InitialTemp: d.SA.InitialTemp, Cooling: d.SA.Cooling}
	if req.SA != nil {
		if req.SA.InitialTemp > 0 {
			cfg.SA.InitialTemp = req.SA.InitialTemp
		}
		if req.SA.Cooling > 0 {
			cfg.SA.Cooling = req.SA.Cooling
		}
	}
	cfg.Tabu = solver.TabuParams{Tenure: d.Tabu.Tenure, Candidates: d.Tabu.Candidates}
	if req.Tabu != nil {
		if req.Tabu.Tenure > 0 {
			cfg.Tabu.Tenure = req.Tabu.Tenure
		}
		if req.Tabu.Candidates > 0 {
			cfg.Tabu.Candidates = req.Tabu.Candidates
		}
	}
	cfg.ALNS = solver.ALNSParams{Reward: d.ALNS.Reward, Decay: d.ALNS.Decay, RenormalizeEvery: d.ALNS.RenormalizeEvery}
	if req.ALNS != nil {
		if req.ALNS.Reward > 0 {
			cfg.ALNS.Reward = req.ALNS.Reward
		}
		if req.ALNS.Decay > 0 {
			cfg.ALNS.Decay = req.ALNS.Decay
		}
		if req.ALNS.RenormalizeEvery > 0 {
			cfg.ALNS.RenormalizeEvery = req.ALNS.RenormalizeEvery
		}
	}
	constraints, err := toConstraints(req.Constraints, d.UnservedPenalty)
	if err != nil {
		return solver.Config{}, err
	}
	cfg.Constraints = constraints
	return cfg, nil
}

// applyTenantOverrides applies the flat key/value overrides stored via
// the solver-config API. Unknown keys are ignored.
func applyTenantOverrides(d *config.Solver, cfg map[string]any) {
	if cfg == nil {
		return
	}
	if v, ok := cfg["metaheuristic"].(string); ok {
		d.Metaheuristic = v
	}
	if v, ok := asFloat(cfg["iterationLimit"]); ok {
		d.IterationLimit = int(v)
	}
	if v, ok := asFloat(cfg["timeBudgetMs"]); ok {
		d.TimeBudgetMs = int(v)
	}
	if v, ok := asFloat(cfg["seed"]); ok {
		d.Seed = int64(v)
	}
	if v, ok := asFloat(cfg["unservedPenalty"]); ok {
		d.UnservedPenalty = v
	}
	if v, ok := asFloat(cfg["initialTemp"]); ok {
		d.SA.InitialTemp = v
	}
	if v, ok := asFloat(cfg["cooling"]); ok {
		d.SA.Cooling = v
	}
	if v, ok := asFloat(cfg["tenure"]); ok {
		d.Tabu.Tenure = int(v)
	}
	if v, ok := asFloat(cfg["candidates"]); ok {
		d.Tabu.Candidates = int(v)
	}
	if v, ok := asFloat(cfg["reward"]); ok {
		d.ALNS.Reward = v
	}
	if v, ok := asFloat(cfg["decay"]); ok {
		d.ALNS.Decay = v
	}
}

// asFloat tolerates the numeric types JSON decoding produces.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// toRunOut flattens a solver result into the wire run record.
func toRunOut(runID, instanceID string, mh solver.Metaheuristic, seed int64, res solver.Result) model.RunOut {
	out := model.RunOut{
		ID:            runID,
		InstanceID:    instanceID,
		Status:        "completed",
		Metaheuristic: mh.String(),
		Seed:          seed,
		TotalCost:     res.TotalCost,
		Feasible:      res.Feasible,
		Iterations:    res.Iterations,
		ElapsedMs:     res.Elapsed.Milliseconds(),
		Unserved:      res.Unserved,
		Routes:        make([]model.RouteOut, 0, len(res.Routes)),
	}
	if res.Err != nil {
		out.Status = "failed"
		out.Error = res.Err.Error()
	}
	for _, r := range res.Routes {
		ro := model.RouteOut{
			VehicleType: r.VehicleType,
			Depot:       r.Depot,
			Load:        r.Load,
			Distance:    r.Distance,
			Feasible:    r.Feasible,
			Stops:       make([]model.StopOut, 0, len(r.Stops)),
		}
		for _, st := range r.Stops {
			ro.Stops = append(ro.Stops, model.StopOut{NodeID: st.NodeID, ArrivalSec: st.ArrivalSec})
		}
		out.Routes = append(out.Routes, ro)
	}
	return out
}
