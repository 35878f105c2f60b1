package api

import (
	"fmt"

	"routeopt/internal/model"
	"routeopt/internal/solver"
)

// validateInstanceIn rejects shapes the store should never accept; the
// solver re-validates semantics on every solve.
func validateInstanceIn(in *model.InstanceIn) error {
	if len(in.Nodes) == 0 {
		return fmt.Errorf("nodes must not be empty")
	}
	if len(in.Vehicles) == 0 {
		return fmt.Errorf("vehicles must not be empty")
	}
	seen := map[string]struct{}{}
	for i, n := range in.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d: id required", i)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate node id: %s", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for i, v := range in.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("vehicle %d: id required", i)
		}
		if len(v.Capacity) == 0 {
			return fmt.Errorf("vehicle %s: capacity required", v.ID)
		}
	}
	return nil
}

func validateSolveRequest(req *model.SolveRequest, maxRuns int) error {
	if req.InstanceID == "" {
		return fmt.Errorf("instanceId required")
	}
	if req.Metaheuristic != "" {
		if _, ok := solver.ParseMetaheuristic(req.Metaheuristic); !ok {
			return fmt.Errorf("invalid metaheuristic: %s", req.Metaheuristic)
		}
	}
	if req.IterationLimit < 0 {
		return fmt.Errorf("iterationLimit must be >= 0")
	}
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	if req.Runs < 0 || req.Runs > maxRuns {
		return fmt.Errorf("runs must be in [0,%d]", maxRuns)
	}
	if req.SA != nil && req.SA.Cooling != 0 && (req.SA.Cooling <= 0 || req.SA.Cooling >= 1) {
		return fmt.Errorf("sa.cooling must be in (0,1)")
	}
	if req.Tabu != nil && req.Tabu.Tenure < 0 {
		return fmt.Errorf("tabu.tenure must be >= 0")
	}
	if req.ALNS != nil && req.ALNS.Decay != 0 && (req.ALNS.Decay <= 0 || req.ALNS.Decay > 1) {
		return fmt.Errorf("alns.decay must be in (0,1]")
	}
	if req.Constraints != nil {
		for _, name := range req.Constraints.Enabled {
			if _, ok := solver.ParseConstraint(name); !ok {
				return fmt.Errorf("unknown constraint family: %s", name)
			}
		}
		for _, m := range []*model.ModeIn{req.Constraints.Capacity, req.Constraints.TimeWindow, req.Constraints.Fleet, req.Constraints.Depot} {
			if m != nil && !m.Hard && m.Weight < 0 {
				return fmt.Errorf("soft constraint weight must be >= 0")
			}
		}
	}
	return nil
}
