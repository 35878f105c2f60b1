package solver

import (
	"context"
	"log"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Metaheuristic selects the acceptance policy driving the improvement
// loop. Exactly one policy is active per run.
type Metaheuristic int

const (
	SimulatedAnnealing Metaheuristic = iota
	TabuSearch
	ALNS
)

func (m Metaheuristic) String() string {
	switch m {
	case SimulatedAnnealing:
		return "simulated_annealing"
	case TabuSearch:
		return "tabu_search"
	case ALNS:
		return "alns"
	}
	return "unknown"
}

// ParseMetaheuristic maps a wire name to the policy constant.
func ParseMetaheuristic(s string) (Metaheuristic, bool) {
	switch s {
	case "simulated_annealing", "sa":
		return SimulatedAnnealing, true
	case "tabu_search", "tabu":
		return TabuSearch, true
	case "alns":
		return ALNS, true
	}
	return 0, false
}

// SAParams tunes simulated annealing.
type SAParams struct {
	InitialTemp float64
	Cooling     float64 // per-iteration decay factor in (0,1)
}

// TabuParams tunes tabu search.
type TabuParams struct {
	Tenure     int // bounded memory of recently removed arcs
	Candidates int // candidates sampled per iteration
}

// ALNSParams tunes adaptive operator-weight selection.
type ALNSParams struct {
	Reward           float64
	Decay            float64
	RenormalizeEvery int
}

// Config holds everything one solve call needs beyond the instance.
type Config struct {
	Metaheuristic  Metaheuristic
	IterationLimit int
	TimeLimit      time.Duration
	Seed           int64
	Constraints    ConstraintConfig
	SA             SAParams
	Tabu           TabuParams
	ALNS           ALNSParams
	// Operators overrides the default operator library when non-empty.
	Operators []Operator
	// Progress, when set, is invoked every ProgressEvery iterations.
	ProgressEvery int
	Progress      func(ProgressEvent)
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Metaheuristic:  SimulatedAnnealing,
		IterationLimit: 20000,
		Seed:           1,
		Constraints:    DefaultConstraints(),
		SA:             SAParams{InitialTemp: 1.0, Cooling: 0.9995},
		Tabu:           TabuParams{Tenure: 25, Candidates: 8},
		ALNS:           ALNSParams{Reward: 0.2, Decay: 0.999, RenormalizeEvery: 200},
	}
}

// ProgressEvent is a snapshot of the search emitted to progress hooks.
type ProgressEvent struct {
	Iteration   int
	BestCost    float64
	CurrentCost float64
}

// Stop is one visit of a planned route.
type Stop struct {
	NodeID     string
	ArrivalSec float64 // service start
}

// PlannedRoute is an output route with its schedule and load.
type PlannedRoute struct {
	VehicleType string
	Depot       string
	Stops       []Stop
	Load        []float64
	Distance    float64
	Feasible    bool
}

// Result is what a solve call returns: the best solution found, its
// per-iteration best-cost trace, and the budget actually consumed. Err
// is non-nil only when the run aborted on a computation error; the
// result still carries the last known-good best.
type Result struct {
	Routes     []PlannedRoute
	Unserved   []string
	TotalCost  float64
	Feasible   bool
	Trace      []float64
	Iterations int
	Elapsed    time.Duration
	Err        error
}

// policy is the per-iteration decision surface of one metaheuristic.
type policy interface {
	candidates() int
	selectOp(rng *rand.Rand, n int) int
	admissible(s *Solution, m Move, bestCost float64) bool
	accept(delta float64, rng *rand.Rand) bool
	record(op int, removed []arc, accepted, newBest bool)
	tick()
}

func newPolicy(cfg Config, nOps int) policy {
	switch cfg.Metaheuristic {
	case TabuSearch:
		return newTabuPolicy(cfg.Tabu)
	case ALNS:
		return newALNSPolicy(cfg.ALNS, cfg.SA, nOps)
	default:
		return newSAPolicy(cfg.SA)
	}
}

// Solve validates the instance and runs one full search. Validation
// failures surface before any iteration runs; budget exhaustion is
// normal termination.
func Solve(ctx context.Context, inst *Instance, cfg Config) (Result, error) {
	if err := inst.Validate(); err != nil {
		return Result{}, err
	}
	if err := inst.CheckFleetCapacity(); err != nil {
		return Result{}, err
	}
	return solveValidated(ctx, inst, cfg), nil
}

func solveValidated(ctx context.Context, inst *Instance, cfg Config) Result {
	start := time.Now()
	if cfg.IterationLimit <= 0 && cfg.TimeLimit <= 0 {
		cfg.IterationLimit = DefaultConfig().IterationLimit
	}
	ops := cfg.Operators
	if len(ops) == 0 {
		ops = DefaultOperators()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	e := NewEvaluator(inst, cfg.Constraints)

	curr := Construct(inst, e)
	best := curr.Clone()
	pol := newPolicy(cfg, len(ops))

	var deadline time.Time
	if cfg.TimeLimit > 0 {
		deadline = start.Add(cfg.TimeLimit)
	}
	res := Result{}
	trace := make([]float64, 0, cfg.IterationLimit)
	iter := 0
	for {
		// Budget checks at the iteration boundary keep cancellation
		// cooperative: the loop always exits with a consistent best.
		if ctx != nil && ctx.Err() != nil {
			break
		}
		if cfg.IterationLimit > 0 && iter >= cfg.IterationLimit {
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}
		iter++

		op := pol.selectOp(rng, len(ops))
		var chosen Move
		found, nonFinite := false, false
		for c := 0; c < pol.candidates(); c++ {
			m, ok := ops[op].Propose(curr, e, rng)
			if !ok {
				continue
			}
			if math.IsNaN(m.Delta) || math.IsInf(m.Delta, 0) {
				nonFinite = true
				break
			}
			if !pol.admissible(curr, m, best.Cost()) {
				continue
			}
			if !found || m.Delta < chosen.Delta {
				chosen, found = m, true
			}
		}
		if nonFinite {
			res.Err = ErrComputation
			break
		}

		accepted, newBest := false, false
		if found && pol.accept(chosen.Delta, rng) {
			removed := chosen.removedArcs(curr)
			if err := curr.Apply(e, chosen); err != nil {
				// Structural invariant broken by the proposal; reject
				// the move and keep searching.
				log.Printf("solver: rejected %s move: %v", chosen.Kind, err)
			} else {
				accepted = true
				if curr.Cost() < best.Cost()-1e-9 {
					best = curr.Clone()
					newBest = true
				}
				pol.record(op, removed, true, newBest)
			}
		}
		if !accepted {
			pol.record(op, nil, false, false)
		}
		pol.tick()
		trace = append(trace, best.Cost())
		if cfg.Progress != nil && cfg.ProgressEvery > 0 && iter%cfg.ProgressEvery == 0 {
			cfg.Progress(ProgressEvent{Iteration: iter, BestCost: best.Cost(), CurrentCost: curr.Cost()})
		}
	}

	out := buildResult(e, best)
	out.Trace = trace
	out.Iterations = iter
	out.Elapsed = time.Since(start)
	out.Err = res.Err
	return out
}

func buildResult(e *Evaluator, best *Solution) Result {
	inst := e.Instance()
	res := Result{TotalCost: best.Cost(), Feasible: len(best.Unserved) == 0}
	for _, r := range best.Routes {
		if r.Len() == 0 {
			continue
		}
		feasible := e.RouteFeasible(r)
		if !feasible {
			res.Feasible = false
		}
		pr := PlannedRoute{
			VehicleType: inst.Vehicles[r.Vehicle].ID,
			Depot:       inst.Nodes[r.Depot].ID,
			Distance:    r.Distance(),
			Load:        append([]float64(nil), r.load...),
			Feasible:    feasible,
			Stops:       make([]Stop, 0, r.Len()),
		}
		for k, ni := range r.Seq {
			pr.Stops = append(pr.Stops, Stop{NodeID: inst.Nodes[ni].ID, ArrivalSec: r.arr[k]})
		}
		res.Routes = append(res.Routes, pr)
	}
	for n := range best.Unserved {
		res.Unserved = append(res.Unserved, inst.Nodes[n].ID)
	}
	sort.Strings(res.Unserved)
	return res
}
