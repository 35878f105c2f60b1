package solver

import "math"

// Constraint is a capability-set flag naming one optional constraint
// family. Capacity is always enforced and has no flag.
type Constraint uint8

const (
	TimeWindows Constraint = 1 << iota
	HeterogeneousFleet
	DynamicTraffic
	MultiDepot
)

// Has reports whether the set contains the given family.
func (c Constraint) Has(f Constraint) bool { return c&f != 0 }

// ParseConstraint maps a wire name to its flag.
func ParseConstraint(s string) (Constraint, bool) {
	switch s {
	case "time_windows":
		return TimeWindows, true
	case "heterogeneous_fleet":
		return HeterogeneousFleet, true
	case "dynamic_traffic":
		return DynamicTraffic, true
	case "multi_depot":
		return MultiDepot, true
	}
	return 0, false
}

// Mode declares how violations of one constraint family are treated:
// hard (candidate rejected outright) or soft (violation × weight added
// to the penalty, letting the search pass through infeasible space).
type Mode struct {
	Hard   bool
	Weight float64
}

// HardMode rejects violating candidates.
func HardMode() Mode { return Mode{Hard: true} }

// SoftMode penalizes violations with the given weight.
func SoftMode(weight float64) Mode { return Mode{Weight: weight} }

// ConstraintConfig selects the enabled families and the handling mode
// per family.
type ConstraintConfig struct {
	Enabled    Constraint
	Capacity   Mode
	TimeWindow Mode
	Fleet      Mode
	Depot      Mode
	// AllowWaiting delays departure until a window opens; without it
	// the clock is not advanced for early arrivals.
	AllowWaiting bool
	// UnservedPenalty is the fixed cost of leaving one customer out.
	UnservedPenalty float64
}

// DefaultConstraints treats every family as hard with a large fixed
// penalty per unserved customer.
func DefaultConstraints() ConstraintConfig {
	return ConstraintConfig{
		Capacity:        HardMode(),
		TimeWindow:      HardMode(),
		Fleet:           HardMode(),
		Depot:           HardMode(),
		UnservedPenalty: 1e6,
	}
}

// RouteMetrics is the full evaluation of one route sequence.
type RouteMetrics struct {
	Load        []float64
	Distance    float64
	Arrivals    []float64 // service start per stop
	Overload    float64   // summed over capacity dimensions
	LatenessSec float64
	TagViol     int
	DepotViol   int
	Penalty     float64
	Hard        bool // a hard-mode family is violated
}

// Cost is the route's contribution to the solution objective.
func (m RouteMetrics) Cost() float64 { return m.Distance + m.Penalty }

// Feasible reports whether the route violates no enabled family at all,
// soft or hard.
func (m RouteMetrics) Feasible() bool {
	return m.Overload == 0 && m.LatenessSec == 0 && m.TagViol == 0 && m.DepotViol == 0
}

// Evaluator maps route sequences to feasibility and penalty under one
// constraint configuration. It is pure: it never mutates the instance.
type Evaluator struct {
	inst *Instance
	cfg  ConstraintConfig
	dims int
}

// NewEvaluator binds an instance to a constraint configuration.
func NewEvaluator(inst *Instance, cfg ConstraintConfig) *Evaluator {
	return &Evaluator{inst: inst, cfg: cfg, dims: inst.demandDims()}
}

// Config returns the active constraint configuration.
func (e *Evaluator) Config() ConstraintConfig { return e.cfg }

// Instance returns the bound instance.
func (e *Evaluator) Instance() *Instance { return e.inst }

func (e *Evaluator) travel(i, j int, depart float64) float64 {
	if e.cfg.Enabled.Has(DynamicTraffic) {
		return e.inst.Matrix.At(i, j, depart)
	}
	return e.inst.Matrix.Static(i, j)
}

// nodeTagViol counts capability tags the vehicle lacks for the node.
func (e *Evaluator) nodeTagViol(v VehicleType, ni int) int {
	if !e.cfg.Enabled.Has(HeterogeneousFleet) {
		return 0
	}
	viol := 0
	for _, t := range e.inst.Nodes[ni].Tags {
		found := false
		for _, vt := range v.Tags {
			if vt == t {
				found = true
				break
			}
		}
		if !found {
			viol++
		}
	}
	return viol
}

// nodeDepotViol reports 1 when the node's depot affinity excludes the
// route's depot.
func (e *Evaluator) nodeDepotViol(depot, ni int) int {
	if !e.cfg.Enabled.Has(MultiDepot) {
		return 0
	}
	allowed := e.inst.Nodes[ni].AllowedDepots
	if len(allowed) == 0 {
		return 0
	}
	id := e.inst.Nodes[depot].ID
	for _, a := range allowed {
		if a == id {
			return 0
		}
	}
	return 1
}

// overload sums per-dimension capacity excess. Dimensions beyond the
// vehicle's capacity vector are unconstrained.
func (e *Evaluator) overload(v VehicleType, load []float64) float64 {
	over := 0.0
	for d := 0; d < len(v.Capacity) && d < len(load); d++ {
		if ex := load[d] - v.Capacity[d]; ex > 0 {
			over += ex
		}
	}
	return over
}

// penalize converts violation magnitudes into (penalty, hard) under the
// configured modes.
func (e *Evaluator) penalize(over, late float64, tagViol, depViol int) (float64, bool) {
	pen, hard := 0.0, false
	apply := func(mag float64, m Mode) {
		if mag <= 0 {
			return
		}
		if m.Hard {
			hard = true
			return
		}
		pen += mag * m.Weight
	}
	apply(over, e.cfg.Capacity)
	apply(late, e.cfg.TimeWindow)
	apply(float64(tagViol), e.cfg.Fleet)
	apply(float64(depViol), e.cfg.Depot)
	return pen, hard
}

// SeqMetrics evaluates a full candidate sequence for the given vehicle
// type and depot. Operators use it to score candidate routes; applied
// routes keep incremental caches instead (see solution.go).
func (e *Evaluator) SeqMetrics(vi, depot int, seq []int) RouteMetrics {
	v := e.inst.Vehicles[vi]
	m := RouteMetrics{
		Load:     make([]float64, e.dims),
		Arrivals: make([]float64, 0, len(seq)),
	}
	t, prev := 0.0, depot
	for _, ni := range seq {
		n := e.inst.Nodes[ni]
		step := e.travel(prev, ni, t)
		m.Distance += step
		t += step
		arrival := t
		service := arrival
		if e.cfg.Enabled.Has(TimeWindows) && n.Window != nil {
			if arrival < n.Window.Start {
				service = n.Window.Start
				if e.cfg.AllowWaiting {
					t = n.Window.Start
				}
			}
			if arrival > n.Window.End {
				m.LatenessSec += arrival - n.Window.End
			}
		}
		m.Arrivals = append(m.Arrivals, service)
		t += n.ServiceSec
		for d := 0; d < len(n.Demand); d++ {
			m.Load[d] += n.Demand[d]
		}
		m.TagViol += e.nodeTagViol(v, ni)
		m.DepotViol += e.nodeDepotViol(depot, ni)
		prev = ni
	}
	if len(seq) > 0 {
		m.Distance += e.travel(prev, depot, t)
	}
	m.Overload = e.overload(v, m.Load)
	m.Penalty, m.Hard = e.penalize(m.Overload, m.LatenessSec, m.TagViol, m.DepotViol)
	return m
}

// SeqCost is SeqMetrics reduced to (cost, hard) without allocating the
// per-stop arrays; it is the hot path of candidate evaluation.
func (e *Evaluator) SeqCost(vi, depot int, seq []int) (float64, bool) {
	v := e.inst.Vehicles[vi]
	load := make([]float64, e.dims)
	dist, late := 0.0, 0.0
	tagViol, depViol := 0, 0
	t, prev := 0.0, depot
	for _, ni := range seq {
		n := e.inst.Nodes[ni]
		step := e.travel(prev, ni, t)
		dist += step
		t += step
		if e.cfg.Enabled.Has(TimeWindows) && n.Window != nil {
			if t < n.Window.Start && e.cfg.AllowWaiting {
				t = n.Window.Start
			} else if t > n.Window.End {
				late += t - n.Window.End
			}
		}
		t += n.ServiceSec
		for d := 0; d < len(n.Demand); d++ {
			load[d] += n.Demand[d]
		}
		tagViol += e.nodeTagViol(v, ni)
		depViol += e.nodeDepotViol(depot, ni)
		prev = ni
	}
	if len(seq) > 0 {
		dist += e.travel(prev, depot, t)
	}
	pen, hard := e.penalize(e.overload(v, load), late, tagViol, depViol)
	if math.IsNaN(dist) || math.IsInf(dist, 0) {
		return math.Inf(1), hard
	}
	return dist + pen, hard
}

// SolutionCost recomputes the full objective from scratch. The search
// itself works from cached per-route costs; this exists for validation
// and tests of the incremental deltas.
func (e *Evaluator) SolutionCost(s *Solution) float64 {
	total := float64(len(s.Unserved)) * e.cfg.UnservedPenalty
	for _, r := range s.Routes {
		c, _ := e.SeqCost(r.Vehicle, r.Depot, r.Seq)
		total += c
	}
	return total
}
