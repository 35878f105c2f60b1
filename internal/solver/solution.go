package solver

import "fmt"

// Route is one vehicle's ordered visit sequence plus incremental caches
// (load vector, schedule, cumulative distance and lateness). Caches are
// maintained by the Solution mutation ops; only the suffix after a
// change point is recomputed.
type Route struct {
	Vehicle int // index into Instance.Vehicles
	Depot   int // node index of the start/end depot
	Seq     []int

	load    []float64
	arr     []float64 // service start per position
	dep     []float64 // departure per position
	cumDist []float64 // distance from depot through position
	cumLate []float64 // cumulative lateness through position
	retDist float64   // closing edge back to the depot
	tagViol int
	depViol int
	penalty float64
	hard    bool
}

// Len reports the number of stops.
func (r *Route) Len() int { return len(r.Seq) }

// Load returns the cached load vector.
func (r *Route) Load() []float64 { return r.load }

// Arrivals returns the cached service-start schedule.
func (r *Route) Arrivals() []float64 { return r.arr }

// Distance returns the cached total route distance.
func (r *Route) Distance() float64 {
	if len(r.Seq) == 0 {
		return 0
	}
	return r.cumDist[len(r.Seq)-1] + r.retDist
}

// Penalty returns the cached soft-constraint penalty.
func (r *Route) Penalty() float64 { return r.penalty }

// Cost is the route's contribution to the objective.
func (r *Route) Cost() float64 { return r.Distance() + r.penalty }

// lateness returns total cached lateness seconds.
func (r *Route) lateness() float64 {
	if len(r.Seq) == 0 {
		return 0
	}
	return r.cumLate[len(r.Seq)-1]
}

func (r *Route) clone() *Route {
	c := *r
	c.Seq = append([]int(nil), r.Seq...)
	c.load = append([]float64(nil), r.load...)
	c.arr = append([]float64(nil), r.arr...)
	c.dep = append([]float64(nil), r.dep...)
	c.cumDist = append([]float64(nil), r.cumDist...)
	c.cumLate = append([]float64(nil), r.cumLate...)
	return &c
}

// refreshFrom recomputes a route's schedule caches from position pos to
// the end, reusing the prefix. Load and violation counters are owned by
// the mutation ops.
func (e *Evaluator) refreshFrom(r *Route, pos int) {
	n := len(r.Seq)
	if pos > n {
		pos = n
	}
	r.arr = resizeF(r.arr, n)
	r.dep = resizeF(r.dep, n)
	r.cumDist = resizeF(r.cumDist, n)
	r.cumLate = resizeF(r.cumLate, n)
	var t, dist, late float64
	prev := r.Depot
	if pos > 0 {
		prev = r.Seq[pos-1]
		t = r.dep[pos-1]
		dist = r.cumDist[pos-1]
		late = r.cumLate[pos-1]
	}
	for k := pos; k < n; k++ {
		ni := r.Seq[k]
		node := e.inst.Nodes[ni]
		step := e.travel(prev, ni, t)
		dist += step
		t += step
		arrival := t
		service := arrival
		if e.cfg.Enabled.Has(TimeWindows) && node.Window != nil {
			if arrival < node.Window.Start {
				service = node.Window.Start
				if e.cfg.AllowWaiting {
					t = node.Window.Start
				}
			}
			if arrival > node.Window.End {
				late += arrival - node.Window.End
			}
		}
		r.arr[k] = service
		t += node.ServiceSec
		r.dep[k] = t
		r.cumDist[k] = dist
		r.cumLate[k] = late
		prev = ni
	}
	if n > 0 {
		r.retDist = e.travel(prev, r.Depot, t)
	} else {
		r.retDist = 0
	}
	v := e.inst.Vehicles[r.Vehicle]
	r.penalty, r.hard = e.penalize(e.overload(v, r.load), r.lateness(), r.tagViol, r.depViol)
}

// rebuild recomputes every cache of a route from its sequence.
func (e *Evaluator) rebuild(r *Route) {
	r.load = resizeF(r.load, e.dims)
	for d := range r.load {
		r.load[d] = 0
	}
	r.tagViol, r.depViol = 0, 0
	v := e.inst.Vehicles[r.Vehicle]
	for _, ni := range r.Seq {
		for d, q := range e.inst.Nodes[ni].Demand {
			r.load[d] += q
		}
		r.tagViol += e.nodeTagViol(v, ni)
		r.depViol += e.nodeDepotViol(r.Depot, ni)
	}
	e.refreshFrom(r, 0)
}

// RouteFeasible reports whether the route violates no enabled family.
func (e *Evaluator) RouteFeasible(r *Route) bool {
	v := e.inst.Vehicles[r.Vehicle]
	return e.overload(v, r.load) == 0 && r.lateness() == 0 && r.tagViol == 0 && r.depViol == 0
}

func resizeF(s []float64, n int) []float64 {
	if cap(s) >= n {
		return s[:n]
	}
	ns := make([]float64, n)
	copy(ns, s)
	return ns
}

// Solution is a full assignment of customers to routes plus the set of
// customers no route serves. The cached total cost tracks every
// mutation exactly.
type Solution struct {
	inst     *Instance
	Routes   []*Route
	Unserved map[int]struct{}
	cost     float64
}

// NewSolution returns an empty solution with every customer unserved.
func NewSolution(inst *Instance, e *Evaluator) *Solution {
	s := &Solution{inst: inst, Unserved: make(map[int]struct{})}
	for _, c := range inst.Customers() {
		s.Unserved[c] = struct{}{}
	}
	s.cost = float64(len(s.Unserved)) * e.cfg.UnservedPenalty
	return s
}

// Cost returns the cached objective value.
func (s *Solution) Cost() float64 { return s.cost }

// Clone deep-copies the solution; the instance stays shared read-only.
func (s *Solution) Clone() *Solution {
	c := &Solution{inst: s.inst, cost: s.cost, Unserved: make(map[int]struct{}, len(s.Unserved))}
	for n := range s.Unserved {
		c.Unserved[n] = struct{}{}
	}
	c.Routes = make([]*Route, len(s.Routes))
	for i, r := range s.Routes {
		c.Routes[i] = r.clone()
	}
	return c
}

// OpenRoute adds an empty route for the given vehicle type.
func (s *Solution) OpenRoute(e *Evaluator, vi int) int {
	r := &Route{Vehicle: vi, Depot: s.inst.homeDepot(s.inst.Vehicles[vi]), load: make([]float64, e.dims)}
	s.Routes = append(s.Routes, r)
	return len(s.Routes) - 1
}

// Insert places node at position pos of route ri, updating caches from
// pos onward. A node drawn from the unserved set stops paying its
// penalty.
func (s *Solution) Insert(e *Evaluator, ri, pos, node int) {
	r := s.Routes[ri]
	old := r.Cost()
	r.Seq = append(r.Seq, 0)
	copy(r.Seq[pos+1:], r.Seq[pos:])
	r.Seq[pos] = node
	v := e.inst.Vehicles[r.Vehicle]
	for d, q := range e.inst.Nodes[node].Demand {
		r.load[d] += q
	}
	r.tagViol += e.nodeTagViol(v, node)
	r.depViol += e.nodeDepotViol(r.Depot, node)
	e.refreshFrom(r, pos)
	s.cost += r.Cost() - old
	if _, ok := s.Unserved[node]; ok {
		delete(s.Unserved, node)
		s.cost -= e.cfg.UnservedPenalty
	}
}

// Remove deletes the node at position pos of route ri and moves it to
// the unserved set.
func (s *Solution) Remove(e *Evaluator, ri, pos int) int {
	r := s.Routes[ri]
	old := r.Cost()
	node := r.Seq[pos]
	r.Seq = append(r.Seq[:pos], r.Seq[pos+1:]...)
	v := e.inst.Vehicles[r.Vehicle]
	for d, q := range e.inst.Nodes[node].Demand {
		r.load[d] -= q
	}
	r.tagViol -= e.nodeTagViol(v, node)
	r.depViol -= e.nodeDepotViol(r.Depot, node)
	e.refreshFrom(r, pos)
	s.cost += r.Cost() - old
	s.Unserved[node] = struct{}{}
	s.cost += e.cfg.UnservedPenalty
	return node
}

// Reverse flips the segment [i, j] of route ri in place.
func (s *Solution) Reverse(e *Evaluator, ri, i, j int) {
	r := s.Routes[ri]
	old := r.Cost()
	for a, b := i, j; a < b; a, b = a+1, b-1 {
		r.Seq[a], r.Seq[b] = r.Seq[b], r.Seq[a]
	}
	e.refreshFrom(r, i)
	s.cost += r.Cost() - old
}

// MoveSegment relocates length nodes starting at position i of route
// from to position pos of route to (positions in the target are
// counted after removal when both routes are the same).
func (s *Solution) MoveSegment(e *Evaluator, from, i, length, to, pos int) {
	src := s.Routes[from]
	seg := append([]int(nil), src.Seq[i:i+length]...)
	rest := append(append([]int(nil), src.Seq[:i]...), src.Seq[i+length:]...)
	if from == to {
		out := append(append(append([]int(nil), rest[:pos]...), seg...), rest[pos:]...)
		s.applySeq(e, from, out, min(i, pos))
		return
	}
	dst := s.Routes[to]
	out := append(append(append([]int(nil), dst.Seq[:pos]...), seg...), dst.Seq[pos:]...)
	s.applySeq(e, from, rest, i)
	s.applySeq(e, to, out, pos)
}

// applySeq swaps in a new sequence for route ri, recomputing counters
// and the schedule suffix starting at from.
func (s *Solution) applySeq(e *Evaluator, ri int, seq []int, from int) {
	r := s.Routes[ri]
	old := r.Cost()
	r.Seq = seq
	r.load = resizeF(r.load, e.dims)
	for d := range r.load {
		r.load[d] = 0
	}
	r.tagViol, r.depViol = 0, 0
	v := e.inst.Vehicles[r.Vehicle]
	for _, ni := range seq {
		for d, q := range e.inst.Nodes[ni].Demand {
			r.load[d] += q
		}
		r.tagViol += e.nodeTagViol(v, ni)
		r.depViol += e.nodeDepotViol(r.Depot, ni)
	}
	e.refreshFrom(r, from)
	s.cost += r.Cost() - old
}

// Apply installs a move's proposed sequences after a structural check.
// The returned error means the move was rejected and the solution
// untouched.
func (s *Solution) Apply(e *Evaluator, m Move) error {
	if err := s.checkMove(m); err != nil {
		return err
	}
	s.applySeq(e, m.RA, m.NewA, m.FromA)
	if m.RB >= 0 {
		s.applySeq(e, m.RB, m.NewB, m.FromB)
	}
	return nil
}

// checkMove verifies that a move permutes exactly the nodes of its
// affected routes: no duplicates, no drops, no depots.
func (s *Solution) checkMove(m Move) error {
	if m.RA < 0 || m.RA >= len(s.Routes) || (m.RB >= len(s.Routes)) {
		return fmt.Errorf("move %s references route out of range", m.Kind)
	}
	counts := make(map[int]int)
	for _, n := range s.Routes[m.RA].Seq {
		counts[n]++
	}
	if m.RB >= 0 {
		for _, n := range s.Routes[m.RB].Seq {
			counts[n]++
		}
	}
	walk := func(seq []int) error {
		for _, n := range seq {
			if s.inst.Nodes[n].Depot {
				return fmt.Errorf("move %s inserts depot node %q", m.Kind, s.inst.Nodes[n].ID)
			}
			counts[n]--
			if counts[n] < 0 {
				return fmt.Errorf("move %s duplicates node %q", m.Kind, s.inst.Nodes[n].ID)
			}
		}
		return nil
	}
	if err := walk(m.NewA); err != nil {
		return err
	}
	if m.RB >= 0 {
		if err := walk(m.NewB); err != nil {
			return err
		}
	}
	for n, c := range counts {
		if c != 0 {
			return fmt.Errorf("move %s drops node %q", m.Kind, s.inst.Nodes[n].ID)
		}
	}
	return nil
}

// CheckInvariants validates the structural invariants of the whole
// solution: every customer in exactly one route or the unserved set,
// and route counts within the fleet.
func (s *Solution) CheckInvariants() error {
	seen := make(map[int]int)
	for ri, r := range s.Routes {
		for _, n := range r.Seq {
			if s.inst.Nodes[n].Depot {
				return fmt.Errorf("route %d contains depot %q", ri, s.inst.Nodes[n].ID)
			}
			seen[n]++
		}
	}
	for n := range s.Unserved {
		seen[n]++
	}
	for _, c := range s.inst.Customers() {
		if seen[c] != 1 {
			return fmt.Errorf("customer %q appears %d times", s.inst.Nodes[c].ID, seen[c])
		}
	}
	perType := make(map[int]int)
	for _, r := range s.Routes {
		perType[r.Vehicle]++
	}
	for vi, n := range perType {
		if n > s.inst.Vehicles[vi].Count {
			return fmt.Errorf("vehicle type %q has %d routes for %d vehicles", s.inst.Vehicles[vi].ID, n, s.inst.Vehicles[vi].Count)
		}
	}
	return nil
}
