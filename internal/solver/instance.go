// Package solver implements the route optimization core: the instance
// model, constraint evaluation, the construction heuristic, neighborhood
// operators, and the metaheuristic search engine (simulated annealing,
// tabu search, ALNS).
package solver

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrValidation wraps structural problems found in an instance.
	ErrValidation = errors.New("invalid instance")
	// ErrInfeasible is returned when total demand exceeds total fleet
	// capacity, so no assignment can serve every customer.
	ErrInfeasible = errors.New("infeasible instance")
	// ErrComputation flags a non-finite cost encountered mid-search.
	ErrComputation = errors.New("non-finite cost encountered")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// TimeWindow is the interval during which service at a node may begin,
// in seconds from the start of the planning day.
type TimeWindow struct {
	Start float64
	End   float64
}

// Node is a depot or customer location.
type Node struct {
	ID         string
	X, Y       float64
	Demand     []float64 // per capacity dimension; empty for depots
	Window     *TimeWindow
	ServiceSec float64
	Depot      bool
	Tags       []string // capabilities required from the serving vehicle
	// AllowedDepots restricts which depots may serve this node
	// (multi-depot affinity). Empty means any depot.
	AllowedDepots []string
}

// VehicleType describes a class of identical vehicles.
type VehicleType struct {
	ID       string
	Capacity []float64
	Count    int
	Tags     []string // capabilities offered
	Depot    string   // home depot node ID; empty means the first depot
}

// Matrix holds travel costs between node pairs, optionally sliced by
// time of day. With a single slot the matrix is static.
type Matrix struct {
	n       int
	slotSec float64
	slots   [][]float64
}

// NewMatrix returns a static (single-slot) n×n matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, slots: [][]float64{make([]float64, n*n)}}
}

// NewTimeSliced returns a matrix with numSlots slices, each covering
// slotSec seconds of the day. Departure times wrap around the horizon.
func NewTimeSliced(n, numSlots int, slotSec float64) *Matrix {
	if numSlots < 1 {
		numSlots = 1
	}
	s := make([][]float64, numSlots)
	for i := range s {
		s[i] = make([]float64, n*n)
	}
	return &Matrix{n: n, slotSec: slotSec, slots: s}
}

// Slots reports the number of time slices.
func (m *Matrix) Slots() int { return len(m.slots) }

// Set assigns the cost from i to j within the given slot.
func (m *Matrix) Set(slot, i, j int, cost float64) {
	m.slots[slot][i*m.n+j] = cost
}

// Static returns the slot-0 cost from i to j.
func (m *Matrix) Static(i, j int) float64 { return m.slots[0][i*m.n+j] }

// At resolves the cost from i to j for a departure at departSec.
func (m *Matrix) At(i, j int, departSec float64) float64 {
	if len(m.slots) == 1 {
		return m.slots[0][i*m.n+j]
	}
	return m.slots[m.slotFor(departSec)][i*m.n+j]
}

// EuclideanMatrix builds a static matrix from node coordinates.
func EuclideanMatrix(nodes []Node) *Matrix {
	m := NewMatrix(len(nodes))
	for i := range nodes {
		for j := range nodes {
			dx := nodes[i].X - nodes[j].X
			dy := nodes[i].Y - nodes[j].Y
			m.slots[0][i*len(nodes)+j] = math.Hypot(dx, dy)
		}
	}
	return m
}

// Instance is the immutable description of one routing problem. It is
// created once per solve call and never mutated afterward, so parallel
// runs may share it without locking.
type Instance struct {
	Nodes    []Node
	Vehicles []VehicleType
	Matrix   *Matrix

	depots []int
	byID   map[string]int
}

// NewInstance assembles an instance. A nil matrix defaults to Euclidean
// distances over node coordinates.
func NewInstance(nodes []Node, vehicles []VehicleType, m *Matrix) *Instance {
	if m == nil {
		m = EuclideanMatrix(nodes)
	}
	in := &Instance{Nodes: nodes, Vehicles: vehicles, Matrix: m, byID: make(map[string]int, len(nodes))}
	for i, n := range nodes {
		in.byID[n.ID] = i
		if n.Depot {
			in.depots = append(in.depots, i)
		}
	}
	return in
}

// Depots returns the indices of all depot nodes.
func (in *Instance) Depots() []int { return in.depots }

// Lookup resolves a node ID to its index.
func (in *Instance) Lookup(id string) (int, bool) {
	i, ok := in.byID[id]
	return i, ok
}

// Customers returns the indices of all non-depot nodes.
func (in *Instance) Customers() []int {
	out := make([]int, 0, len(in.Nodes))
	for i, n := range in.Nodes {
		if !n.Depot {
			out = append(out, i)
		}
	}
	return out
}

// homeDepot returns the node index of a vehicle type's start/end depot.
func (in *Instance) homeDepot(v VehicleType) int {
	if v.Depot != "" {
		if i, ok := in.byID[v.Depot]; ok {
			return i
		}
	}
	if len(in.depots) > 0 {
		return in.depots[0]
	}
	return -1
}

// Validate checks the instance for structural well-formedness. It is
// called at solve entry before any search iteration runs.
func (in *Instance) Validate() error {
	if len(in.depots) == 0 {
		return validationf("at least one depot is required")
	}
	seen := make(map[string]bool, len(in.Nodes))
	for i, n := range in.Nodes {
		if n.ID == "" {
			return validationf("node %d has empty id", i)
		}
		if seen[n.ID] {
			return validationf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
		for d, q := range n.Demand {
			if q < 0 {
				return validationf("node %q demand[%d] is negative", n.ID, d)
			}
			if n.Depot && q != 0 {
				return validationf("depot %q must have zero demand", n.ID)
			}
		}
		if n.ServiceSec < 0 {
			return validationf("node %q service time is negative", n.ID)
		}
		if n.Window != nil && n.Window.Start > n.Window.End {
			return validationf("node %q time window start %.1f exceeds end %.1f", n.ID, n.Window.Start, n.Window.End)
		}
		for _, dep := range n.AllowedDepots {
			di, ok := in.byID[dep]
			if !ok || !in.Nodes[di].Depot {
				return validationf("node %q allows unknown depot %q", n.ID, dep)
			}
		}
	}
	if len(in.Vehicles) == 0 {
		return validationf("at least one vehicle type is required")
	}
	for _, v := range in.Vehicles {
		if v.Count < 0 {
			return validationf("vehicle type %q count is negative", v.ID)
		}
		for d, c := range v.Capacity {
			if c < 0 {
				return validationf("vehicle type %q capacity[%d] is negative", v.ID, d)
			}
		}
		if v.Depot != "" {
			di, ok := in.byID[v.Depot]
			if !ok || !in.Nodes[di].Depot {
				return validationf("vehicle type %q references unknown depot %q", v.ID, v.Depot)
			}
		}
	}
	if in.Matrix == nil || in.Matrix.n != len(in.Nodes) {
		return validationf("matrix dimension does not match node count")
	}
	for s, slot := range in.Matrix.slots {
		for k, c := range slot {
			if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
				return validationf("matrix slot %d entry %d is negative or non-finite", s, k)
			}
		}
	}
	return nil
}

// CheckFleetCapacity verifies that total demand fits the total fleet
// capacity per dimension. Dimensions a vehicle type does not declare
// are unconstrained for that type.
func (in *Instance) CheckFleetCapacity() error {
	dims := in.demandDims()
	for d := 0; d < dims; d++ {
		total := 0.0
		for _, n := range in.Nodes {
			if d < len(n.Demand) {
				total += n.Demand[d]
			}
		}
		cap, bounded := 0.0, true
		for _, v := range in.Vehicles {
			if d >= len(v.Capacity) {
				bounded = false
				break
			}
			cap += float64(v.Count) * v.Capacity[d]
		}
		if bounded && total > cap {
			return fmt.Errorf("%w: demand %.3f exceeds fleet capacity %.3f in dimension %d", ErrInfeasible, total, cap, d)
		}
	}
	return nil
}

func (in *Instance) demandDims() int {
	dims := 0
	for _, n := range in.Nodes {
		if len(n.Demand) > dims {
			dims = len(n.Demand)
		}
	}
	return dims
}
