package solver

import (
	"math/rand"
	"sort"
)

// OpKind names a neighborhood operator family.
type OpKind int

const (
	OpRelocate OpKind = iota
	OpSwap
	OpTwoOpt
	OpOrOpt
	OpCross
)

func (k OpKind) String() string {
	switch k {
	case OpRelocate:
		return "relocate"
	case OpSwap:
		return "swap"
	case OpTwoOpt:
		return "two_opt"
	case OpOrOpt:
		return "or_opt"
	case OpCross:
		return "cross_exchange"
	}
	return "unknown"
}

// Move is a proposed local modification: the replacement sequences for
// the affected route(s) and the exact cost delta of installing them.
// Applying the move and rescoring from scratch reproduces the delta.
type Move struct {
	Kind  OpKind
	RA    int
	RB    int // -1 for intra-route moves
	NewA  []int
	NewB  []int
	FromA int // first changed position, bounds the suffix refresh
	FromB int
	Delta float64
}

// arc is a directed edge of a route, depot endpoints included.
type arc struct{ u, v int }

func routeArcs(depot int, seq []int, into map[arc]struct{}) {
	prev := depot
	for _, n := range seq {
		into[arc{prev, n}] = struct{}{}
		prev = n
	}
	if len(seq) > 0 {
		into[arc{prev, depot}] = struct{}{}
	}
}

// addedArcs lists the arcs the move would create that the current
// routes do not have. Tabu search forbids recreating recently removed
// arcs through exactly this set.
func (m Move) addedArcs(s *Solution) []arc {
	old := make(map[arc]struct{})
	ra := s.Routes[m.RA]
	routeArcs(ra.Depot, ra.Seq, old)
	if m.RB >= 0 {
		rb := s.Routes[m.RB]
		routeArcs(rb.Depot, rb.Seq, old)
	}
	neu := make(map[arc]struct{})
	routeArcs(ra.Depot, m.NewA, neu)
	if m.RB >= 0 {
		routeArcs(s.Routes[m.RB].Depot, m.NewB, neu)
	}
	out := make([]arc, 0, 4)
	for a := range neu {
		if _, ok := old[a]; !ok {
			out = append(out, a)
		}
	}
	sortArcs(out)
	return out
}

// removedArcs lists the arcs the move would destroy; accepted moves
// feed these into the tabu memory.
func (m Move) removedArcs(s *Solution) []arc {
	neu := make(map[arc]struct{})
	ra := s.Routes[m.RA]
	routeArcs(ra.Depot, m.NewA, neu)
	if m.RB >= 0 {
		routeArcs(s.Routes[m.RB].Depot, m.NewB, neu)
	}
	old := make(map[arc]struct{})
	routeArcs(ra.Depot, ra.Seq, old)
	if m.RB >= 0 {
		rb := s.Routes[m.RB]
		routeArcs(rb.Depot, rb.Seq, old)
	}
	out := make([]arc, 0, 4)
	for a := range old {
		if _, ok := neu[a]; !ok {
			out = append(out, a)
		}
	}
	sortArcs(out)
	return out
}

// sortArcs orders arcs deterministically; map iteration order must not
// leak into tabu memory or seeded runs diverge.
func sortArcs(as []arc) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].u != as[j].u {
			return as[i].u < as[j].u
		}
		return as[i].v < as[j].v
	})
}

// Operator proposes candidate moves against the current solution. A
// proposal must reject hard-constraint violations itself and report the
// true cost delta including soft penalties.
type Operator interface {
	Name() string
	Propose(s *Solution, e *Evaluator, rng *rand.Rand) (Move, bool)
}

// DefaultOperators returns the standard operator library: relocate,
// swap, 2-opt, Or-opt (segments up to 3) and cross-exchange (segments
// up to 2).
func DefaultOperators() []Operator {
	return []Operator{
		relocateOp{},
		swapOp{},
		twoOptOp{},
		orOptOp{maxLen: 3},
		crossOp{maxLen: 2},
	}
}

func pickNonEmpty(s *Solution, rng *rand.Rand) (int, bool) {
	cand := make([]int, 0, len(s.Routes))
	for i, r := range s.Routes {
		if r.Len() > 0 {
			cand = append(cand, i)
		}
	}
	if len(cand) == 0 {
		return 0, false
	}
	return cand[rng.Intn(len(cand))], true
}

// scoreInter prices a two-route candidate, rejecting hard violations.
func scoreInter(s *Solution, e *Evaluator, ra, rb int, newA, newB []int) (float64, bool) {
	a, b := s.Routes[ra], s.Routes[rb]
	costA, hardA := e.SeqCost(a.Vehicle, a.Depot, newA)
	if hardA {
		return 0, false
	}
	costB, hardB := e.SeqCost(b.Vehicle, b.Depot, newB)
	if hardB {
		return 0, false
	}
	return costA + costB - a.Cost() - b.Cost(), true
}

func scoreIntra(s *Solution, e *Evaluator, ra int, newA []int) (float64, bool) {
	a := s.Routes[ra]
	costA, hard := e.SeqCost(a.Vehicle, a.Depot, newA)
	if hard {
		return 0, false
	}
	return costA - a.Cost(), true
}

func splice(seq []int, at int, seg ...int) []int {
	out := make([]int, 0, len(seq)+len(seg))
	out = append(out, seq[:at]...)
	out = append(out, seg...)
	out = append(out, seq[at:]...)
	return out
}

func cut(seq []int, i, length int) []int {
	out := make([]int, 0, len(seq)-length)
	out = append(out, seq[:i]...)
	out = append(out, seq[i+length:]...)
	return out
}

// relocateOp moves one node to another position, possibly in another
// route.
type relocateOp struct{}

func (relocateOp) Name() string { return OpRelocate.String() }

func (relocateOp) Propose(s *Solution, e *Evaluator, rng *rand.Rand) (Move, bool) {
	ra, ok := pickNonEmpty(s, rng)
	if !ok || len(s.Routes) == 0 {
		return Move{}, false
	}
	a := s.Routes[ra]
	i := rng.Intn(a.Len())
	node := a.Seq[i]
	rb := rng.Intn(len(s.Routes))
	if rb == ra {
		rest := cut(a.Seq, i, 1)
		j := rng.Intn(len(rest) + 1)
		if j == i {
			return Move{}, false
		}
		newA := splice(rest, j, node)
		delta, ok := scoreIntra(s, e, ra, newA)
		if !ok {
			return Move{}, false
		}
		return Move{Kind: OpRelocate, RA: ra, RB: -1, NewA: newA, FromA: min(i, j), Delta: delta}, true
	}
	b := s.Routes[rb]
	j := rng.Intn(b.Len() + 1)
	newA := cut(a.Seq, i, 1)
	newB := splice(b.Seq, j, node)
	delta, ok := scoreInter(s, e, ra, rb, newA, newB)
	if !ok {
		return Move{}, false
	}
	return Move{Kind: OpRelocate, RA: ra, RB: rb, NewA: newA, NewB: newB, FromA: i, FromB: j, Delta: delta}, true
}

// swapOp exchanges two nodes between positions or routes.
type swapOp struct{}

func (swapOp) Name() string { return OpSwap.String() }

func (swapOp) Propose(s *Solution, e *Evaluator, rng *rand.Rand) (Move, bool) {
	ra, ok := pickNonEmpty(s, rng)
	if !ok {
		return Move{}, false
	}
	rb, ok := pickNonEmpty(s, rng)
	if !ok {
		return Move{}, false
	}
	a, b := s.Routes[ra], s.Routes[rb]
	i, j := rng.Intn(a.Len()), rng.Intn(b.Len())
	if ra == rb {
		if i == j {
			return Move{}, false
		}
		newA := append([]int(nil), a.Seq...)
		newA[i], newA[j] = newA[j], newA[i]
		delta, ok := scoreIntra(s, e, ra, newA)
		if !ok {
			return Move{}, false
		}
		return Move{Kind: OpSwap, RA: ra, RB: -1, NewA: newA, FromA: min(i, j), Delta: delta}, true
	}
	newA := append([]int(nil), a.Seq...)
	newB := append([]int(nil), b.Seq...)
	newA[i], newB[j] = b.Seq[j], a.Seq[i]
	delta, ok := scoreInter(s, e, ra, rb, newA, newB)
	if !ok {
		return Move{}, false
	}
	return Move{Kind: OpSwap, RA: ra, RB: rb, NewA: newA, NewB: newB, FromA: i, FromB: j, Delta: delta}, true
}

// twoOptOp reverses a contiguous segment within one route.
type twoOptOp struct{}

func (twoOptOp) Name() string { return OpTwoOpt.String() }

func (twoOptOp) Propose(s *Solution, e *Evaluator, rng *rand.Rand) (Move, bool) {
	ra, ok := pickNonEmpty(s, rng)
	if !ok {
		return Move{}, false
	}
	a := s.Routes[ra]
	if a.Len() < 2 {
		return Move{}, false
	}
	i := rng.Intn(a.Len() - 1)
	j := i + 1 + rng.Intn(a.Len()-i-1)
	newA := append([]int(nil), a.Seq...)
	for x, y := i, j; x < y; x, y = x+1, y-1 {
		newA[x], newA[y] = newA[y], newA[x]
	}
	delta, ok := scoreIntra(s, e, ra, newA)
	if !ok {
		return Move{}, false
	}
	return Move{Kind: OpTwoOpt, RA: ra, RB: -1, NewA: newA, FromA: i, Delta: delta}, true
}

// orOptOp relocates a short segment, within a route or across routes.
type orOptOp struct{ maxLen int }

func (orOptOp) Name() string { return OpOrOpt.String() }

func (o orOptOp) Propose(s *Solution, e *Evaluator, rng *rand.Rand) (Move, bool) {
	ra, ok := pickNonEmpty(s, rng)
	if !ok {
		return Move{}, false
	}
	a := s.Routes[ra]
	maxLen := min(o.maxLen, a.Len())
	length := 1 + rng.Intn(maxLen)
	i := rng.Intn(a.Len() - length + 1)
	seg := append([]int(nil), a.Seq[i:i+length]...)
	rb := rng.Intn(len(s.Routes))
	if rb == ra {
		rest := cut(a.Seq, i, length)
		j := rng.Intn(len(rest) + 1)
		if j == i {
			return Move{}, false
		}
		newA := splice(rest, j, seg...)
		delta, ok := scoreIntra(s, e, ra, newA)
		if !ok {
			return Move{}, false
		}
		return Move{Kind: OpOrOpt, RA: ra, RB: -1, NewA: newA, FromA: min(i, j), Delta: delta}, true
	}
	b := s.Routes[rb]
	j := rng.Intn(b.Len() + 1)
	newA := cut(a.Seq, i, length)
	newB := splice(b.Seq, j, seg...)
	delta, ok := scoreInter(s, e, ra, rb, newA, newB)
	if !ok {
		return Move{}, false
	}
	return Move{Kind: OpOrOpt, RA: ra, RB: rb, NewA: newA, NewB: newB, FromA: i, FromB: j, Delta: delta}, true
}

// crossOp exchanges short segments between two distinct routes.
type crossOp struct{ maxLen int }

func (crossOp) Name() string { return OpCross.String() }

func (c crossOp) Propose(s *Solution, e *Evaluator, rng *rand.Rand) (Move, bool) {
	if len(s.Routes) < 2 {
		return Move{}, false
	}
	ra, ok := pickNonEmpty(s, rng)
	if !ok {
		return Move{}, false
	}
	rb, ok := pickNonEmpty(s, rng)
	if !ok || rb == ra {
		return Move{}, false
	}
	a, b := s.Routes[ra], s.Routes[rb]
	la := 1 + rng.Intn(min(c.maxLen, a.Len()))
	lb := 1 + rng.Intn(min(c.maxLen, b.Len()))
	i := rng.Intn(a.Len() - la + 1)
	j := rng.Intn(b.Len() - lb + 1)
	segA := append([]int(nil), a.Seq[i:i+la]...)
	segB := append([]int(nil), b.Seq[j:j+lb]...)
	newA := splice(cut(a.Seq, i, la), i, segB...)
	newB := splice(cut(b.Seq, j, lb), j, segA...)
	delta, ok := scoreInter(s, e, ra, rb, newA, newB)
	if !ok {
		return Move{}, false
	}
	return Move{Kind: OpCross, RA: ra, RB: rb, NewA: newA, NewB: newB, FromA: i, FromB: j, Delta: delta}, true
}
