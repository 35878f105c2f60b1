package solver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// lineInstance puts n customers on the x axis at 1..n, demand 1 each.
func lineInstance(n int, capacity float64, count int) *Instance {
	nodes := []Node{{ID: "d0", Depot: true}}
	for i := 1; i <= n; i++ {
		nodes = append(nodes, Node{ID: nodeID(i), X: float64(i), Demand: []float64{1}})
	}
	return NewInstance(nodes, singleFleet(capacity, count), nil)
}

func nodeID(i int) string { return "c" + string(rune('0'+i)) }

func TestIncrementalOpsMatchScratchCost(t *testing.T) {
	inst := lineInstance(6, 10, 2)
	e := NewEvaluator(inst, DefaultConstraints())
	s := NewSolution(inst, e)

	r0 := s.OpenRoute(e, 0)
	r1 := s.OpenRoute(e, 0)
	for i, n := range []int{1, 3, 5} {
		s.Insert(e, r0, i, n)
	}
	for i, n := range []int{2, 4} {
		s.Insert(e, r1, i, n)
	}
	s.Insert(e, r1, 2, 6)
	require.InDelta(t, e.SolutionCost(s), s.Cost(), 1e-9)

	s.Reverse(e, r0, 0, 2)
	require.InDelta(t, e.SolutionCost(s), s.Cost(), 1e-9)

	s.MoveSegment(e, r1, 0, 2, r0, 1)
	require.InDelta(t, e.SolutionCost(s), s.Cost(), 1e-9)

	s.MoveSegment(e, r0, 1, 1, r0, 3)
	require.InDelta(t, e.SolutionCost(s), s.Cost(), 1e-9)

	node := s.Remove(e, r0, 0)
	require.InDelta(t, e.SolutionCost(s), s.Cost(), 1e-9)
	require.Contains(t, s.Unserved, node)

	s.Insert(e, r1, 0, node)
	require.InDelta(t, e.SolutionCost(s), s.Cost(), 1e-9)
	require.NoError(t, s.CheckInvariants())
}

func TestRouteCachesTrackSchedule(t *testing.T) {
	nodes := depotAnd(
		Node{ID: "c1", X: 10, Demand: []float64{1}, ServiceSec: 5, Window: &TimeWindow{Start: 20, End: 100}},
		Node{ID: "c2", X: 30, Demand: []float64{1}},
	)
	inst := NewInstance(nodes, singleFleet(10, 1), nil)
	cfg := DefaultConstraints()
	cfg.Enabled = TimeWindows
	cfg.AllowWaiting = true
	e := NewEvaluator(inst, cfg)
	s := NewSolution(inst, e)
	ri := s.OpenRoute(e, 0)
	s.Insert(e, ri, 0, 1)
	s.Insert(e, ri, 1, 2)
	r := s.Routes[ri]
	// Arrive at c1 at t=10, wait for the window to open at 20, serve 5,
	// then drive 20 to c2.
	require.InDelta(t, 20.0, r.Arrivals()[0], 1e-9)
	require.InDelta(t, 45.0, r.Arrivals()[1], 1e-9)
	require.InDelta(t, 60.0, r.Distance(), 1e-9)
	require.Equal(t, []float64{2}, r.Load())
}

func TestCloneIsIndependent(t *testing.T) {
	inst := lineInstance(4, 10, 1)
	e := NewEvaluator(inst, DefaultConstraints())
	s := Construct(inst, e)
	c := s.Clone()
	before := c.Cost()

	s.Reverse(e, 0, 0, s.Routes[0].Len()-1)
	s.Remove(e, 0, 0)
	require.InDelta(t, before, c.Cost(), 1e-9)
	require.NoError(t, c.CheckInvariants())
	require.InDelta(t, e.SolutionCost(c), c.Cost(), 1e-9)
}

func TestApplyRejectsStructurallyBrokenMoves(t *testing.T) {
	inst := lineInstance(4, 10, 2)
	e := NewEvaluator(inst, DefaultConstraints())
	s := Construct(inst, e)
	require.NoError(t, s.CheckInvariants())
	before := s.Cost()

	r := s.Routes[0]
	dup := append([]int(nil), r.Seq...)
	dup = append(dup, r.Seq[0]) // duplicate node
	err := s.Apply(e, Move{Kind: OpRelocate, RA: 0, RB: -1, NewA: dup})
	require.Error(t, err)

	drop := append([]int(nil), r.Seq[1:]...) // dangling node
	err = s.Apply(e, Move{Kind: OpRelocate, RA: 0, RB: -1, NewA: drop})
	require.Error(t, err)

	require.InDelta(t, before, s.Cost(), 1e-9)
	require.NoError(t, s.CheckInvariants())
}
