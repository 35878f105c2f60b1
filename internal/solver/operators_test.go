package solver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// Every operator must report a delta that exactly matches rescoring the
// mutated solution from scratch, and must never propose a move that
// breaks a hard constraint.
func TestOperatorDeltasMatchScratchRescore(t *testing.T) {
	inst := lineInstance(8, 4, 3)
	e := NewEvaluator(inst, DefaultConstraints())
	base := Construct(inst, e)
	require.Empty(t, base.Unserved)

	for _, op := range DefaultOperators() {
		t.Run(op.Name(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			applied := 0
			s := base.Clone()
			for i := 0; i < 400; i++ {
				m, ok := op.Propose(s, e, rng)
				if !ok {
					continue
				}
				before := s.Cost()
				require.NoError(t, s.Apply(e, m))
				require.InDelta(t, before+m.Delta, s.Cost(), 1e-9)
				require.InDelta(t, e.SolutionCost(s), s.Cost(), 1e-9)
				require.NoError(t, s.CheckInvariants())
				for _, r := range s.Routes {
					require.True(t, e.RouteFeasible(r))
				}
				applied++
			}
			require.Greater(t, applied, 0, "operator never produced a move")
		})
	}
}

func TestMoveArcBookkeeping(t *testing.T) {
	inst := lineInstance(4, 10, 1)
	e := NewEvaluator(inst, DefaultConstraints())
	s := Construct(inst, e)
	require.Len(t, s.Routes, 1)
	require.Equal(t, []int{4, 3, 2, 1}, s.Routes[0].Seq)

	// Reversing the middle pair removes arcs 4->3, 3->2, 2->1 and adds
	// 4->2, 2->3, 3->1.
	m := Move{Kind: OpTwoOpt, RA: 0, RB: -1, NewA: []int{4, 2, 3, 1}, FromA: 1}
	require.ElementsMatch(t, []arc{{4, 3}, {3, 2}, {2, 1}}, m.removedArcs(s))
	require.ElementsMatch(t, []arc{{4, 2}, {2, 3}, {3, 1}}, m.addedArcs(s))
}

func TestOperatorsRejectHardOverload(t *testing.T) {
	// Both routes are at capacity; any relocate or uneven cross between
	// them must be refused, only load-preserving moves may pass.
	inst := lineInstance(4, 2, 2)
	e := NewEvaluator(inst, DefaultConstraints())
	s := Construct(inst, e)
	require.Len(t, s.Routes, 2)

	rng := rand.New(rand.NewSource(11))
	op := relocateOp{}
	for i := 0; i < 200; i++ {
		m, ok := op.Propose(s, e, rng)
		if !ok {
			continue
		}
		require.Equal(t, -1, m.RB, "inter-route relocate must not pass a full vehicle")
	}
}
