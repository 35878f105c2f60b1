package solver

import (
	"math"
	"sort"
)

// Construct builds the initial solution by greedy nearest-feasible
// insertion: at each step the cheapest feasible (or soft-penalized)
// insertion across every open route position and every openable new
// route wins. Ties break toward the lowest route index, then the lowest
// position, which keeps construction deterministic. A customer no
// vehicle can serve stays in the unserved set at its fixed penalty, so
// construction always terminates.
func Construct(inst *Instance, e *Evaluator) *Solution {
	s := NewSolution(inst, e)
	remaining := make([]int, len(inst.Vehicles))
	for vi, v := range inst.Vehicles {
		remaining[vi] = v.Count
	}

	for len(s.Unserved) > 0 {
		// Deterministic pass order over the unserved set.
		pending := make([]int, 0, len(s.Unserved))
		for n := range s.Unserved {
			pending = append(pending, n)
		}
		sort.Ints(pending)

		bestNode, bestRoute, bestPos, bestVi := -1, -1, -1, -1
		bestDelta := math.MaxFloat64
		for _, node := range pending {
			for ri, r := range s.Routes {
				for pos := 0; pos <= r.Len(); pos++ {
					cand := splice(r.Seq, pos, node)
					cost, hard := e.SeqCost(r.Vehicle, r.Depot, cand)
					if hard {
						continue
					}
					if delta := cost - r.Cost(); delta < bestDelta {
						bestDelta = delta
						bestNode, bestRoute, bestPos, bestVi = node, ri, pos, -1
					}
				}
			}
			for vi := range inst.Vehicles {
				if remaining[vi] <= 0 {
					continue
				}
				depot := inst.homeDepot(inst.Vehicles[vi])
				cost, hard := e.SeqCost(vi, depot, []int{node})
				if hard {
					continue
				}
				if cost < bestDelta {
					bestDelta = cost
					bestNode, bestRoute, bestPos, bestVi = node, -1, 0, vi
				}
			}
		}
		if bestNode < 0 {
			// No vehicle can serve the remaining customers.
			break
		}
		if bestRoute < 0 {
			bestRoute = s.OpenRoute(e, bestVi)
			remaining[bestVi]--
		}
		s.Insert(e, bestRoute, bestPos, bestNode)
	}
	return s
}
