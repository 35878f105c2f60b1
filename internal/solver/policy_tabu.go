package solver

import "math/rand"

// tabuPolicy samples several candidates per iteration, filters out
// moves that would recreate a recently removed arc, and always accepts
// the best admissible one. A tabu move passes anyway when it would beat
// the best solution found (aspiration).
type tabuPolicy struct {
	tenure int
	cands  int
	fifo   []arc
	active map[arc]int
}

func newTabuPolicy(p TabuParams) *tabuPolicy {
	tenure := p.Tenure
	if tenure <= 0 {
		tenure = 25
	}
	cands := p.Candidates
	if cands <= 0 {
		cands = 8
	}
	return &tabuPolicy{tenure: tenure, cands: cands, active: make(map[arc]int)}
}

func (p *tabuPolicy) candidates() int { return p.cands }

func (p *tabuPolicy) selectOp(rng *rand.Rand, n int) int { return rng.Intn(n) }

func (p *tabuPolicy) admissible(s *Solution, m Move, bestCost float64) bool {
	tabu := false
	for _, a := range m.addedArcs(s) {
		if p.active[a] > 0 {
			tabu = true
			break
		}
	}
	if !tabu {
		return true
	}
	// Aspiration: a tabu move that improves on the best found passes.
	return s.Cost()+m.Delta < bestCost-1e-9
}

func (p *tabuPolicy) accept(float64, *rand.Rand) bool { return true }

func (p *tabuPolicy) record(_ int, removed []arc, accepted, _ bool) {
	if !accepted {
		return
	}
	for _, a := range removed {
		p.fifo = append(p.fifo, a)
		p.active[a]++
	}
	for len(p.fifo) > p.tenure {
		old := p.fifo[0]
		p.fifo = p.fifo[1:]
		if p.active[old] <= 1 {
			delete(p.active, old)
		} else {
			p.active[old]--
		}
	}
}

func (p *tabuPolicy) tick() {}
