package solver

import (
	"math"
	"math/rand"
)

// saPolicy accepts improving moves always and worsening moves with
// probability exp(-delta/temperature); the temperature decays by a
// fixed factor every iteration.
type saPolicy struct {
	temp    float64
	cooling float64
}

func newSAPolicy(p SAParams) *saPolicy {
	temp := p.InitialTemp
	if temp <= 0 {
		temp = 1.0
	}
	cooling := p.Cooling
	if cooling <= 0 || cooling >= 1 {
		cooling = 0.9995
	}
	return &saPolicy{temp: temp, cooling: cooling}
}

func (p *saPolicy) candidates() int { return 1 }

func (p *saPolicy) selectOp(rng *rand.Rand, n int) int { return rng.Intn(n) }

func (p *saPolicy) admissible(*Solution, Move, float64) bool { return true }

func (p *saPolicy) accept(delta float64, rng *rand.Rand) bool {
	if delta < 0 {
		return true
	}
	return rng.Float64() < math.Exp(-delta/(p.temp+1e-9))
}

func (p *saPolicy) record(int, []arc, bool, bool) {}

func (p *saPolicy) tick() { p.temp *= p.cooling }
