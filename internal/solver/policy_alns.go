package solver

import (
	"math"
	"math/rand"
)

// alnsPolicy keeps one weight per operator, selects operators by
// roulette wheel, rewards the ones that produce accepted improving
// moves, decays the rest, and renormalizes periodically. Acceptance of
// individual moves follows the annealing criterion.
type alnsPolicy struct {
	weights []float64
	reward  float64
	decay   float64
	renorm  int
	temp    float64
	cooling float64
	iter    int
}

func newALNSPolicy(p ALNSParams, sa SAParams, nOps int) *alnsPolicy {
	reward := p.Reward
	if reward <= 0 {
		reward = 0.2
	}
	decay := p.Decay
	if decay <= 0 || decay >= 1 {
		decay = 0.999
	}
	renorm := p.RenormalizeEvery
	if renorm <= 0 {
		renorm = 200
	}
	temp := sa.InitialTemp
	if temp <= 0 {
		temp = 1.0
	}
	cooling := sa.Cooling
	if cooling <= 0 || cooling >= 1 {
		cooling = 0.9995
	}
	w := make([]float64, nOps)
	for i := range w {
		w[i] = 1
	}
	return &alnsPolicy{weights: w, reward: reward, decay: decay, renorm: renorm, temp: temp, cooling: cooling}
}

func (p *alnsPolicy) candidates() int { return 1 }

// selectOp spins a roulette wheel over the operator weights.
func (p *alnsPolicy) selectOp(rng *rand.Rand, n int) int {
	sum := 0.0
	for _, w := range p.weights {
		sum += w
	}
	if sum <= 0 {
		return rng.Intn(n)
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range p.weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return n - 1
}

func (p *alnsPolicy) admissible(*Solution, Move, float64) bool { return true }

func (p *alnsPolicy) accept(delta float64, rng *rand.Rand) bool {
	if delta < 0 {
		return true
	}
	return rng.Float64() < math.Exp(-delta/(p.temp+1e-9))
}

func (p *alnsPolicy) record(op int, _ []arc, accepted, newBest bool) {
	switch {
	case newBest:
		p.weights[op] += p.reward
	case accepted:
		p.weights[op] += p.reward * 0.3
	default:
		p.weights[op] = math.Max(0.01, p.weights[op]*p.decay)
	}
}

func (p *alnsPolicy) tick() {
	p.iter++
	p.temp *= p.cooling
	if p.iter%p.renorm == 0 {
		sum := 0.0
		for _, w := range p.weights {
			sum += w
		}
		if sum > 0 {
			scale := float64(len(p.weights)) / sum
			for i := range p.weights {
				p.weights[i] *= scale
			}
		}
	}
}
