package solver

// Time-dependent travel support. When dynamic traffic is enabled the
// evaluator resolves each edge through Matrix.At with the planned
// departure time, so schedules are recomputed edge by edge rather than
// read off a static matrix.

// slotFor maps a departure time to a slice index, wrapping around the
// horizon so overnight routes stay defined.
func (m *Matrix) slotFor(departSec float64) int {
	if m.slotSec <= 0 || len(m.slots) <= 1 {
		return 0
	}
	s := int(departSec/m.slotSec) % len(m.slots)
	if s < 0 {
		s += len(m.slots)
	}
	return s
}

// ScaleSlots derives a time-sliced matrix from a static one by
// multiplying each slot with a congestion factor, e.g. rush-hour
// profiles. The base matrix's slot 0 is the free-flow baseline.
func ScaleSlots(base *Matrix, slotSec float64, factors []float64) *Matrix {
	if len(factors) == 0 {
		return base
	}
	out := NewTimeSliced(base.n, len(factors), slotSec)
	for s, f := range factors {
		for k, c := range base.slots[0] {
			out.slots[s][k] = c * f
		}
	}
	return out
}
