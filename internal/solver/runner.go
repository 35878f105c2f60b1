package solver

import (
	"context"
	"sync"
)

// BatchResult aggregates repeated independent runs of one instance.
type BatchResult struct {
	Results  []Result
	Best     int // index of the cheapest run
	MeanCost float64
}

// SolveN runs the search `runs` times with derived seeds. Workers are
// fully independent: each has its own random stream and search state
// and shares only the read-only instance and matrix, so no locking is
// needed. Seeded batches are reproducible run for run.
func SolveN(ctx context.Context, inst *Instance, cfg Config, runs int) (BatchResult, error) {
	if runs < 1 {
		runs = 1
	}
	if err := inst.Validate(); err != nil {
		return BatchResult{}, err
	}
	if err := inst.CheckFleetCapacity(); err != nil {
		return BatchResult{}, err
	}
	out := BatchResult{Results: make([]Result, runs)}
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := cfg
			if c.Seed != 0 {
				c.Seed += int64(i)
			}
			// Progress hooks are per-run; interleaving them across
			// workers is the caller's concern.
			out.Results[i] = solveValidated(ctx, inst, c)
		}(i)
	}
	wg.Wait()
	sum := 0.0
	for i, r := range out.Results {
		sum += r.TotalCost
		if r.TotalCost < out.Results[out.Best].TotalCost {
			out.Best = i
		}
	}
	out.MeanCost = sum / float64(runs)
	return out, nil
}
