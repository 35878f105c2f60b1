package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolveNReproducibleBatch(t *testing.T) {
	inst := lineInstance(8, 4, 3)
	cfg := solveCfg(SimulatedAnnealing, 300)
	cfg.Seed = 9

	a, err := SolveN(context.Background(), inst, cfg, 4)
	require.NoError(t, err)
	b, err := SolveN(context.Background(), inst, cfg, 4)
	require.NoError(t, err)

	require.Len(t, a.Results, 4)
	require.Equal(t, a.Best, b.Best)
	require.Equal(t, a.MeanCost, b.MeanCost)
	for i := range a.Results {
		require.Equal(t, a.Results[i].TotalCost, b.Results[i].TotalCost)
		require.Equal(t, a.Results[i].Trace, b.Results[i].Trace)
	}
}

func TestSolveNDerivedSeedsMatchSingleRuns(t *testing.T) {
	inst := lineInstance(6, 3, 2)
	cfg := solveCfg(TabuSearch, 200)
	cfg.Seed = 100

	batch, err := SolveN(context.Background(), inst, cfg, 3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c := cfg
		c.Seed += int64(i)
		solo, err := Solve(context.Background(), inst, c)
		require.NoError(t, err)
		require.Equal(t, solo.TotalCost, batch.Results[i].TotalCost)
		require.Equal(t, routeSeqs(solo), routeSeqs(batch.Results[i]))
	}
}

func TestSolveNBestIndexIsCheapest(t *testing.T) {
	inst := lineInstance(9, 3, 4)
	cfg := solveCfg(ALNS, 400)
	cfg.Seed = 5

	batch, err := SolveN(context.Background(), inst, cfg, 5)
	require.NoError(t, err)
	for _, r := range batch.Results {
		require.GreaterOrEqual(t, r.TotalCost, batch.Results[batch.Best].TotalCost)
	}
}

func TestSolveNValidatesOnce(t *testing.T) {
	noDepot := NewInstance([]Node{{ID: "c1", X: 1, Demand: []float64{1}}}, singleFleet(10, 1), nil)
	_, err := SolveN(context.Background(), noDepot, DefaultConfig(), 3)
	require.ErrorIs(t, err, ErrValidation)
}
