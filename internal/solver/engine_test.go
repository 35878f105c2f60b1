package solver

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func solveCfg(m Metaheuristic, iters int) Config {
	cfg := DefaultConfig()
	cfg.Metaheuristic = m
	cfg.IterationLimit = iters
	return cfg
}

func routeSeqs(res Result) [][]string {
	out := make([][]string, 0, len(res.Routes))
	for _, r := range res.Routes {
		ids := make([]string, 0, len(r.Stops))
		for _, st := range r.Stops {
			ids = append(ids, st.NodeID)
		}
		out = append(out, ids)
	}
	return out
}

func TestSolveDeterministicPerSeed(t *testing.T) {
	inst := lineInstance(8, 4, 3)
	for _, m := range []Metaheuristic{SimulatedAnnealing, TabuSearch, ALNS} {
		t.Run(m.String(), func(t *testing.T) {
			cfg := solveCfg(m, 600)
			cfg.Seed = 42
			a, err := Solve(context.Background(), inst, cfg)
			require.NoError(t, err)
			b, err := Solve(context.Background(), inst, cfg)
			require.NoError(t, err)

			require.Equal(t, a.TotalCost, b.TotalCost)
			require.Equal(t, a.Trace, b.Trace)
			require.Equal(t, routeSeqs(a), routeSeqs(b))
		})
	}
}

func TestSolveTraceIsMonotoneBestCost(t *testing.T) {
	inst := lineInstance(8, 4, 3)
	for _, m := range []Metaheuristic{SimulatedAnnealing, TabuSearch, ALNS} {
		t.Run(m.String(), func(t *testing.T) {
			res, err := Solve(context.Background(), inst, solveCfg(m, 500))
			require.NoError(t, err)
			require.Len(t, res.Trace, res.Iterations)
			for i := 1; i < len(res.Trace); i++ {
				require.LessOrEqual(t, res.Trace[i], res.Trace[i-1])
			}
			require.Equal(t, res.Trace[len(res.Trace)-1], res.TotalCost)
		})
	}
}

func TestSolveNeverWorseThanConstruction(t *testing.T) {
	inst := lineInstance(9, 3, 4)
	e := NewEvaluator(inst, DefaultConstraints())
	seed := Construct(inst, e)

	for _, m := range []Metaheuristic{SimulatedAnnealing, TabuSearch, ALNS} {
		res, err := Solve(context.Background(), inst, solveCfg(m, 1000))
		require.NoError(t, err)
		require.True(t, res.Feasible)
		require.LessOrEqual(t, res.TotalCost, seed.Cost()+1e-9, m.String())
	}
}

func TestSolveRejectsBadInput(t *testing.T) {
	noDepot := NewInstance([]Node{{ID: "c1", X: 1, Demand: []float64{1}}}, singleFleet(10, 1), nil)
	_, err := Solve(context.Background(), noDepot, DefaultConfig())
	require.ErrorIs(t, err, ErrValidation)

	// Total demand 4 against a single capacity-2 vehicle.
	tiny := lineInstance(4, 2, 1)
	_, err = Solve(context.Background(), tiny, DefaultConfig())
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestSolveHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Solve(ctx, lineInstance(5, 10, 1), DefaultConfig())
	require.NoError(t, err)
	require.Zero(t, res.Iterations)
	// The constructed solution is still returned as best.
	require.True(t, res.Feasible)
	require.NotEmpty(t, res.Routes)
}

func TestSolveStopsOnTimeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IterationLimit = 0
	cfg.TimeLimit = 20 * time.Millisecond
	start := time.Now()
	res, err := Solve(context.Background(), lineInstance(8, 4, 3), cfg)
	require.NoError(t, err)
	require.Greater(t, res.Iterations, 0)
	require.Less(t, time.Since(start), 5*time.Second)
}

// nanOp simulates a numerical blowup inside candidate pricing.
type nanOp struct{}

func (nanOp) Name() string { return "nan" }

func (nanOp) Propose(s *Solution, e *Evaluator, rng *rand.Rand) (Move, bool) {
	return Move{Kind: OpRelocate, RA: 0, RB: -1, Delta: math.NaN()}, true
}

func TestSolveFlagsComputationErrorButReturnsBest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Operators = []Operator{nanOp{}}
	res, err := Solve(context.Background(), lineInstance(5, 10, 1), cfg)
	require.NoError(t, err)
	require.ErrorIs(t, res.Err, ErrComputation)
	require.False(t, math.IsNaN(res.TotalCost))
	require.NotEmpty(t, res.Routes)
	require.True(t, res.Feasible)
}

func TestSolveEmitsProgressEvents(t *testing.T) {
	cfg := solveCfg(SimulatedAnnealing, 100)
	var events []ProgressEvent
	cfg.ProgressEvery = 25
	cfg.Progress = func(ev ProgressEvent) { events = append(events, ev) }

	res, err := Solve(context.Background(), lineInstance(6, 3, 2), cfg)
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.Equal(t, 25, events[0].Iteration)
	require.Equal(t, res.TotalCost, events[len(events)-1].BestCost)
}

func TestResultListsUnservedByID(t *testing.T) {
	nodes := depotAnd(
		Node{ID: "c1", X: 50, Demand: []float64{1}, Window: &TimeWindow{Start: 0, End: 1}},
		Node{ID: "c2", X: 1, Demand: []float64{1}},
	)
	inst := NewInstance(nodes, singleFleet(10, 1), nil)
	cfg := solveCfg(TabuSearch, 200)
	cfg.Constraints.Enabled = TimeWindows

	res, err := Solve(context.Background(), inst, cfg)
	require.NoError(t, err)
	require.False(t, res.Feasible)
	require.Equal(t, []string{"c1"}, res.Unserved)
}
