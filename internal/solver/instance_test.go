package solver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func depotAnd(customers ...Node) []Node {
	nodes := []Node{{ID: "d0", Depot: true}}
	return append(nodes, customers...)
}

func singleFleet(capacity float64, count int) []VehicleType {
	return []VehicleType{{ID: "van", Capacity: []float64{capacity}, Count: count}}
}

func TestValidateRejectsMalformedInstances(t *testing.T) {
	cases := []struct {
		name     string
		nodes    []Node
		vehicles []VehicleType
	}{
		{
			name:     "no depot",
			nodes:    []Node{{ID: "c1", X: 1, Demand: []float64{1}}},
			vehicles: singleFleet(10, 1),
		},
		{
			name:     "negative demand",
			nodes:    depotAnd(Node{ID: "c1", X: 1, Demand: []float64{-1}}),
			vehicles: singleFleet(10, 1),
		},
		{
			name:     "depot with demand",
			nodes:    []Node{{ID: "d0", Depot: true, Demand: []float64{3}}, {ID: "c1", X: 1, Demand: []float64{1}}},
			vehicles: singleFleet(10, 1),
		},
		{
			name:     "inverted time window",
			nodes:    depotAnd(Node{ID: "c1", X: 1, Demand: []float64{1}, Window: &TimeWindow{Start: 100, End: 50}}),
			vehicles: singleFleet(10, 1),
		},
		{
			name:     "negative capacity",
			nodes:    depotAnd(Node{ID: "c1", X: 1, Demand: []float64{1}}),
			vehicles: []VehicleType{{ID: "van", Capacity: []float64{-5}, Count: 1}},
		},
		{
			name:     "negative vehicle count",
			nodes:    depotAnd(Node{ID: "c1", X: 1, Demand: []float64{1}}),
			vehicles: []VehicleType{{ID: "van", Capacity: []float64{5}, Count: -1}},
		},
		{
			name:     "duplicate node id",
			nodes:    depotAnd(Node{ID: "c1", X: 1, Demand: []float64{1}}, Node{ID: "c1", X: 2, Demand: []float64{1}}),
			vehicles: singleFleet(10, 1),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inst := NewInstance(tc.nodes, tc.vehicles, nil)
			err := inst.Validate()
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestValidateAcceptsWellFormedInstance(t *testing.T) {
	inst := NewInstance(
		depotAnd(
			Node{ID: "c1", X: 1, Demand: []float64{2}, Window: &TimeWindow{Start: 0, End: 100}},
			Node{ID: "c2", Y: 1, Demand: []float64{1}},
		),
		singleFleet(10, 2), nil)
	require.NoError(t, inst.Validate())
}

func TestCheckFleetCapacity(t *testing.T) {
	nodes := depotAnd(
		Node{ID: "c1", X: 1, Demand: []float64{6}},
		Node{ID: "c2", X: 2, Demand: []float64{6}},
	)
	// Two vehicles of capacity 5 cannot carry total demand 12.
	inst := NewInstance(nodes, singleFleet(5, 2), nil)
	require.ErrorIs(t, inst.CheckFleetCapacity(), ErrInfeasible)

	inst = NewInstance(nodes, singleFleet(6, 2), nil)
	require.NoError(t, inst.CheckFleetCapacity())
}

func TestMatrixSlotResolution(t *testing.T) {
	m := NewTimeSliced(2, 3, 100)
	m.Set(0, 0, 1, 10)
	m.Set(1, 0, 1, 20)
	m.Set(2, 0, 1, 30)
	require.Equal(t, 10.0, m.At(0, 1, 0))
	require.Equal(t, 20.0, m.At(0, 1, 150))
	require.Equal(t, 30.0, m.At(0, 1, 299))
	// Departures past the horizon wrap around.
	require.Equal(t, 10.0, m.At(0, 1, 301))
}

func TestScaleSlots(t *testing.T) {
	nodes := depotAnd(Node{ID: "c1", X: 3, Y: 4, Demand: []float64{1}})
	base := EuclideanMatrix(nodes)
	m := ScaleSlots(base, 3600, []float64{1, 2})
	require.Equal(t, 2, m.Slots())
	require.Equal(t, 5.0, m.At(0, 1, 0))
	require.Equal(t, 10.0, m.At(0, 1, 3600))
}

func TestDynamicTrafficChangesSchedule(t *testing.T) {
	nodes := depotAnd(
		Node{ID: "c1", X: 10, Demand: []float64{1}},
		Node{ID: "c2", X: 20, Demand: []float64{1}},
	)
	base := EuclideanMatrix(nodes)
	// Slot 0 covers the first 15 cost units of the day; everything
	// after that doubles.
	m := ScaleSlots(base, 15, []float64{1, 2, 2, 2, 2, 2, 2, 2})
	inst := NewInstance(nodes, singleFleet(10, 1), m)
	require.NoError(t, inst.Validate())

	static := NewEvaluator(inst, DefaultConstraints())
	cfg := DefaultConstraints()
	cfg.Enabled = DynamicTraffic
	dynamic := NewEvaluator(inst, cfg)

	seq := []int{1, 2}
	ms := static.SeqMetrics(0, 0, seq)
	md := dynamic.SeqMetrics(0, 0, seq)
	// d0->c1 departs at t=0 (slot 0, free flow); the later edges fall
	// into congested slots and must cost more.
	require.Equal(t, 40.0, ms.Distance)
	require.Greater(t, md.Distance, ms.Distance)
}
