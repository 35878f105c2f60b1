package store

import (
	"context"
	"testing"

	"routeopt/internal/model"
)

func testInstance() model.InstanceIn {
	return model.InstanceIn{
		Name: "t",
		Nodes: []model.NodeIn{
			{ID: "d", Depot: true},
			{ID: "c1", Demand: []float64{1}},
		},
		Vehicles: []model.VehicleIn{{ID: "van", Capacity: []float64{5}, Count: 1}},
	}
}

func TestMemoryInstanceRoundtrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	out, err := m.CreateInstance(ctx, "t1", testInstance())
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if out.ID == "" || out.Nodes != 2 || out.Vehicles != 1 {
		t.Fatalf("unexpected out: %+v", out)
	}

	in, got, err := m.GetInstance(ctx, "t1", out.ID)
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if got.ID != out.ID || len(in.Nodes) != 2 {
		t.Fatalf("roundtrip mismatch: %+v %+v", got, in)
	}

	// Tenant isolation
	if _, _, err := m.GetInstance(ctx, "t2", out.ID); err != ErrNotFound {
		t.Fatalf("cross-tenant get: want ErrNotFound, got %v", err)
	}
}

func TestMemoryListInstancesPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := m.CreateInstance(ctx, "t1", testInstance()); err != nil {
			t.Fatalf("CreateInstance: %v", err)
		}
	}
	first, cursor, err := m.ListInstances(ctx, "t1", "", 2)
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if len(first) != 2 || cursor == "" {
		t.Fatalf("page 1: %d items, cursor %q", len(first), cursor)
	}
	rest, _, err := m.ListInstances(ctx, "t1", cursor, 10)
	if err != nil {
		t.Fatalf("ListInstances page 2: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("page 2: got %d items", len(rest))
	}
	for _, it := range rest {
		if it.ID == first[0].ID || it.ID == first[1].ID {
			t.Fatalf("cursor returned overlapping item %s", it.ID)
		}
	}
}

func TestMemoryRunUpsert(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	placeholder := model.RunOut{ID: "r1", InstanceID: "i1", Status: "running"}
	if _, err := m.CreateRun(ctx, "t1", placeholder, nil); err != nil {
		t.Fatalf("CreateRun placeholder: %v", err)
	}
	final := model.RunOut{ID: "r1", InstanceID: "i1", Status: "completed", TotalCost: 12.5}
	if _, err := m.CreateRun(ctx, "t1", final, []float64{20, 15, 12.5}); err != nil {
		t.Fatalf("CreateRun final: %v", err)
	}

	got, err := m.GetRun(ctx, "t1", "r1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != "completed" || got.TotalCost != 12.5 {
		t.Fatalf("upsert did not replace: %+v", got)
	}

	// Upsert must not duplicate the run in listings.
	items, _, err := m.ListRuns(ctx, "t1", "", "", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("ListRuns after upsert: got %d items", len(items))
	}

	trace, err := m.GetRunTrace(ctx, "t1", "r1")
	if err != nil {
		t.Fatalf("GetRunTrace: %v", err)
	}
	if len(trace) != 3 || trace[2] != 12.5 {
		t.Fatalf("trace: %+v", trace)
	}
}

func TestMemoryListRunsFilterByInstance(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, _ = m.CreateRun(ctx, "t1", model.RunOut{ID: "r1", InstanceID: "i1", Status: "completed"}, nil)
	_, _ = m.CreateRun(ctx, "t1", model.RunOut{ID: "r2", InstanceID: "i2", Status: "completed"}, nil)

	items, _, err := m.ListRuns(ctx, "t1", "i2", "", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(items) != 1 || items[0].ID != "r2" {
		t.Fatalf("filter: %+v", items)
	}
}

func TestMemorySolverConfig(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	cfg, err := m.GetSolverConfig(ctx, "t1")
	if err != nil {
		t.Fatalf("GetSolverConfig: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}
	if err := m.SaveSolverConfig(ctx, "t1", map[string]any{"metaheuristic": "tabu"}); err != nil {
		t.Fatalf("SaveSolverConfig: %v", err)
	}
	cfg, _ = m.GetSolverConfig(ctx, "t1")
	if cfg["metaheuristic"] != "tabu" {
		t.Fatalf("config not saved: %+v", cfg)
	}
}

func TestMemorySubscriptionsByEvent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.CreateSubscription(ctx, model.SubscriptionRequest{
		TenantID: "t1", URL: "https://example.com", Events: []string{"run.completed"}, Secret: "s",
	})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	matched, err := m.GetSubscriptionsForEvent(ctx, "t1", "run.completed")
	if err != nil {
		t.Fatalf("GetSubscriptionsForEvent: %v", err)
	}
	if len(matched) != 1 || matched[0].ID != sub.ID {
		t.Fatalf("match: %+v", matched)
	}
	if miss, _ := m.GetSubscriptionsForEvent(ctx, "t1", "run.failed"); len(miss) != 0 {
		t.Fatalf("unexpected match: %+v", miss)
	}

	if err := m.DeleteSubscription(ctx, "t1", sub.ID); err != nil {
		t.Fatalf("DeleteSubscription: %v", err)
	}
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1"}); err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
}
