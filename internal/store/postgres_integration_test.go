//go:build postgres_integration

package store

import (
	"context"
	"os"
	"testing"

	"routeopt/internal/model"
)

func TestPostgresMigrateAndRoundtrip(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	ctx := context.Background()
	if err := p.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	out, err := p.CreateInstance(ctx, "t_itest", model.InstanceIn{
		Name:     "itest",
		Nodes:    []model.NodeIn{{ID: "d", Depot: true}, {ID: "c1", Demand: []float64{1}}},
		Vehicles: []model.VehicleIn{{ID: "van", Capacity: []float64{5}, Count: 1}},
	})
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if _, _, err := p.GetInstance(ctx, "t_itest", out.ID); err != nil {
		t.Fatalf("GetInstance: %v", err)
	}

	run := model.RunOut{ID: "", InstanceID: out.ID, Status: "running", Metaheuristic: "sa"}
	stored, err := p.CreateRun(ctx, "t_itest", run, nil)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	stored.Status = "completed"
	stored.TotalCost = 3.5
	if _, err := p.CreateRun(ctx, "t_itest", stored, []float64{5, 4, 3.5}); err != nil {
		t.Fatalf("CreateRun upsert: %v", err)
	}
	got, err := p.GetRun(ctx, "t_itest", stored.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != "completed" || got.TotalCost != 3.5 {
		t.Fatalf("upsert did not replace: %+v", got)
	}
	trace, err := p.GetRunTrace(ctx, "t_itest", stored.ID)
	if err != nil || len(trace) != 3 {
		t.Fatalf("GetRunTrace: %v %v", trace, err)
	}

	if _, _, err := p.ListRuns(ctx, "t_itest", out.ID, "", 10); err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
}
