package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr: got %s", cfg.Addr)
	}
	if cfg.Solver.Metaheuristic != "simulated_annealing" {
		t.Fatalf("metaheuristic: got %s", cfg.Solver.Metaheuristic)
	}
	if cfg.Solver.Tabu.Tenure != 25 {
		t.Fatalf("tenure: got %d", cfg.Solver.Tabu.Tenure)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("addr: \":9090\"\nsolver:\n  metaheuristic: tabu_search\n  iterationLimit: 500\n  sa:\n    cooling: 0.99\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SOLVER_ITERATION_LIMIT", "750")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr: got %s", cfg.Addr)
	}
	if cfg.Solver.Metaheuristic != "tabu_search" {
		t.Fatalf("metaheuristic: got %s", cfg.Solver.Metaheuristic)
	}
	// env beats file
	if cfg.Solver.IterationLimit != 750 {
		t.Fatalf("iterationLimit: got %d", cfg.Solver.IterationLimit)
	}
	if cfg.Solver.SA.Cooling != 0.99 {
		t.Fatalf("cooling: got %v", cfg.Solver.SA.Cooling)
	}
	// untouched defaults survive a partial file
	if cfg.Solver.Tabu.Candidates != 8 {
		t.Fatalf("candidates: got %d", cfg.Solver.Tabu.Candidates)
	}
}
