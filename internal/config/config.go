// Package config loads service configuration: YAML defaults file,
// optional .env file, then environment overrides, in that order.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type SA struct {
	InitialTemp float64 `yaml:"initialTemp"`
	Cooling     float64 `yaml:"cooling"`
}

type Tabu struct {
	Tenure     int `yaml:"tenure"`
	Candidates int `yaml:"candidates"`
}

type ALNS struct {
	Reward           float64 `yaml:"reward"`
	Decay            float64 `yaml:"decay"`
	RenormalizeEvery int     `yaml:"renormalizeEvery"`
}

// Solver carries the default search tuning applied when a solve request
// leaves a knob unset. Tenants may override via the solver-config API.
type Solver struct {
	Metaheuristic   string  `yaml:"metaheuristic"`
	IterationLimit  int     `yaml:"iterationLimit"`
	TimeBudgetMs    int     `yaml:"timeBudgetMs"`
	Seed            int64   `yaml:"seed"`
	UnservedPenalty float64 `yaml:"unservedPenalty"`
	ProgressEvery   int     `yaml:"progressEvery"`
	MaxRuns         int     `yaml:"maxRuns"`
	SA              SA      `yaml:"sa"`
	Tabu            Tabu    `yaml:"tabu"`
	ALNS            ALNS    `yaml:"alns"`
}

type Config struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rateLimit"` // solve requests per second per process
	RateBurst int     `yaml:"rateBurst"`
	Solver    Solver  `yaml:"solver"`
}

func Default() Config {
	return Config{
		Addr:      ":8080",
		RateLimit: 5,
		RateBurst: 10,
		Solver: Solver{
			Metaheuristic:   "simulated_annealing",
			IterationLimit:  20000,
			Seed:            1,
			UnservedPenalty: 1e6,
			ProgressEvery:   100,
			MaxRuns:         16,
			SA:              SA{InitialTemp: 1.0, Cooling: 0.9995},
			Tabu:            Tabu{Tenure: 25, Candidates: 8},
			ALNS:            ALNS{Reward: 0.2, Decay: 0.999, RenormalizeEvery: 200},
		},
	}
}

// Load builds the effective configuration. A missing config file is not
// an error; env vars always win.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg := Default()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v, ok := envFloat("SOLVE_RATE_LIMIT"); ok {
		cfg.RateLimit = v
	}
	if v, ok := envInt("SOLVE_RATE_BURST"); ok {
		cfg.RateBurst = v
	}
	if v := os.Getenv("SOLVER_METAHEURISTIC"); v != "" {
		cfg.Solver.Metaheuristic = v
	}
	if v, ok := envInt("SOLVER_ITERATION_LIMIT"); ok {
		cfg.Solver.IterationLimit = v
	}
	if v, ok := envInt("SOLVER_TIME_BUDGET_MS"); ok {
		cfg.Solver.TimeBudgetMs = v
	}
	if v, ok := envInt("SOLVER_MAX_RUNS"); ok {
		cfg.Solver.MaxRuns = v
	}
	if v, ok := envInt("SOLVER_SEED"); ok {
		cfg.Solver.Seed = int64(v)
	}
	return cfg, nil
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
