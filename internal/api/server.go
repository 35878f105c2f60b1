package api

import (
	"context"
	"log"
	"os"
	"strings"

	"routeopt/internal/auth"
	"routeopt/internal/config"
	"routeopt/internal/store"
	"routeopt/internal/webhooks"
)

type Server struct {
	Store    store.Store
	Pub      *webhooks.Publisher
	Auth     *auth.Verifier
	Broker   EventBroker
	Progress *ProgressCache
	Defaults config.Solver
}

// NewServer wires the server from the environment: Postgres when
// DATABASE_URL is set (in-memory otherwise), Redis broker when
// REDIS_URL is set.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn == "" {
		s = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := pg.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = pg
	}
	var broker EventBroker
	if url := os.Getenv("REDIS_URL"); url != "" {
		rb, err := NewRedisBroker(url)
		if err != nil {
			log.Printf("api: redis broker unavailable, using in-memory: %v", err)
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}
	return &Server{
		Store:    s,
		Pub:      webhooks.NewPublisher(s),
		Auth:     auth.NewVerifierFromEnv(),
		Broker:   broker,
		Progress: NewProgressCache(),
		Defaults: cfg.Solver,
	}, nil
}

// NewWebhookWorker creates the background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
