package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"routeopt/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS instances (
    id          uuid PRIMARY KEY,
    tenant_id   text NOT NULL,
    name        text NOT NULL DEFAULT '',
    payload     jsonb NOT NULL,
    nodes       int NOT NULL,
    vehicles    int NOT NULL,
    created_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS instances_tenant_idx ON instances (tenant_id, created_at);

CREATE TABLE IF NOT EXISTS runs (
    id            uuid PRIMARY KEY,
    tenant_id     text NOT NULL,
    instance_id   uuid NOT NULL,
    status        text NOT NULL,
    metaheuristic text NOT NULL,
    seed          bigint NOT NULL,
    total_cost    double precision NOT NULL,
    feasible      boolean NOT NULL,
    iterations    int NOT NULL,
    elapsed_ms    bigint NOT NULL,
    routes        jsonb NOT NULL,
    unserved      jsonb NOT NULL DEFAULT '[]',
    trace         jsonb NOT NULL DEFAULT '[]',
    error         text NOT NULL DEFAULT '',
    created_at    timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS runs_tenant_idx ON runs (tenant_id, created_at);

CREATE TABLE IF NOT EXISTS solver_configs (
    tenant_id text PRIMARY KEY,
    config    jsonb NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id        uuid PRIMARY KEY,
    tenant_id text NOT NULL,
    url       text NOT NULL,
    events    jsonb NOT NULL,
    secret    text NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id              uuid PRIMARY KEY,
    tenant_id       text NOT NULL,
    subscription_id uuid NOT NULL,
    event_type      text NOT NULL,
    url             text NOT NULL,
    secret          text NOT NULL DEFAULT '',
    payload         bytea NOT NULL,
    status          text NOT NULL DEFAULT 'pending',
    attempts        int NOT NULL DEFAULT 0,
    next_attempt_at timestamptz NOT NULL DEFAULT now(),
    last_error      text NOT NULL DEFAULT '',
    response_code   int NOT NULL DEFAULT 0,
    latency_ms      int NOT NULL DEFAULT 0,
    delivered_at    timestamptz
);
CREATE INDEX IF NOT EXISTS webhook_due_idx ON webhook_deliveries (status, next_attempt_at);
`

// Migrate creates the schema if missing (dev helper; production runs
// migrations out of band).
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Postgres) CreateInstance(ctx context.Context, tenantID string, in model.InstanceIn) (model.InstanceOut, error) {
	id := uuid.New().String()
	payload, err := json.Marshal(in)
	if err != nil {
		return model.InstanceOut{}, err
	}
	now := time.Now().UTC()
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO instances (id, tenant_id, name, payload, nodes, vehicles, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, tenantID, in.Name, payload, len(in.Nodes), len(in.Vehicles), now)
	if err != nil {
		return model.InstanceOut{}, err
	}
	return model.InstanceOut{
		ID: id, TenantID: tenantID, Name: in.Name,
		Nodes: len(in.Nodes), Vehicles: len(in.Vehicles),
		CreatedAt: now.Format(time.RFC3339),
	}, nil
}

func (p *Postgres) GetInstance(ctx context.Context, tenantID, id string) (model.InstanceIn, model.InstanceOut, error) {
	var payload []byte
	var out model.InstanceOut
	var created time.Time
	err := p.db.QueryRowContext(ctx, `
        SELECT id::text, tenant_id, name, payload, nodes, vehicles, created_at
        FROM instances WHERE tenant_id=$1 AND id=$2`, tenantID, id).
		Scan(&out.ID, &out.TenantID, &out.Name, &payload, &out.Nodes, &out.Vehicles, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.InstanceIn{}, model.InstanceOut{}, ErrNotFound
	}
	if err != nil {
		return model.InstanceIn{}, model.InstanceOut{}, err
	}
	out.CreatedAt = created.Format(time.RFC3339)
	var in model.InstanceIn
	if err := json.Unmarshal(payload, &in); err != nil {
		return model.InstanceIn{}, model.InstanceOut{}, err
	}
	return in, out, nil
}

func (p *Postgres) ListInstances(ctx context.Context, tenantID, cursor string, limit int) ([]model.InstanceOut, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
        SELECT id::text, tenant_id, name, nodes, vehicles, created_at
        FROM instances WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2)
        ORDER BY id LIMIT $3`, tenantID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.InstanceOut{}
	for rows.Next() {
		var it model.InstanceOut
		var created time.Time
		if err := rows.Scan(&it.ID, &it.TenantID, &it.Name, &it.Nodes, &it.Vehicles, &created); err != nil {
			return nil, "", err
		}
		it.CreatedAt = created.Format(time.RFC3339)
		out = append(out, it)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateRun(ctx context.Context, tenantID string, run model.RunOut, trace []float64) (model.RunOut, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.TenantID = tenantID
	now := time.Now().UTC()
	run.CreatedAt = now.Format(time.RFC3339)
	routes, err := json.Marshal(run.Routes)
	if err != nil {
		return model.RunOut{}, err
	}
	unserved, _ := json.Marshal(run.Unserved)
	tr, _ := json.Marshal(trace)
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO runs (id, tenant_id, instance_id, status, metaheuristic, seed,
            total_cost, feasible, iterations, elapsed_ms, routes, unserved, trace, error, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        ON CONFLICT (id) DO UPDATE SET
            status=EXCLUDED.status, total_cost=EXCLUDED.total_cost,
            feasible=EXCLUDED.feasible, iterations=EXCLUDED.iterations,
            elapsed_ms=EXCLUDED.elapsed_ms, routes=EXCLUDED.routes,
            unserved=EXCLUDED.unserved, trace=EXCLUDED.trace, error=EXCLUDED.error`,
		run.ID, tenantID, run.InstanceID, run.Status, run.Metaheuristic, run.Seed,
		run.TotalCost, run.Feasible, run.Iterations, run.ElapsedMs, routes, unserved, tr, run.Error, now)
	if err != nil {
		return model.RunOut{}, err
	}
	return run, nil
}

func (p *Postgres) scanRun(row interface{ Scan(...any) error }) (model.RunOut, error) {
	var run model.RunOut
	var routes, unserved []byte
	var created time.Time
	err := row.Scan(&run.ID, &run.TenantID, &run.InstanceID, &run.Status, &run.Metaheuristic,
		&run.Seed, &run.TotalCost, &run.Feasible, &run.Iterations, &run.ElapsedMs,
		&routes, &unserved, &run.Error, &created)
	if err != nil {
		return model.RunOut{}, err
	}
	run.CreatedAt = created.Format(time.RFC3339)
	if err := json.Unmarshal(routes, &run.Routes); err != nil {
		return model.RunOut{}, err
	}
	_ = json.Unmarshal(unserved, &run.Unserved)
	return run, nil
}

const runCols = `id::text, tenant_id, instance_id::text, status, metaheuristic, seed,
    total_cost, feasible, iterations, elapsed_ms, routes, unserved, error, created_at`

func (p *Postgres) GetRun(ctx context.Context, tenantID, id string) (model.RunOut, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+runCols+` FROM runs WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	run, err := p.scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunOut{}, ErrNotFound
	}
	return run, err
}

func (p *Postgres) ListRuns(ctx context.Context, tenantID, instanceID, cursor string, limit int) ([]model.RunOut, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
        SELECT `+runCols+` FROM runs
        WHERE tenant_id=$1 AND ($2 = '' OR instance_id::text = $2) AND ($3 = '' OR id::text > $3)
        ORDER BY id LIMIT $4`, tenantID, instanceID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.RunOut{}
	for rows.Next() {
		run, err := p.scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, run)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) GetRunTrace(ctx context.Context, tenantID, id string) ([]float64, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT trace FROM runs WHERE tenant_id=$1 AND id=$2`, tenantID, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var trace []float64
	if err := json.Unmarshal(raw, &trace); err != nil {
		return nil, err
	}
	return trace, nil
}

func (p *Postgres) GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT config FROM solver_configs WHERE tenant_id=$1`, tenantID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Postgres) SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO solver_configs (tenant_id, config) VALUES ($1,$2)
        ON CONFLICT (tenant_id) DO UPDATE SET config=EXCLUDED.config`, tenantID, raw)
	return err
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	id := uuid.New().String()
	events, _ := json.Marshal(req.Events)
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO subscriptions (id, tenant_id, url, events, secret)
        VALUES ($1,$2,$3,$4,$5)`, id, req.TenantID, req.URL, events, req.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT id::text, tenant_id, url, events, secret FROM subscriptions
        WHERE tenant_id=$1 AND events @> to_jsonb(ARRAY[$2::text])`, tenantID, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
        SELECT id::text, tenant_id, url, events, secret FROM subscriptions
        WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2) ORDER BY id LIMIT $3`,
		tenantID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out, err := scanSubscriptions(rows)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func scanSubscriptions(rows *sql.Rows) ([]model.Subscription, error) {
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.TenantID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(events, &s.Events)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	return err
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`, id, tenantID, subscriptionID, eventType, url, secret, payload)
	return id, err
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT id::text, tenant_id, subscription_id::text, event_type, url, secret, payload, status, attempts
        FROM webhook_deliveries
        WHERE status='pending' AND next_attempt_at <= now()
        ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `
            UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1,
                last_error=$2, response_code=$3, latency_ms=$4, delivered_at=now()
            WHERE id=$1`, id, lastError, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `
        UPDATE webhook_deliveries SET attempts=attempts+1, next_attempt_at=$2,
            last_error=$3, response_code=$4, latency_ms=$5
        WHERE id=$1`, id, nextAttemptAt, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `
        UPDATE webhook_deliveries SET status='failed', attempts=attempts+1,
            last_error=$2, response_code=$3, latency_ms=$4
        WHERE id=$1`, id, lastError, responseCode, latencyMs)
	return err
}
