package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"routeopt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu        sync.Mutex
	instances map[string]memInstance            // id -> instance
	instByTen map[string][]string               // tenant -> instance ids
	runs      map[string]memRun                 // id -> run
	runsByTen map[string][]string               // tenant -> run ids
	subs      map[string][]model.Subscription   // tenant -> subscriptions
	deliveries map[string]*memDelivery          // id -> delivery state
	solverCfg map[string]map[string]any         // tenant -> config overrides
}

type memInstance struct {
	in  model.InstanceIn
	out model.InstanceOut
}

type memRun struct {
	run   model.RunOut
	trace []float64
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func NewMemory() *Memory {
	return &Memory{
		instances:  map[string]memInstance{},
		instByTen:  map[string][]string{},
		runs:       map[string]memRun{},
		runsByTen:  map[string][]string{},
		subs:       map[string][]model.Subscription{},
		deliveries: map[string]*memDelivery{},
		solverCfg:  map[string]map[string]any{},
	}
}

func (m *Memory) CreateInstance(ctx context.Context, tenantID string, in model.InstanceIn) (model.InstanceOut, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	id := uuid.New().String()
	out := model.InstanceOut{
		ID:        id,
		TenantID:  tenantID,
		Name:      in.Name,
		Nodes:     len(in.Nodes),
		Vehicles:  len(in.Vehicles),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.instances[id] = memInstance{in: in, out: out}
	m.instByTen[tenantID] = append(m.instByTen[tenantID], id)
	return out, nil
}

func (m *Memory) GetInstance(ctx context.Context, tenantID, id string) (model.InstanceIn, model.InstanceOut, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	rec, ok := m.instances[id]
	if !ok || rec.out.TenantID != tenantID {
		return model.InstanceIn{}, model.InstanceOut{}, ErrNotFound
	}
	return rec.in, rec.out, nil
}

func (m *Memory) ListInstances(ctx context.Context, tenantID, cursor string, limit int) ([]model.InstanceOut, string, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	ids := m.instByTen[tenantID]
	start := cursorIndex(ids, cursor)
	if limit <= 0 { limit = 100 }
	out := []model.InstanceOut{}
	next := ""
	for i := start; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.instances[ids[i]].out)
		next = ids[i]
	}
	if len(out) < limit { next = "" }
	return out, next, nil
}

func (m *Memory) CreateRun(ctx context.Context, tenantID string, run model.RunOut, trace []float64) (model.RunOut, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	if run.ID == "" { run.ID = uuid.New().String() }
	run.TenantID = tenantID
	run.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	if _, exists := m.runs[run.ID]; !exists {
		m.runsByTen[tenantID] = append(m.runsByTen[tenantID], run.ID)
	}
	m.runs[run.ID] = memRun{run: run, trace: append([]float64(nil), trace...)}
	return run, nil
}

func (m *Memory) GetRun(ctx context.Context, tenantID, id string) (model.RunOut, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	rec, ok := m.runs[id]
	if !ok || rec.run.TenantID != tenantID { return model.RunOut{}, ErrNotFound }
	return rec.run, nil
}

func (m *Memory) ListRuns(ctx context.Context, tenantID, instanceID, cursor string, limit int) ([]model.RunOut, string, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	ids := m.runsByTen[tenantID]
	start := cursorIndex(ids, cursor)
	if limit <= 0 { limit = 100 }
	out := []model.RunOut{}
	next := ""
	for i := start; i < len(ids) && len(out) < limit; i++ {
		r := m.runs[ids[i]].run
		if instanceID == "" || r.InstanceID == instanceID { out = append(out, r) }
		next = ids[i]
	}
	if len(out) < limit { next = "" }
	return out, next, nil
}

func (m *Memory) GetRunTrace(ctx context.Context, tenantID, id string) ([]float64, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	rec, ok := m.runs[id]
	if !ok || rec.run.TenantID != tenantID { return nil, ErrNotFound }
	return append([]float64(nil), rec.trace...), nil
}

func (m *Memory) GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	return m.solverCfg[tenantID], nil
}

func (m *Memory) SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	m.mu.Lock(); defer m.mu.Unlock()
	m.solverCfg[tenantID] = cfg
	return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType { out = append(out, s); break }
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	list := m.subs[tenantID]
	start := 0
	if cursor != "" {
		for i := range list {
			if list[i].ID == cursor { start = i + 1; break }
		}
	}
	if limit <= 0 { limit = 100 }
	end := start + limit
	if end > len(list) { end = len(list) }
	items := append([]model.Subscription(nil), list[start:end]...)
	next := ""
	if end < len(list) { next = list[end-1].ID }
	return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock(); defer m.mu.Unlock()
	arr := m.subs[tenantID]
	out := make([]model.Subscription, 0, len(arr))
	for _, s := range arr {
		if s.ID != id { out = append(out, s) }
	}
	m.subs[tenantID] = out
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID: id, TenantID: tenantID, SubscriptionID: subscriptionID,
			EventType: eventType, URL: url, Secret: secret,
			Payload: append([]byte(nil), payload...), Status: "pending",
		},
		NextAttemptAt: time.Now(),
	}
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, d := range m.deliveries {
		if d.Status != "pending" || d.NextAttemptAt.After(now) { continue }
		out = append(out, d.WebhookDelivery)
		if len(out) >= limit { break }
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock(); defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok { return ErrNotFound }
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock(); defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok { return ErrNotFound }
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func cursorIndex(ids []string, cursor string) int {
	if cursor == "" { return 0 }
	for i, id := range ids {
		if id == cursor { return i + 1 }
	}
	return 0
}
