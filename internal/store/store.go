package store

import (
	"context"
	"errors"
	"time"

	"routeopt/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Instances
	CreateInstance(ctx context.Context, tenantID string, in model.InstanceIn) (model.InstanceOut, error)
	GetInstance(ctx context.Context, tenantID, id string) (model.InstanceIn, model.InstanceOut, error)
	ListInstances(ctx context.Context, tenantID, cursor string, limit int) ([]model.InstanceOut, string, error)

	// Runs. CreateRun upserts by run ID so async solves can replace
	// their "running" placeholder when they finish.
	CreateRun(ctx context.Context, tenantID string, run model.RunOut, trace []float64) (model.RunOut, error)
	GetRun(ctx context.Context, tenantID, id string) (model.RunOut, error)
	ListRuns(ctx context.Context, tenantID, instanceID, cursor string, limit int) ([]model.RunOut, string, error)
	GetRunTrace(ctx context.Context, tenantID, id string) ([]float64, error)

	// Per-tenant solver config overrides
	GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error)
	SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook delivery queue
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

// WebhookDelivery is one queued outbound event delivery.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

var ErrNotFound = errors.New("not found")
