package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"haulscope/internal/model"
)

var ErrNotFound = errors.New("not found")

// Analysis is a persisted snapshot of one engine run.
type Analysis struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"` // score_batch, opportunities, bid, route_sim, pricing
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

// Subscription is a webhook subscription for analysis events.
type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}

// WebhookDelivery is one queued delivery attempt.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Attempts       int
}

// Store is the persistence interface used by the API server. The engine
// itself never touches it; the store is the external producer/consumer of
// engine inputs and outputs.
type Store interface {
	// Reference data
	UpsertCustomers(ctx context.Context, customers []model.CustomerRecord) (created, updated int, err error)
	ListCustomers(ctx context.Context, status, cursor string, limit int) ([]model.CustomerRecord, string, error)
	GetFacilities(ctx context.Context) (model.FacilitySet, error)
	PutFacilities(ctx context.Context, fs model.FacilitySet) error
	ListZones(ctx context.Context) ([]model.ServiceZone, error)
	PutZones(ctx context.Context, zones []model.ServiceZone) error

	// Analyses
	SaveAnalysis(ctx context.Context, kind string, payload any) (Analysis, error)
	GetAnalysis(ctx context.Context, id string) (Analysis, error)
	ListAnalyses(ctx context.Context, kind, cursor string, limit int) ([]Analysis, string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error)
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Webhook delivery queue
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode, latencyMs int) error

	Ping(ctx context.Context) error
}
