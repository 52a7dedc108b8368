package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"haulscope/internal/store"
)

// Event types emitted by the scoring service.
const (
	EventAnalysisCompleted   = "analysis.completed"
	EventOpportunityDetected = "opportunity.detected"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit enqueues a delivery for every subscription matching the event type.
// Delivery failures are the worker's problem; Emit is fire-and-forget.
func (p *Publisher) Emit(ctx context.Context, eventType string, data any) {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, eventType)
	if err != nil || len(subs) == 0 {
		return
	}
	payload := map[string]any{
		"id":   "evt_" + uuid.New().String(),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	}
	body, _ := json.Marshal(payload)
	for _, s := range subs {
		_, _ = p.Store.EnqueueWebhook(ctx, s.ID, eventType, s.URL, s.Secret, body)
	}
}
