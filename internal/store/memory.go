package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"haulscope/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu         sync.Mutex
	customers  map[string]model.CustomerRecord
	custOrder  []string
	facilities model.FacilitySet
	zones      []model.ServiceZone
	analyses   map[string]Analysis
	anOrder    []string
	subs       map[string]Subscription
	deliveries map[string]*memDelivery
	delOrder   []string
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	Delivered     bool
	Failed        bool
	LastError     string
	ResponseCode  int
	LatencyMs     int
}

func NewMemory() *Memory {
	return &Memory{
		customers:  map[string]model.CustomerRecord{},
		analyses:   map[string]Analysis{},
		subs:       map[string]Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

func (m *Memory) UpsertCustomers(ctx context.Context, customers []model.CustomerRecord) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created, updated := 0, 0
	for _, c := range customers {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.Type = model.NormalizeType(string(c.Type))
		if _, ok := m.customers[c.ID]; ok {
			updated++
		} else {
			m.custOrder = append(m.custOrder, c.ID)
			created++
		}
		m.customers[c.ID] = c
	}
	return created, updated, nil
}

func (m *Memory) ListCustomers(ctx context.Context, status, cursor string, limit int) ([]model.CustomerRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if cursor != "" {
		for i, id := range m.custOrder {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 500
	}
	out := []model.CustomerRecord{}
	var next string
	for i := start; i < len(m.custOrder) && len(out) < limit; i++ {
		c := m.customers[m.custOrder[i]]
		if status == "" || string(c.ServiceStatus) == status {
			out = append(out, c)
		}
		next = m.custOrder[i]
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) GetFacilities(ctx context.Context) (model.FacilitySet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.facilities, nil
}

func (m *Memory) PutFacilities(ctx context.Context, fs model.FacilitySet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facilities = fs
	return nil
}

func (m *Memory) ListZones(ctx context.Context) ([]model.ServiceZone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ServiceZone(nil), m.zones...), nil
}

func (m *Memory) PutZones(ctx context.Context, zones []model.ServiceZone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones = append([]model.ServiceZone(nil), zones...)
	return nil
}

func (m *Memory) SaveAnalysis(ctx context.Context, kind string, payload any) (Analysis, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Analysis{}, fmt.Errorf("save analysis: %w", err)
	}
	a := Analysis{ID: uuid.New().String(), Kind: kind, CreatedAt: time.Now().UTC(), Payload: b}
	m.mu.Lock()
	m.analyses[a.ID] = a
	m.anOrder = append(m.anOrder, a.ID)
	m.mu.Unlock()
	return a, nil
}

func (m *Memory) GetAnalysis(ctx context.Context, id string) (Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) ListAnalyses(ctx context.Context, kind, cursor string, limit int) ([]Analysis, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if cursor != "" {
		for i, id := range m.anOrder {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	out := []Analysis{}
	var next string
	for i := start; i < len(m.anOrder) && len(out) < limit; i++ {
		a := m.analyses[m.anOrder[i]]
		if kind == "" || a.Kind == kind {
			out = append(out, a)
		}
		next = m.anOrder[i]
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.ID = uuid.New().String()
	m.subs[sub.ID] = sub
	return sub, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Subscription
	for _, s := range m.subs {
		for _, e := range s.Events {
			if e == eventType {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID: id, SubscriptionID: subscriptionID, EventType: eventType,
			URL: url, Secret: secret, Payload: payload,
		},
		NextAttemptAt: time.Now(),
	}
	m.delOrder = append(m.delOrder, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.delOrder {
		d := m.deliveries[id]
		if d == nil || d.Delivered || d.Failed || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Delivered = true
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Failed = true
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
