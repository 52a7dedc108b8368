package store

import (
	"context"
	"testing"
	"time"

	"haulscope/internal/model"
)

func TestMemoryUpsertAndListCustomers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, updated, err := m.UpsertCustomers(ctx, []model.CustomerRecord{
		{ID: "a", Name: "Alpha", ServiceStatus: model.StatusServiced},
		{ID: "b", Name: "Beta", ServiceStatus: model.StatusCancelled},
		{Name: "NoID"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created != 3 || updated != 0 {
		t.Fatalf("expected 3 created, got created=%d updated=%d", created, updated)
	}

	created, updated, err = m.UpsertCustomers(ctx, []model.CustomerRecord{{ID: "a", Name: "Alpha v2"}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created != 0 || updated != 1 {
		t.Fatalf("expected 1 updated, got created=%d updated=%d", created, updated)
	}

	all, next, err := m.ListCustomers(ctx, "", "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || next != "" {
		t.Fatalf("expected 3 customers and no cursor, got %d %q", len(all), next)
	}
	if all[0].Name != "Alpha v2" {
		t.Fatalf("expected upsert to replace, got %q", all[0].Name)
	}

	cancelled, _, err := m.ListCustomers(ctx, string(model.StatusCancelled), "", 10)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(cancelled) != 1 || cancelled[0].ID != "b" {
		t.Fatalf("status filter broken: %+v", cancelled)
	}
}

func TestMemoryCustomerPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if _, _, err := m.UpsertCustomers(ctx, []model.CustomerRecord{{ID: id}}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	var got []string
	cursor := ""
	for {
		page, next, err := m.ListCustomers(ctx, "", cursor, 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, c := range page {
			got = append(got, c.ID)
		}
		if next == "" {
			break
		}
		cursor = next
	}
	if len(got) != 5 {
		t.Fatalf("pagination walked %d records, want 5: %v", len(got), got)
	}
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		if got[i] != id {
			t.Fatalf("pagination order broken: %v", got)
		}
	}
}

func TestMemoryFacilitiesAndZones(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	fs := model.FacilitySet{
		Depot:     model.FacilityRecord{Name: "yard", Kind: model.FacilityDepot, Latitude: 29.76, Longitude: -95.37},
		Landfills: []model.FacilityRecord{{Name: "lf", Kind: model.FacilityLandfill, Latitude: 29.8, Longitude: -95.3}},
	}
	if err := m.PutFacilities(ctx, fs); err != nil {
		t.Fatalf("put facilities: %v", err)
	}
	got, err := m.GetFacilities(ctx)
	if err != nil || got.Depot.Name != "yard" || len(got.Landfills) != 1 {
		t.Fatalf("facilities roundtrip broken: %+v %v", got, err)
	}

	zones := []model.ServiceZone{{Name: "z1", Vertices: [][2]float64{{0, 0}, {1, 0}, {1, 1}}}}
	if err := m.PutZones(ctx, zones); err != nil {
		t.Fatalf("put zones: %v", err)
	}
	zs, err := m.ListZones(ctx)
	if err != nil || len(zs) != 1 || zs[0].Name != "z1" {
		t.Fatalf("zones roundtrip broken: %+v %v", zs, err)
	}
}

func TestMemoryAnalyses(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a, err := m.SaveAnalysis(ctx, "bid", map[string]any{"n": 1})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if a.ID == "" || a.Kind != "bid" {
		t.Fatalf("bad analysis: %+v", a)
	}

	got, err := m.GetAnalysis(ctx, a.ID)
	if err != nil || got.ID != a.ID {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := m.GetAnalysis(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := m.SaveAnalysis(ctx, "pricing", map[string]any{"n": 2}); err != nil {
		t.Fatalf("save: %v", err)
	}
	bidsOnly, _, err := m.ListAnalyses(ctx, "bid", "", 10)
	if err != nil || len(bidsOnly) != 1 {
		t.Fatalf("kind filter broken: %d %v", len(bidsOnly), err)
	}
}

func TestMemorySubscriptions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.CreateSubscription(ctx, Subscription{URL: "https://example.com/hook", Events: []string{"analysis.completed"}, Secret: "s"})
	if err != nil || sub.ID == "" {
		t.Fatalf("create: %+v %v", sub, err)
	}

	matched, err := m.GetSubscriptionsForEvent(ctx, "analysis.completed")
	if err != nil || len(matched) != 1 {
		t.Fatalf("event match broken: %d %v", len(matched), err)
	}
	matched, err = m.GetSubscriptionsForEvent(ctx, "opportunity.detected")
	if err != nil || len(matched) != 0 {
		t.Fatalf("expected no match, got %d %v", len(matched), err)
	}

	if err := m.DeleteSubscription(ctx, sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.DeleteSubscription(ctx, sub.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryWebhookQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.EnqueueWebhook(ctx, "sub1", "analysis.completed", "https://example.com/hook", "s", []byte(`{}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 1 || due[0].ID != id {
		t.Fatalf("fetch due: %+v %v", due, err)
	}

	// A retry scheduled in the future is no longer due.
	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500, 12); err != nil {
		t.Fatalf("mark: %v", err)
	}
	due, err = m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 0 {
		t.Fatalf("expected nothing due, got %d %v", len(due), err)
	}

	// Rewind and deliver successfully.
	past := time.Now().Add(-time.Minute)
	if err := m.MarkWebhookDelivery(ctx, id, false, &past, "boom", 500, 12); err != nil {
		t.Fatalf("mark: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 {
		t.Fatalf("expected one due after rewind, got %d", len(due))
	}
	if due[0].Attempts != 2 {
		t.Fatalf("expected attempts=2, got %d", due[0].Attempts)
	}
	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 8); err != nil {
		t.Fatalf("mark success: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("delivered item still due")
	}
}

func TestMemoryFailWebhookDelivery(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.EnqueueWebhook(ctx, "sub1", "analysis.completed", "https://example.com/hook", "", []byte(`{}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := m.FailWebhookDelivery(ctx, id, "gave up", 503, 20); err != nil {
		t.Fatalf("fail: %v", err)
	}
	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("failed item still due")
	}
}
