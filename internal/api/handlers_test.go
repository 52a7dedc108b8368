package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"haulscope/internal/auth"
	"haulscope/internal/econ"
	"haulscope/internal/model"
	"haulscope/internal/store"
	"haulscope/internal/webhooks"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := store.NewMemory()
	srv := &Server{
		Store:       s,
		Pub:         webhooks.NewPublisher(s),
		Auth:        &auth.Verifier{Mode: "dev"},
		Broker:      NewBroker(),
		Assumptions: econ.Defaults(),
		Log:         zap.NewNop(),
		Workers:     2,
	}
	fs := model.FacilitySet{
		Depot:     model.FacilityRecord{Name: "yard", Kind: model.FacilityDepot, Latitude: 29.76, Longitude: -95.37},
		Landfills: []model.FacilityRecord{{Name: "lf", Kind: model.FacilityLandfill, Latitude: 29.80, Longitude: -95.30}},
	}
	if err := s.PutFacilities(context.Background(), fs); err != nil {
		t.Fatalf("seed facilities: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, h http.HandlerFunc, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Role", "admin")
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.HealthHandler, http.MethodGet, "/healthz", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rr.Code)
	}
	rr = doJSON(t, srv.ReadyHandler, http.MethodGet, "/readyz", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rr.Code)
	}
}

func TestScoreHandler(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]any{"customer": model.CustomerRecord{
		ID: "c1", Latitude: 29.76, Longitude: -95.37, Type: model.TypeHOA,
		MonthlyRevenue: 300, CompletionTimeMinutes: 60,
	}}
	rr := doJSON(t, srv.ScoreHandler, http.MethodPost, "/v1/score", body, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("score: %d %s", rr.Code, rr.Body.String())
	}
	var sc model.CustomerScore
	if err := json.Unmarshal(rr.Body.Bytes(), &sc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sc.CustomerID != "c1" || sc.Profitability.Tier != econ.TierHigh {
		t.Fatalf("unexpected score: %+v", sc)
	}
}

func TestScoreHandlerRejectsBadCoords(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]any{"customer": model.CustomerRecord{Latitude: 99, Longitude: 0}}
	rr := doJSON(t, srv.ScoreHandler, http.MethodPost, "/v1/score", body, false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("problem body: %v", err)
	}
	if p.Status != http.StatusBadRequest {
		t.Fatalf("problem status: %+v", p)
	}
}

func TestScoreBatchHandlerSavesAnalysis(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]any{"customers": []model.CustomerRecord{
		{ID: "c1", Latitude: 29.76, Longitude: -95.37, MonthlyRevenue: 300, CompletionTimeMinutes: 60},
		{ID: "c2", Latitude: 29.77, Longitude: -95.38, MonthlyRevenue: 100, CompletionTimeMinutes: 10},
	}}
	rr := doJSON(t, srv.ScoreBatchHandler, http.MethodPost, "/v1/score/batch", body, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("batch: %d %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		AnalysisID string                `json:"analysisId"`
		Scores     []model.CustomerScore `json:"scores"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AnalysisID == "" || len(resp.Scores) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Scores[0].CustomerID != "c1" || resp.Scores[1].CustomerID != "c2" {
		t.Fatalf("batch order not preserved: %+v", resp.Scores)
	}

	rr = doJSON(t, srv.AnalysisByIDHandler, http.MethodGet, "/v1/analyses/"+resp.AnalysisID, nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("get analysis: %d", rr.Code)
	}
}

func TestScoreBatchUsesStoredCustomers(t *testing.T) {
	srv := newTestServer(t)
	_, _, err := srv.Store.UpsertCustomers(context.Background(), []model.CustomerRecord{
		{ID: "c1", Latitude: 29.76, Longitude: -95.37, MonthlyRevenue: 300, CompletionTimeMinutes: 60},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	rr := doJSON(t, srv.ScoreBatchHandler, http.MethodPost, "/v1/score/batch", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("batch: %d %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Scores []model.CustomerScore `json:"scores"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Scores) != 1 {
		t.Fatalf("expected stored customer to be scored, got %d", len(resp.Scores))
	}
}

func TestBidsHandlerRejectsNullIsland(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.BidsHandler, http.MethodPost, "/v1/bids/evaluate",
		model.BidRequest{Homes: 100}, false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestBidsHandler(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.BidsHandler, http.MethodPost, "/v1/bids/evaluate",
		model.BidRequest{Homes: 600, Latitude: 29.76, Longitude: -95.36, FuelSurchargeAllowed: true}, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("bids: %d %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		AnalysisID string            `json:"analysisId"`
		Analysis   model.BidAnalysis `json:"analysis"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AnalysisID == "" || resp.Analysis.Recommendation == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRouteSimHandlerValidation(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.RouteSimHandler, http.MethodPost, "/v1/routes/simulate",
		model.RouteStop{Latitude: 29.76, Longitude: -95.36, TrashDaysPerWeek: 9}, false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr = doJSON(t, srv.RouteSimHandler, http.MethodPost, "/v1/routes/simulate",
		model.RouteStop{Latitude: 29.76, Longitude: -95.36, MonthlyRevenue: 500, CompletionTimeMinutes: 10, TrashDaysPerWeek: 1}, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("simulate: %d %s", rr.Code, rr.Body.String())
	}
}

func TestPricingHandler(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.PricingHandler, http.MethodPost, "/v1/pricing/quote",
		model.PricingInput{Latitude: 29.76, Longitude: -95.37, NumberOfCarts: 1}, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("pricing: %d %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Quote model.PricingQuote `json:"quote"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Quote.SuggestedPrice <= 0 {
		t.Fatalf("unexpected quote: %+v", resp.Quote)
	}
}

func TestOpportunitiesHandler(t *testing.T) {
	srv := newTestServer(t)
	subs := make([]model.CustomerRecord, 3)
	for i := range subs {
		subs[i] = model.CustomerRecord{
			Type: model.TypeSubscription, Latitude: 29.76, Longitude: -95.36, MonthlyRevenue: 100,
		}
	}
	if _, _, err := srv.Store.UpsertCustomers(context.Background(), subs); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rr := doJSON(t, srv.OpportunitiesHandler, http.MethodPost, "/v1/opportunities",
		map[string]any{"minROIPercent": 50}, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("opportunities: %d %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Opportunities []model.OpportunityZone `json:"opportunities"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Opportunities) != 1 {
		t.Fatalf("expected one zone, got %d", len(resp.Opportunities))
	}
}

func TestCustomersRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.CustomersHandler, http.MethodPost, "/v1/customers", map[string]any{
		"customers": []model.CustomerRecord{{ID: "c1", Latitude: 29.76, Longitude: -95.37}},
	}, false)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("post customers: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv.CustomersHandler, http.MethodGet, "/v1/customers", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("get customers: %d", rr.Code)
	}
	var resp struct {
		Items []model.CustomerRecord `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "c1" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}

func TestFacilitiesRequireAdmin(t *testing.T) {
	srv := newTestServer(t)
	fs := model.FacilitySet{Depot: model.FacilityRecord{Latitude: 30.0, Longitude: -95.0}}

	rr := doJSON(t, srv.FacilitiesHandler, http.MethodPut, "/v1/facilities", fs, false)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}

	rr = doJSON(t, srv.FacilitiesHandler, http.MethodPut, "/v1/facilities", fs, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin put: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv.FacilitiesHandler, http.MethodGet, "/v1/facilities", nil, false)
	var got model.FacilitySet
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Depot.Latitude != 30.0 || got.Depot.Kind != model.FacilityDepot {
		t.Fatalf("unexpected facilities: %+v", got)
	}
}

func TestZonesValidation(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.ZonesHandler, http.MethodPost, "/v1/zones", map[string]any{
		"zones": []model.ServiceZone{{Name: "bad", Vertices: [][2]float64{{0, 0}}}},
	}, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for degenerate zone, got %d", rr.Code)
	}

	rr = doJSON(t, srv.ZonesHandler, http.MethodPost, "/v1/zones", map[string]any{
		"zones": []model.ServiceZone{{Name: "downtown", Vertices: [][2]float64{{-95.5, 29.6}, {-95.3, 29.6}, {-95.3, 29.9}}}},
	}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("post zones: %d %s", rr.Code, rr.Body.String())
	}
}

func TestSubscriptionsLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv.SubscriptionsHandler, http.MethodPost, "/v1/subscriptions", store.Subscription{
		URL: "https://example.com/hook", Events: []string{"analysis.completed"}, Secret: "s",
	}, false)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}

	rr = doJSON(t, srv.SubscriptionsHandler, http.MethodPost, "/v1/subscriptions", store.Subscription{
		URL: "https://example.com/hook", Events: []string{"analysis.completed"}, Secret: "s",
	}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	var sub store.Subscription
	if err := json.Unmarshal(rr.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub.ID == "" {
		t.Fatalf("missing subscription id")
	}
	if sub.Secret != "" {
		t.Fatalf("secret echoed back")
	}

	rr = doJSON(t, srv.SubscriptionByIDHandler, http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil, true)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	rr = doJSON(t, srv.SubscriptionByIDHandler, http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil, true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rr.Code)
	}
}

func TestAnalysesList(t *testing.T) {
	srv := newTestServer(t)
	if _, err := srv.Store.SaveAnalysis(context.Background(), "bid", map[string]any{"n": 1}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rr := doJSON(t, srv.AnalysesHandler, http.MethodGet, "/v1/analyses?kind=bid", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d", rr.Code)
	}
	var resp struct {
		Items []store.Analysis `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Kind != "bid" {
		t.Fatalf("unexpected analyses: %+v", resp.Items)
	}
}

func TestAnalysisNotFound(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv.AnalysisByIDHandler, http.MethodGet, "/v1/analyses/nope", nil, false)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
