package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"haulscope/internal/batch"
	"haulscope/internal/bids"
	"haulscope/internal/metrics"
	"haulscope/internal/model"
	"haulscope/internal/pricing"
	"haulscope/internal/routesim"
	"haulscope/internal/store"
	"haulscope/internal/webhooks"
	"haulscope/internal/zones"
)

// loadDataset pulls the reference data every analysis reads: the customer
// book, the facility set, and the service zones.
func (s *Server) loadDataset(ctx context.Context) ([]model.CustomerRecord, model.FacilitySet, []model.ServiceZone, error) {
	var customers []model.CustomerRecord
	cursor := ""
	for {
		page, next, err := s.Store.ListCustomers(ctx, "", cursor, 1000)
		if err != nil {
			return nil, model.FacilitySet{}, nil, err
		}
		customers = append(customers, page...)
		if next == "" {
			break
		}
		cursor = next
	}
	fs, err := s.Store.GetFacilities(ctx)
	if err != nil {
		return nil, model.FacilitySet{}, nil, err
	}
	zs, err := s.Store.ListZones(ctx)
	if err != nil {
		return nil, model.FacilitySet{}, nil, err
	}
	return customers, fs, zs, nil
}

// saveAndAnnounce persists an analysis snapshot, publishes it to stream
// subscribers, and enqueues webhook deliveries.
func (s *Server) saveAndAnnounce(ctx context.Context, kind string, payload any) (store.Analysis, error) {
	a, err := s.Store.SaveAnalysis(ctx, kind, payload)
	if err != nil {
		return store.Analysis{}, err
	}
	metrics.AnalysesSaved.WithLabelValues(kind).Inc()
	evt := SSEEvent{Type: webhooks.EventAnalysisCompleted, Data: map[string]any{
		"analysisId": a.ID, "kind": kind, "createdAt": a.CreatedAt.Format(time.RFC3339),
	}}
	s.Broker.Publish(a.ID, evt)
	s.Pub.Emit(ctx, webhooks.EventAnalysisCompleted, evt.Data)
	return a, nil
}

// ScoreHandler handles POST /v1/score
func (s *Server) ScoreHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Customer model.CustomerRecord `json:"customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateCustomer(&req.Customer); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid customer", err.Error(), r.URL.Path)
		return
	}
	fs, err := s.Store.GetFacilities(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load facilities failed", err.Error(), r.URL.Path)
		return
	}
	zs, err := s.Store.ListZones(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load zones failed", err.Error(), r.URL.Path)
		return
	}
	if err := batch.ValidateZones(zs); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Bad zone data", err.Error(), r.URL.Path)
		return
	}
	score := batch.ScoreCustomer(s.Assumptions, req.Customer, fs, zs)
	metrics.ScoresComputed.WithLabelValues(score.Profitability.Tier).Inc()
	writeJSON(w, http.StatusOK, score)
}

// ScoreBatchHandler handles POST /v1/score/batch
func (s *Server) ScoreBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Customers []model.CustomerRecord `json:"customers,omitempty"`
		Workers   int                    `json:"workers,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
	}
	for i := range req.Customers {
		if err := validateCustomer(&req.Customers[i]); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid customer", fmt.Sprintf("customer %d: %v", i, err), r.URL.Path)
			return
		}
	}

	stored, fs, zs, err := s.loadDataset(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load dataset failed", err.Error(), r.URL.Path)
		return
	}
	customers := req.Customers
	if len(customers) == 0 {
		customers = stored
	}
	workers := req.Workers
	if workers <= 0 {
		workers = s.Workers
	}

	start := time.Now()
	scores, err := batch.ScoreAll(r.Context(), s.Assumptions, customers, fs, zs, workers)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Batch scoring failed", err.Error(), r.URL.Path)
		return
	}
	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	for _, sc := range scores {
		metrics.ScoresComputed.WithLabelValues(sc.Profitability.Tier).Inc()
	}

	a, err := s.saveAndAnnounce(r.Context(), "score_batch", map[string]any{"scores": scores})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save analysis failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysisId": a.ID, "scores": scores})
}

// OpportunitiesHandler handles POST /v1/opportunities
func (s *Server) OpportunitiesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		MinROIPercent float64 `json:"minROIPercent"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
	}
	customers, fs, _, err := s.loadDataset(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load dataset failed", err.Error(), r.URL.Path)
		return
	}
	opps := zones.FindOpportunities(customers, fs.Depot, req.MinROIPercent)

	a, err := s.saveAndAnnounce(r.Context(), "opportunities", map[string]any{"opportunities": opps})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save analysis failed", err.Error(), r.URL.Path)
		return
	}
	if len(opps) > 0 {
		s.Pub.Emit(r.Context(), webhooks.EventOpportunityDetected, map[string]any{
			"analysisId": a.ID, "count": len(opps), "topROIPercent": opps[0].PotentialROIPercent,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysisId": a.ID, "opportunities": opps})
}

// BidsHandler handles POST /v1/bids/evaluate
func (s *Server) BidsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateBidRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid bid request", err.Error(), r.URL.Path)
		return
	}
	customers, fs, _, err := s.loadDataset(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load dataset failed", err.Error(), r.URL.Path)
		return
	}
	analysis, err := bids.Evaluate(s.Assumptions, req, customers, fs)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bid evaluation failed", err.Error(), r.URL.Path)
		return
	}
	a, err := s.saveAndAnnounce(r.Context(), "bid", map[string]any{"request": req, "analysis": analysis})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save analysis failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysisId": a.ID, "analysis": analysis})
}

// RouteSimHandler handles POST /v1/routes/simulate
func (s *Server) RouteSimHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.RouteStop
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateRouteStop(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid route stop", err.Error(), r.URL.Path)
		return
	}
	customers, fs, _, err := s.loadDataset(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load dataset failed", err.Error(), r.URL.Path)
		return
	}
	result := routesim.Simulate(s.Assumptions, req, customers, fs.Depot)
	a, err := s.saveAndAnnounce(r.Context(), "route_sim", map[string]any{"stop": req, "result": result})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save analysis failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysisId": a.ID, "result": result})
}

// PricingHandler handles POST /v1/pricing/quote
func (s *Server) PricingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.PricingInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validatePricingInput(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid pricing input", err.Error(), r.URL.Path)
		return
	}
	customers, _, _, err := s.loadDataset(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load dataset failed", err.Error(), r.URL.Path)
		return
	}
	quote := pricing.Quote(req, customers)
	a, err := s.saveAndAnnounce(r.Context(), "pricing", map[string]any{"input": req, "quote": quote})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save analysis failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysisId": a.ID, "quote": quote})
}

// CustomersHandler handles POST/GET /v1/customers
func (s *Server) CustomersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Customers []model.CustomerRecord `json:"customers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		for i := range req.Customers {
			if err := validateCustomer(&req.Customers[i]); err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid customer", fmt.Sprintf("customer %d: %v", i, err), r.URL.Path)
				return
			}
		}
		created, updated, err := s.Store.UpsertCustomers(r.Context(), req.Customers)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Upsert customers failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"created": created, "updated": updated})
	case http.MethodGet:
		status := r.URL.Query().Get("status")
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListCustomers(r.Context(), status, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List customers failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// FacilitiesHandler handles GET/PUT /v1/facilities
func (s *Server) FacilitiesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		fs, err := s.Store.GetFacilities(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load facilities failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, fs)
	case http.MethodPut:
		if !s.getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var fs model.FacilitySet
		if err := json.NewDecoder(r.Body).Decode(&fs); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateFacilities(&fs); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid facilities", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.PutFacilities(r.Context(), fs); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save facilities failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, fs)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ZonesHandler handles GET/POST /v1/zones
func (s *Server) ZonesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		zs, err := s.Store.ListZones(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load zones failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": zs})
	case http.MethodPost:
		if !s.getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var req struct {
			Zones []model.ServiceZone `json:"zones"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateZones(req.Zones); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid zones", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.PutZones(r.Context(), req.Zones); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save zones failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"saved": len(req.Zones)})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// AnalysesHandler handles GET /v1/analyses
func (s *Server) AnalysesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	kind := r.URL.Query().Get("kind")
	cursor := r.URL.Query().Get("cursor")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListAnalyses(r.Context(), kind, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List analyses failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// AnalysisByIDHandler handles GET /v1/analyses/{id} and
// GET /v1/analyses/{id}/events/stream (SSE).
func (s *Server) AnalysisByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/analyses/")
	if strings.HasSuffix(rest, "/events/stream") {
		id := strings.TrimSuffix(rest, "/events/stream")
		s.streamAnalysisEvents(w, r, id)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	a, err := s.Store.GetAnalysis(r.Context(), rest)
	if err == store.ErrNotFound {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get analysis failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) streamAnalysisEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case evt, open := <-ch:
			if !open {
				return
			}
			data, _ := json.Marshal(evt)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
		}
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if !s.getPrincipal(r).IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		var req store.Subscription
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events are required", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		sub.Secret = ""
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		subs, err := s.Store.ListSubscriptions(r.Context())
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		for i := range subs {
			subs[i].Secret = ""
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": subs})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.getPrincipal(r).IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	err := s.Store.DeleteSubscription(r.Context(), id)
	if err == store.ErrNotFound {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Store unavailable", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
