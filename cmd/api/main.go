package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"haulscope/internal/api"
	"haulscope/internal/buildinfo"
	"haulscope/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	log, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	metrics.RegisterDefault()

	srv, err := api.NewServer(log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	worker := srv.NewWebhookWorker()
	worker.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/score", srv.ScoreHandler)
	mux.HandleFunc("/v1/score/batch", srv.ScoreBatchHandler)
	mux.HandleFunc("/v1/opportunities", srv.OpportunitiesHandler)
	mux.HandleFunc("/v1/bids/evaluate", srv.BidsHandler)
	mux.HandleFunc("/v1/routes/simulate", srv.RouteSimHandler)
	mux.HandleFunc("/v1/pricing/quote", srv.PricingHandler)
	mux.HandleFunc("/v1/customers", srv.CustomersHandler)
	mux.HandleFunc("/v1/facilities", srv.FacilitiesHandler)
	mux.HandleFunc("/v1/zones", srv.ZonesHandler)
	mux.HandleFunc("/v1/analyses", srv.AnalysesHandler)
	mux.HandleFunc("/v1/analyses/", srv.AnalysisByIDHandler)
	mux.HandleFunc("/v1/subscriptions", srv.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srv.SubscriptionByIDHandler)
	mux.HandleFunc("/v1/events/ws", srv.EventsWSHandler)
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(buildinfo.Info())
	})

	rl := api.NewRateLimiter(envFloat("RATE_LIMIT_RPS", 50), envInt("RATE_LIMIT_BURST", 100))
	handler := api.LogMiddleware(log, rl.Middleware(mux))

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("version", buildinfo.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("serve failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	close(worker.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("LOG_MODE") == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}
