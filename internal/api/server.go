package api

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"haulscope/internal/auth"
	"haulscope/internal/econ"
	"haulscope/internal/store"
	"haulscope/internal/webhooks"
)

type Server struct {
	Store       store.Store
	Pub         *webhooks.Publisher
	Auth        *auth.Verifier
	Broker      EventBroker
	Assumptions econ.Assumptions
	Log         *zap.Logger
	Workers     int
}

// NewServer wires the server from the environment. Without DATABASE_URL it
// uses the in-memory store; without REDIS_URL the in-memory broker.
func NewServer(log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var s store.Store
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn == "" {
		s = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := pg.EnsureSchema(context.Background()); err != nil {
				return nil, err
			}
		}
		s = pg
	}

	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			log.Warn("redis broker unavailable, falling back to in-memory", zap.Error(err))
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	a := econ.Defaults()
	if path := os.Getenv("ASSUMPTIONS_FILE"); path != "" {
		loaded, err := econ.LoadFile(path)
		if err != nil {
			return nil, err
		}
		a = loaded
	}

	workers := 0
	if v := os.Getenv("SCORE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workers = n
		}
	}

	return &Server{
		Store:       s,
		Pub:         webhooks.NewPublisher(s),
		Auth:        auth.NewVerifierFromEnv(),
		Broker:      broker,
		Assumptions: a,
		Log:         log,
		Workers:     workers,
	}, nil
}

// NewWebhookWorker creates the background delivery worker.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Log)
}

func (s *Server) getPrincipal(r *http.Request) auth.Principal {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		if p, err := s.Auth.Verify(strings.TrimPrefix(h, "Bearer ")); err == nil {
			return p
		}
	}
	// Header shortcut for dev mode and tests.
	if role := r.Header.Get("X-Role"); role != "" && s.Auth.Mode == "dev" {
		return auth.Principal{Subject: "dev", Role: strings.ToLower(role)}
	}
	return auth.Principal{Role: "user"}
}
