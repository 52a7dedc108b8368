package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"haulscope/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// EnsureSchema creates the tables if they do not exist (dev helper).
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			type TEXT NOT NULL,
			units INT NOT NULL DEFAULT 0,
			monthly_revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
			completion_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
			service_status TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS facilities (
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (kind, name)
		)`,
		`CREATE TABLE IF NOT EXISTS zones (
			name TEXT PRIMARY KEY,
			vertices JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS analyses (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			payload JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			url TEXT NOT NULL,
			events JSONB NOT NULL,
			secret TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id UUID PRIMARY KEY,
			subscription_id UUID NOT NULL,
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT NOT NULL DEFAULT '',
			payload BYTEA NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			delivered_at TIMESTAMPTZ,
			failed_at TIMESTAMPTZ,
			last_error TEXT NOT NULL DEFAULT '',
			response_code INT NOT NULL DEFAULT 0,
			latency_ms INT NOT NULL DEFAULT 0
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) UpsertCustomers(ctx context.Context, customers []model.CustomerRecord) (int, int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	created, updated := 0, 0
	for _, c := range customers {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.Type = model.NormalizeType(string(c.Type))
		// xmax = 0 distinguishes a fresh insert from a conflict update.
		var wasInsert bool
		err := tx.QueryRowContext(ctx, `
			INSERT INTO customers (id, name, address, lat, lng, type, units, monthly_revenue, completion_minutes, service_status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (id) DO UPDATE SET
				name=EXCLUDED.name, address=EXCLUDED.address, lat=EXCLUDED.lat, lng=EXCLUDED.lng,
				type=EXCLUDED.type, units=EXCLUDED.units, monthly_revenue=EXCLUDED.monthly_revenue,
				completion_minutes=EXCLUDED.completion_minutes, service_status=EXCLUDED.service_status
			RETURNING (xmax = 0)`,
			c.ID, c.Name, c.Address, c.Latitude, c.Longitude, string(c.Type),
			c.Units, c.MonthlyRevenue, c.CompletionTimeMinutes, string(c.ServiceStatus)).Scan(&wasInsert)
		if err != nil {
			return 0, 0, err
		}
		if wasInsert {
			created++
		} else {
			updated++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func (p *Postgres) ListCustomers(ctx context.Context, status, cursor string, limit int) ([]model.CustomerRecord, string, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, address, lat, lng, type, units, monthly_revenue, completion_minutes, service_status
		FROM customers
		WHERE ($1 = '' OR service_status = $1) AND ($2 = '' OR id > $2)
		ORDER BY id LIMIT $3`, status, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out := []model.CustomerRecord{}
	for rows.Next() {
		var c model.CustomerRecord
		var typ, st string
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Latitude, &c.Longitude, &typ, &c.Units, &c.MonthlyRevenue, &c.CompletionTimeMinutes, &st); err != nil {
			return nil, "", err
		}
		c.Type = model.CustomerType(typ)
		c.ServiceStatus = model.ServiceStatus(st)
		out = append(out, c)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) GetFacilities(ctx context.Context) (model.FacilitySet, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT kind, name, lat, lng FROM facilities`)
	if err != nil {
		return model.FacilitySet{}, err
	}
	defer rows.Close()
	var fs model.FacilitySet
	for rows.Next() {
		var f model.FacilityRecord
		var kind string
		if err := rows.Scan(&kind, &f.Name, &f.Latitude, &f.Longitude); err != nil {
			return model.FacilitySet{}, err
		}
		f.Kind = model.FacilityKind(kind)
		if f.Kind == model.FacilityDepot {
			fs.Depot = f
		} else {
			fs.Landfills = append(fs.Landfills, f)
		}
	}
	return fs, rows.Err()
}

func (p *Postgres) PutFacilities(ctx context.Context, fs model.FacilitySet) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM facilities`); err != nil {
		return err
	}
	all := append([]model.FacilityRecord{fs.Depot}, fs.Landfills...)
	for _, f := range all {
		if _, err := tx.ExecContext(ctx, `INSERT INTO facilities (kind, name, lat, lng) VALUES ($1,$2,$3,$4)`,
			string(f.Kind), f.Name, f.Latitude, f.Longitude); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListZones(ctx context.Context) ([]model.ServiceZone, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name, vertices FROM zones ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ServiceZone{}
	for rows.Next() {
		var z model.ServiceZone
		var raw []byte
		if err := rows.Scan(&z.Name, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &z.Vertices); err != nil {
			return nil, fmt.Errorf("zone %s: %w", z.Name, err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

func (p *Postgres) PutZones(ctx context.Context, zones []model.ServiceZone) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM zones`); err != nil {
		return err
	}
	for _, z := range zones {
		raw, err := json.Marshal(z.Vertices)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO zones (name, vertices) VALUES ($1,$2)`, z.Name, raw); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) SaveAnalysis(ctx context.Context, kind string, payload any) (Analysis, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Analysis{}, err
	}
	a := Analysis{ID: uuid.New().String(), Kind: kind, CreatedAt: time.Now().UTC(), Payload: b}
	_, err = p.db.ExecContext(ctx, `INSERT INTO analyses (id, kind, created_at, payload) VALUES ($1,$2,$3,$4)`,
		a.ID, a.Kind, a.CreatedAt, b)
	if err != nil {
		return Analysis{}, err
	}
	return a, nil
}

func (p *Postgres) GetAnalysis(ctx context.Context, id string) (Analysis, error) {
	var a Analysis
	err := p.db.QueryRowContext(ctx, `SELECT id::text, kind, created_at, payload FROM analyses WHERE id=$1`, id).
		Scan(&a.ID, &a.Kind, &a.CreatedAt, (*[]byte)(&a.Payload))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

func (p *Postgres) ListAnalyses(ctx context.Context, kind, cursor string, limit int) ([]Analysis, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id::text, kind, created_at, payload FROM analyses
		WHERE ($1 = '' OR kind = $1) AND ($2 = '' OR id::text > $2)
		ORDER BY id::text LIMIT $3`, kind, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []Analysis{}
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(&a.ID, &a.Kind, &a.CreatedAt, (*[]byte)(&a.Payload)); err != nil {
			return nil, "", err
		}
		out = append(out, a)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error) {
	sub.ID = uuid.New().String()
	events, err := json.Marshal(sub.Events)
	if err != nil {
		return Subscription{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,$4)`,
		sub.ID, sub.URL, events, sub.Secret)
	return sub, err
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events, secret FROM subscriptions ORDER BY id::text`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events, secret FROM subscriptions WHERE events ? $1`, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func scanSubscriptions(rows *sql.Rows) ([]Subscription, error) {
	var out []Subscription
	for rows.Next() {
		var s Subscription
		var raw []byte
		if err := rows.Scan(&s.ID, &s.URL, &raw, &s.Secret); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &s.Events); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload)
		VALUES ($1,$2,$3,$4,$5,$6)`, id, subscriptionID, eventType, url, secret, payload)
	return id, err
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id::text, subscription_id::text, event_type, url, secret, payload, attempts
		FROM webhook_deliveries
		WHERE delivered_at IS NULL AND failed_at IS NULL AND next_attempt_at <= now()
		ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `
			UPDATE webhook_deliveries
			SET attempts = attempts + 1, delivered_at = now(), last_error = $2, response_code = $3, latency_ms = $4
			WHERE id = $1`, id, lastError, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `
		UPDATE webhook_deliveries
		SET attempts = attempts + 1, next_attempt_at = COALESCE($2, next_attempt_at), last_error = $3, response_code = $4, latency_ms = $5
		WHERE id = $1`, id, nextAttemptAt, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE webhook_deliveries
		SET attempts = attempts + 1, failed_at = now(), last_error = $2, response_code = $3, latency_ms = $4
		WHERE id = $1`, id, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }
