package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/config"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/db/models"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/outbox"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec, _ := serve(t, HealthReady(cfg, testLogger(), map[string]Pinger{"db": ok, "redis": ok}), newRequest(http.MethodGet, "/", "", "", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Storefront-Env") != "test" {
		t.Fatalf("expected ready, got %d", rec.Code)
	}

	rec, env := serve(t, HealthReady(cfg, testLogger(), map[string]Pinger{"db": ok, "redis": down}), newRequest(http.MethodGet, "/", "", "", nil))
	if rec.Code != http.StatusServiceUnavailable || env.Error.Code != string(pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %d %s", rec.Code, env.Error.Code)
	}
	var details struct {
		Failed []string `json:"failed"`
	}
	if err := json.Unmarshal(env.Error.Details, &details); err != nil || len(details.Failed) != 1 || details.Failed[0] != "redis" {
		t.Fatalf("expected redis listed, got %s", env.Error.Details)
	}
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{}
	rec, _ := serve(t, HealthLive(cfg), newRequest(http.MethodGet, "/", "", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

type stubDeadLetters struct {
	filter outbox.DeadLetterFilter
	rows   []models.OutboxDLQ
	err    error
}

func (s *stubDeadLetters) List(_ context.Context, filter outbox.DeadLetterFilter) ([]models.OutboxDLQ, error) {
	s.filter = filter
	return s.rows, s.err
}

func TestAdminDeadLetters(t *testing.T) {
	msg := "sink rejected"
	repo := &stubDeadLetters{rows: []models.OutboxDLQ{{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "42",
		Payload:       json.RawMessage(`{"version":1}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
		FailedAt:      time.Now(),
	}}}
	rec, env := serve(t, AdminDeadLetters(repo, testLogger()), newRequest(http.MethodGet, "/?limit=5&reason=max_attempts&event_type=order_created", "", "", nil))
	if rec.Code != http.StatusOK || repo.filter.Limit != 5 {
		t.Fatalf("expected 200 with limit 5, got %d %d", rec.Code, repo.filter.Limit)
	}
	if repo.filter.Reason != enums.OutboxDLQReasonMaxAttempts || repo.filter.EventType != enums.EventOrderCreated {
		t.Fatalf("filters not forwarded: %+v", repo.filter)
	}
	var rows []deadLetterDTO
	if err := json.Unmarshal(env.Data, &rows); err != nil || len(rows) != 1 || rows[0].AggregateID != "42" {
		t.Fatalf("unexpected rows %s", env.Data)
	}

	rec, _ = serve(t, AdminDeadLetters(repo, testLogger()), newRequest(http.MethodGet, "/?reason=lost", "", "", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown reason, got %d", rec.Code)
	}

	repo = &stubDeadLetters{err: errors.New("db down")}
	rec, _ = serve(t, AdminDeadLetters(repo, testLogger()), newRequest(http.MethodGet, "/", "", "", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
