package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dskvich/classifier-bot/pkg/domain"
)

type fakeChecker struct {
	health *domain.Health
	err    error
}

func (f fakeChecker) CheckHealth(context.Context) (*domain.Health, error) {
	return f.health, f.err
}

type fixedCount int

func (c fixedCount) Len() int { return int(c) }

func TestStatusRouter_Healthy(t *testing.T) {
	r := newStatusRouter(fakeChecker{health: &domain.Health{Status: "healthy", ModelLoaded: true}}, fixedCount(3))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Status != "ok" || resp.Sessions != 3 || resp.Classifier == nil || !resp.Classifier.ModelLoaded {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestStatusRouter_Degraded(t *testing.T) {
	r := newStatusRouter(fakeChecker{err: errors.New("connection refused")}, fixedCount(0))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("expected error in body, got %s", rec.Body.String())
	}
}

func TestStatusRouter_MethodNotAllowed(t *testing.T) {
	r := newStatusRouter(fakeChecker{}, fixedCount(0))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

// fakeService returns err at once, or waits for cancellation when block is set.
type fakeService struct {
	name  string
	err   error
	block bool
}

func (f fakeService) Name() string { return f.name }

func (f fakeService) Start(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return nil
	}
	return f.err
}

func TestGroup_FailureStopsOthers(t *testing.T) {
	g := Group{
		fakeService{name: "blocking", block: true},
		fakeService{name: "failing", err: errors.New("boom")},
	}

	done := make(chan error, 1)
	go func() { done <- g.Start(context.Background()) }()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "failing: boom") {
			t.Fatalf("expected failing service error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("group did not stop after a service failed")
	}
}

func TestGroup_StopsOnContextCancel(t *testing.T) {
	g := Group{fakeService{name: "a", block: true}, fakeService{name: "b", block: true}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("group did not stop on cancel")
	}
}

func TestNewTelegramBot_Nil(t *testing.T) {
	if _, err := NewTelegramBot(nil); err == nil {
		t.Fatal("expected error for nil bot")
	}
}
