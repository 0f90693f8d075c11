package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/onlycars/onlycars-backend/pkg/logger"
)

type fakeIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{records: map[string]string{}}
}

func (s *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.records[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = value.(string)
	return true, nil
}

func (s *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.records, key)
	}
	return nil
}

func idempotentRouter(store *fakeIdempotencyStore, hits *int) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	r := chi.NewRouter()
	r.Use(Idempotency(store, logg))
	r.Post("/api/v1/orders", func(w http.ResponseWriter, req *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"o-1"}}`))
	})
	return r
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdempotencyStore()
	hits := 0
	router := idempotentRouter(store, &hits)

	body := `{"shop_id":"s-1"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "key-1")
		req = req.WithContext(WithUserID(req.Context(), "user-1"))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "o-1") {
			t.Fatalf("attempt %d: unexpected body %s", i, resp.Body.String())
		}
	}
	if hits != 1 {
		t.Fatalf("expected handler to run once, ran %d times", hits)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeIdempotencyStore()
	hits := 0
	router := idempotentRouter(store, &hits)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"shop_id":"s-1"}`))
	first.Header.Set("Idempotency-Key", "key-1")
	first = first.WithContext(WithUserID(first.Context(), "user-1"))
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"shop_id":"s-2"}`))
	second.Header.Set("Idempotency-Key", "key-1")
	second = second.WithContext(WithUserID(second.Context(), "user-1"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, second)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if hits != 1 {
		t.Fatalf("expected handler to run once, ran %d times", hits)
	}
}

func TestIdempotencyRequiresHeaderOnGuardedRoute(t *testing.T) {
	store := newFakeIdempotencyStore()
	hits := 0
	router := idempotentRouter(store, &hits)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if hits != 0 {
		t.Fatalf("handler should not run, ran %d times", hits)
	}
}

func TestIdempotencySkipsUnlistedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	r := chi.NewRouter()
	r.Use(Idempotency(store, logg))
	hits := 0
	r.Get("/api/v1/orders", func(w http.ResponseWriter, req *http.Request) {
		hits++
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK || hits != 1 {
		t.Fatalf("expected passthrough, status %d hits %d", resp.Code, hits)
	}
}
