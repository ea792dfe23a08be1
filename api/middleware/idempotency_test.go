package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/garageworks/garage-backend/pkg/enums"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
)

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	data    map[string]string
	setNXes int
	failing error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{data: make(map[string]string)}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setNXes++
	if m.failing != nil {
		return false, m.failing
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryIdempotencyStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key], _ = value.(string)
	return nil
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "test:idempotency:" + scope + ":" + id
}

func createRequest(path, key, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	if userID != uuid.Nil {
		req = req.WithContext(WithIdentity(req.Context(), userID, enums.UserRoleReceptionist, "access-1"))
	}
	return req
}

func countingCreateHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"invoice_number":"INV-1"}}`))
	})
}

func TestIdempotentRequestMatchesCreateRoutes(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/services", true},
		{http.MethodPost, "/api/services/", true},
		{http.MethodPost, "/api/services/3f1c/parts", true},
		{http.MethodPost, "/api/services//parts", false},
		{http.MethodPost, "/api/invoices", true},
		{http.MethodPost, "/api/clients/with-vehicles", true},
		{http.MethodPut, "/api/services/3f1c", false},
		{http.MethodPost, "/api/invoices/3f1c/pay", false},
		{http.MethodPost, "/api/auth/login", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if got := idempotentRequest(req); got != tc.want {
			t.Fatalf("%s %s: expected %v got %v", tc.method, tc.path, tc.want, got)
		}
	}
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(countingCreateHandler(&calls))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, createRequest("/api/services", "", `{"description":"oil change"}`, uuid.New()))
		require.Equal(t, http.StatusCreated, resp.Code)
	}
	require.Equal(t, 2, calls)
	require.Zero(t, store.setNXes)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(countingCreateHandler(&calls))
	user := uuid.New()
	body := `{"service_record_id":"6b1f0d3e-0d4c-4a53-9d7e-4d1f1e0a2b11"}`

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, createRequest("/api/invoices", "inv-1", body, user))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Empty(t, first.Header().Get(ReplayedHeader))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, createRequest("/api/invoices", "inv-1", body, user))
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get(ReplayedHeader))
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, calls)
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(countingCreateHandler(&calls))

	for _, user := range []uuid.UUID{uuid.New(), uuid.New()} {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, createRequest("/api/parts", "same-key", `{"name":"brake pad"}`, user))
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Empty(t, resp.Header().Get(ReplayedHeader))
	}
	require.Equal(t, 2, calls)
}

func TestIdempotencyReleasesClaimOnServerError(t *testing.T) {
	store := newMemoryIdempotencyStore()
	fail := true
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	user := uuid.New()

	handler.ServeHTTP(httptest.NewRecorder(), createRequest("/api/services", "retry-me", `{}`, user))
	require.Empty(t, store.data)

	fail = false
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, createRequest("/api/services", "retry-me", `{}`, user))
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, 2, calls)
	require.Len(t, store.data, 1)
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(countingCreateHandler(&calls))
	user := uuid.New()

	handler.ServeHTTP(httptest.NewRecorder(), createRequest("/api/services", "xyz", `{"description":"brakes"}`, user))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, createRequest("/api/services", "xyz", `{"description":"tyres"}`, user))
	require.Equal(t, http.StatusConflict, resp.Code)

	var payload struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, string(pkgerrors.CodeIdempotency), payload.Code)
	require.Equal(t, 1, calls)
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newMemoryIdempotencyStore()
	user := uuid.New()
	release := make(chan struct{})
	entered := make(chan struct{})
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	done := make(chan int)
	go func() {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, createRequest("/api/invoices", "slow", `{}`, user))
		done <- resp.Code
	}()
	<-entered

	dup := httptest.NewRecorder()
	handler.ServeHTTP(dup, createRequest("/api/invoices", "slow", `{}`, user))
	require.Equal(t, http.StatusConflict, dup.Code)
	require.Contains(t, dup.Body.String(), "still being processed")

	close(release)
	require.Equal(t, http.StatusCreated, <-done)
}

func TestIdempotencyStoreFailureIsDependencyError(t *testing.T) {
	store := newMemoryIdempotencyStore()
	store.failing = errors.New("redis down")
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(countingCreateHandler(&calls))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, createRequest("/api/parts", "k", `{}`, uuid.New()))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Zero(t, calls)
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	calls := 0
	handler := Idempotency(newMemoryIdempotencyStore(), time.Hour, nil)(countingCreateHandler(&calls))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, createRequest("/api/parts", strings.Repeat("k", 256), `{}`, uuid.New()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Zero(t, calls)
}
