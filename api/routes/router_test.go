package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/internal/stock"
	pkgAuth "github.com/angelmondragon/stockledger/pkg/auth"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/metrics"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type memStore struct {
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

type stubLedger struct {
	stock.Service
	takes int
}

func (s *stubLedger) Take(_ context.Context, id uuid.UUID, _ stock.TakeInput) (*models.Stock, error) {
	s.takes++
	return &models.Stock{ID: id, Quantity: decimal.NewFromInt(1), Version: 2}, nil
}

func (s *stubLedger) Get(_ context.Context, id uuid.UUID) (*models.Stock, error) {
	return &models.Stock{ID: id, Quantity: decimal.NewFromInt(5), Version: 1}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "stockledger", ExpirationMinutes: 5},
	}
}

func newTestRouter(t *testing.T, ledger *stubLedger) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	metrics.NewLedgerMetrics(reg)
	router := NewRouter(cfg, logg, Deps{
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Idempotency: &memStore{data: map[string]string{}},
		Gatherer:    reg,
	}, Services{Stock: ledger})
	return router, cfg
}

func bearer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutesArePublic(t *testing.T) {
	router, _ := newTestRouter(t, &stubLedger{})
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, &stubLedger{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stocks/"+uuid.NewString(), nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestGetStockWithToken(t *testing.T) {
	router, cfg := newTestRouter(t, &stubLedger{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stocks/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearer(t, cfg))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTakeRequiresIdempotencyKeyAndReplays(t *testing.T) {
	ledger := &stubLedger{}
	router, cfg := newTestRouter(t, ledger)
	token := bearer(t, cfg)
	path := "/api/v1/stocks/" + uuid.NewString() + "/take"

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"quantity":"1"}`))
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", rec.Code)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"quantity":"1"}`))
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "take-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d: %s", i, rec.Code, rec.Body.String())
		}
	}
	if ledger.takes != 1 {
		t.Fatalf("expected one take, got %d", ledger.takes)
	}
}

type stubInventory struct {
	inventory.Service
	puts int
}

func (s *stubInventory) PutToLocation(_ context.Context, _ types.OwnerRef, locationID uuid.UUID, input stock.PutInput) (*models.Stock, error) {
	s.puts++
	return &models.Stock{ID: uuid.New(), LocationID: locationID, Quantity: input.Quantity, Version: 1}, nil
}

func TestAnonymousWritesWhenNoUserAllowed(t *testing.T) {
	inv := &stubInventory{}
	cfg := testConfig()
	cfg.Inventory.AllowNoUser = true
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	router := NewRouter(cfg, logg, Deps{
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Idempotency: &memStore{data: map[string]string{}},
	}, Services{Inventory: inv})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/7/locations/"+uuid.NewString()+"/put", strings.NewReader(`{"quantity":"2"}`))
	req.Header.Set("Idempotency-Key", "put-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if inv.puts != 1 {
		t.Fatalf("expected one put, got %d", inv.puts)
	}
}
