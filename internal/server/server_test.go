package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"stock-pos/internal/config"
	"stock-pos/internal/domain"
	"stock-pos/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryProducts is a minimal guarded in-memory ProductRepository for router tests
type memoryProducts struct {
	mu    sync.Mutex
	items map[string]*domain.Product
	seq   int
}

func (m *memoryProducts) Create(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Name == p.Name {
			return repository.ErrProductAlreadyExists
		}
	}
	m.seq++
	p.ID = fmt.Sprintf("p%d", m.seq)
	c := *p
	m.items[p.ID] = &c
	return nil
}

func (m *memoryProducts) Update(_ context.Context, id string, u domain.ProductUpdate, at time.Time) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Description != nil {
		p.Description = u.Description
	}
	p.UpdatedAt = at
	c := *p
	return &c, nil
}

func (m *memoryProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryProducts) FindByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	c := *p
	return &c, nil
}

func (m *memoryProducts) FindByName(_ context.Context, name string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.Name == name {
			c := *p
			return &c, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *memoryProducts) List(_ context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range m.items {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

func (m *memoryProducts) IncrementStock(_ context.Context, id string, delta int, at time.Time) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if p.StockLevel+delta < 0 {
		return nil, repository.ErrInsufficientStock
	}
	p.StockLevel += delta
	p.UpdatedAt = at
	c := *p
	return &c, nil
}

type memorySales struct {
	mu    sync.Mutex
	sales []*domain.SaleRecord
}

func (m *memorySales) Insert(_ context.Context, s *domain.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = fmt.Sprintf("s%d", len(m.sales)+1)
	m.sales = append(m.sales, s)
	return nil
}

func (m *memorySales) List(_ context.Context, f domain.SaleFilter) ([]*domain.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.SaleRecord{}
	for _, s := range m.sales {
		if f.UserID == "" || s.UserID == f.UserID {
			out = append(out, s)
		}
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "test"},
		JWT:       config.JWTConfig{Secret: "router-secret"},
		RateLimit: config.RateLimitConfig{Requests: 3, Window: time.Minute},
		Telemetry: config.TelemetryConfig{ServiceName: "products-service"},
	}
}

func newTestServer(t *testing.T, healthStatus string) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := &Store{
		Products: &memoryProducts{items: map[string]*domain.Product{}},
		Sales:    &memorySales{},
		health: func(context.Context) map[string]string {
			return map[string]string{"status": healthStatus}
		},
		close: func() error { return nil },
	}

	ts := httptest.NewServer(NewRouter(testConfig(), zap.NewNop(), store, rdb))
	t.Cleanup(ts.Close)
	return ts
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   "admin-1",
		"type": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("router-secret"))
	require.NoError(t, err)
	return token
}

func call(t *testing.T, ts *httptest.Server, method, path, body, token string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&raw)
	return resp.StatusCode, raw
}

func TestRouter_CatalogSaleAndReportFlow(t *testing.T) {
	ts := newTestServer(t, "up")
	token := adminToken(t)

	status, body := call(t, ts, http.MethodPost, "/products",
		`{"name":"Hamburguer","price":8.5,"stock_level":2,"category":"Comida"}`, token)
	require.Equal(t, http.StatusCreated, status, string(body))
	var burger domain.Product
	require.NoError(t, json.Unmarshal(body, &burger))

	status, body = call(t, ts, http.MethodPost, "/products",
		`{"name":"Refrigerante","price":3,"stock_level":1,"category":"Bebidas"}`, token)
	require.Equal(t, http.StatusCreated, status, string(body))
	var soda domain.Product
	require.NoError(t, json.Unmarshal(body, &soda))

	sale := fmt.Sprintf(`{"items":[{"product_id":%q,"quantity":2},{"product_id":%q,"quantity":1}],"total_amount":20}`, burger.ID, soda.ID)
	status, body = call(t, ts, http.MethodPost, "/products/sales", sale, "")
	require.Equal(t, http.StatusCreated, status, string(body))
	var record domain.SaleRecord
	require.NoError(t, json.Unmarshal(body, &record))
	assert.Equal(t, domain.AnonymousUser, record.UserID)

	// Everything is sold out now
	status, _ = call(t, ts, http.MethodPost, "/products/sales", sale, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, ts, http.MethodGet, "/products/"+burger.ID, "", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &burger))
	assert.Equal(t, 0, burger.StockLevel)

	status, body = call(t, ts, http.MethodPatch, "/products/"+burger.ID+"/stock", `{"adjustment":5,"reason":"delivery"}`, token)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &burger))
	assert.Equal(t, 5, burger.StockLevel)

	status, body = call(t, ts, http.MethodGet, "/products/sales", "", token)
	require.Equal(t, http.StatusOK, status)
	var history []domain.SaleRecord
	require.NoError(t, json.Unmarshal(body, &history))
	assert.Len(t, history, 1)

	status, _ = call(t, ts, http.MethodGet, "/products/sales", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_SaleEndpointIsRateLimited(t *testing.T) {
	ts := newTestServer(t, "up")

	var last int
	for i := 0; i < 4; i++ {
		last, _ = call(t, ts, http.MethodPost, "/products/sales", `{"items":[]}`, "")
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	// Catalog reads are not limited
	status, _ := call(t, ts, http.MethodGet, "/products", "", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestRouter_Health(t *testing.T) {
	status, _ := call(t, newTestServer(t, "up"), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, newTestServer(t, "down"), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "cassandra"

	_, err := OpenStore(context.Background(), cfg, "migrations", zap.NewNop())

	assert.ErrorContains(t, err, "unknown store driver")
}
