package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	adminsvc "github.com/angelmondragon/merchdrop-backend/internal/admin"
	"github.com/angelmondragon/merchdrop-backend/internal/catalog"
	"github.com/angelmondragon/merchdrop-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/merchdrop-backend/pkg/auth"
	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

type fakeStore struct {
	mu      sync.Mutex
	values  map[string]string
	allow   bool
	windows int
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, allow: true}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key], nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		f.values[key] = v
	case []byte:
		f.values[key] = string(v)
	}
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeStore) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows++
	return f.allow, int64(f.windows), nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type stubAdmin struct{}

func (stubAdmin) Login(_ context.Context, req adminsvc.SessionRequest) (*adminsvc.SessionResponse, error) {
	if req.AdminKey != "right" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin key")
	}
	return &adminsvc.SessionResponse{Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (stubAdmin) Logout(context.Context, string) error { return nil }

func (stubAdmin) Authenticate(_ context.Context, token string) (*pkgAuth.AdminClaims, error) {
	if token != "tok" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	return &pkgAuth.AdminClaims{Role: pkgAuth.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1"}}, nil
}

type stubCatalog struct{}

func (stubCatalog) List(context.Context, catalog.ListInput) (catalog.ListResult, error) {
	return catalog.ListResult{Products: []catalog.ProductSummary{}}, nil
}

func (stubCatalog) Detail(context.Context, string) (*catalog.ProductDetail, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type stubOrders struct{}

func (stubOrders) List(context.Context, orders.ListInput) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (stubOrders) Get(context.Context, uuid.UUID) (*orders.OrderSummary, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", SiteURL: "http://localhost:3000"},
		AuthRateLimit: config.AuthRateLimitConfig{
			AdminSessionWindow:  time.Minute,
			AdminSessionIPLimit: 5,
		},
	}
}

func newTestRouter(store *fakeStore) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	return NewRouter(testConfig(), logg, Dependencies{
		DB:      okPinger{},
		Store:   store,
		Admin:   stubAdmin{},
		Catalog: stubCatalog{},
		Orders:  stubOrders{},
	})
}

func serve(h http.Handler, method, path, token string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(newFakeStore())

	if rec := serve(router, http.MethodGet, "/health/live", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", rec.Code)
	}
	rec := serve(router, http.MethodGet, "/health/ready", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"redis":"ok"`) {
		t.Fatalf("expected redis check, got %s", rec.Body.String())
	}
}

func TestStorefrontRoutesArePublic(t *testing.T) {
	router := newTestRouter(newFakeStore())

	if rec := serve(router, http.MethodGet, "/api/v1/products", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("products: expected 200, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/api/v1/products/unknown", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("product detail: expected 404, got %d", rec.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	router := newTestRouter(newFakeStore())

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/admin/v1/orders"},
		{http.MethodPost, "/api/admin/v1/catalog/sync"},
		{http.MethodPost, "/api/admin/v1/catalog/import"},
		{http.MethodPost, "/api/admin/v1/webhooks/evt_1/replay"},
		{http.MethodDelete, "/api/admin/v1/session"},
	}
	for _, p := range paths {
		if rec := serve(router, p.method, p.path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", p.method, p.path, rec.Code)
		}
		if rec := serve(router, p.method, p.path, "wrong", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s with bad token: expected 401, got %d", p.method, p.path, rec.Code)
		}
	}

	if rec := serve(router, http.MethodGet, "/api/admin/v1/orders", "tok", ""); rec.Code != http.StatusOK {
		t.Fatalf("orders with session: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminProviderRoutesWithoutPrintify(t *testing.T) {
	router := newTestRouter(newFakeStore())

	if rec := serve(router, http.MethodPost, "/api/admin/v1/catalog/sync", "tok", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("sync: expected 500 when provider missing, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/api/admin/v1/catalog/import", "tok", `{"products":[{"name":"Mug"}]}`); rec.Code != http.StatusInternalServerError {
		t.Fatalf("import: expected 500 when importer missing, got %d", rec.Code)
	}
}

func TestAdminSessionIsRateLimited(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store)

	if rec := serve(router, http.MethodPost, "/api/admin/v1/session", "", `{"admin_key":"right"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	store.allow = false
	rec := serve(router, http.MethodPost, "/api/admin/v1/session", "", `{"admin_key":"right"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestFulfillmentResendRequiresIdempotencyKey(t *testing.T) {
	router := newTestRouter(newFakeStore())

	path := "/api/admin/v1/orders/" + uuid.NewString() + "/fulfillment"
	if rec := serve(router, http.MethodPost, path, "tok", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", rec.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	router := newTestRouter(newFakeStore())
	if rec := serve(router, http.MethodGet, "/api/v2/nothing", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
