package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"diskgate/internal/api"
	"diskgate/internal/auth"
	"diskgate/internal/disk"
	"diskgate/internal/observability/logging"
	"diskgate/internal/observability/metrics"
	"diskgate/internal/storage"
)

func newTestServer(t *testing.T, cfg Config, diskOpts ...disk.Option) (http.Handler, *api.Handler) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	tokens, err := auth.NewTokenManager([]byte("test-secret"))
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}
	var client *disk.Client
	if len(diskOpts) > 0 {
		client = disk.NewClient(diskOpts...)
	}
	handler := api.NewHandler(store, tokens, client)

	if cfg.Logger == nil {
		cfg.Logger = logging.New(logging.Config{Writer: io.Discard})
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	srv, err := New(handler, cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return srv.httpServer.Handler, handler
}

func registerThroughServer(t *testing.T, chain http.Handler, username string) string {
	t.Helper()
	payload := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"pw"}`, username, username)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("register through server returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp.AccessToken
}

func TestServerProtectsAPIRoutes(t *testing.T) {
	chain, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/files?public_url=https://disk.example/d/x", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated files request, got %d", rec.Code)
	}
}

func TestServerHealthzBypassesAuth(t *testing.T) {
	chain, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for healthz, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected healthz body: %s", rec.Body.String())
	}
}

func TestServerRootRedirectsAnonymousVisitors(t *testing.T) {
	chain, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/auth/register" {
		t.Fatalf("expected redirect to register, got %q", loc)
	}
}

func TestServerRootWithValidToken(t *testing.T) {
	chain, _ := newTestServer(t, Config{})
	token := registerThroughServer(t, chain, "alice")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServerUnknownPathReturnsJSON404(t *testing.T) {
	chain, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("expected JSON 404, got content type %q", ct)
	}
}

func TestServerSecurityHeadersAndRequestID(t *testing.T) {
	chain, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	headers := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "no-referrer",
		"X-Request-Id":           "req-123",
	}
	for name, want := range headers {
		if got := rec.Header().Get(name); got != want {
			t.Fatalf("expected %s %q, got %q", name, want, got)
		}
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("expected Content-Security-Policy header")
	}
}

func TestServerGeneratesRequestID(t *testing.T) {
	chain, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected generated request id header")
	}
}

func TestServerEndToEndFileListing(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"shared","_embedded":{"items":[{"name":"a.txt","type":"file","file":"https://downloader.example/a.txt"}]}}`))
	}))
	defer upstream.Close()

	chain, _ := newTestServer(t, Config{}, disk.WithBaseURL(upstream.URL))
	token := registerThroughServer(t, chain, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/files?public_url=https%3A%2F%2Fdisk.example%2Fd%2Fdir", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"a.txt"`) {
		t.Fatalf("expected listed entry in body: %s", rec.Body.String())
	}
}

func TestServerLoginRateLimit(t *testing.T) {
	chain, _ := newTestServer(t, Config{
		RateLimit: RateLimitConfig{LoginLimit: 2, LoginWindow: time.Minute},
	})

	attempt := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
		req.RemoteAddr = "192.0.2.1:5000"
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := attempt(); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401, got %d", i+1, rec.Code)
		}
	}
	rec := attempt()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exhausting login budget, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on throttled login")
	}
}

func TestServerGlobalRateLimit(t *testing.T) {
	chain, _ := newTestServer(t, Config{
		RateLimit: RateLimitConfig{GlobalRPS: 0.001, GlobalBurst: 1},
	})

	first := httptest.NewRecorder()
	chain.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	chain.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", second.Code)
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	recorder := metrics.New()
	chain, _ := newTestServer(t, Config{Metrics: recorder})

	health := httptest.NewRecorder()
	chain.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "diskgate_http_requests_total") {
		t.Fatalf("expected request counter in exposition: %s", rec.Body.String())
	}
}
