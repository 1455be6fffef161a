package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeTokenStore struct {
	key     string
	limit   int
	window  time.Duration
	allowed bool
	retry   time.Duration
	err     error
}

func (f *fakeTokenStore) Allow(key string, limit int, window time.Duration) (bool, time.Duration, error) {
	f.key = key
	f.limit = limit
	f.window = window
	return f.allowed, f.retry, f.err
}

func TestTokenBucketExhaustsBurst(t *testing.T) {
	bucket := newTokenBucket(0.001, 3)
	for i := 0; i < 3; i++ {
		if !bucket.Allow() {
			t.Fatalf("request %d should be within burst", i+1)
		}
	}
	if bucket.Allow() {
		t.Fatal("expected bucket to be empty after burst")
	}
}

func TestRateLimiterDisabledByDefault(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{})
	if !rl.AllowRequest() {
		t.Fatal("global limiter should be disabled without configuration")
	}
	allowed, _, err := rl.AllowLogin("192.0.2.1")
	if err != nil || !allowed {
		t.Fatalf("login limiter should be disabled without configuration: %v", err)
	}
}

func TestRateLimiterLocalLoginBudget(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{LoginLimit: 2, LoginWindow: time.Minute})

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.AllowLogin("192.0.2.1")
		if err != nil {
			t.Fatalf("AllowLogin returned error: %v", err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be within budget", i+1)
		}
	}
	allowed, retryAfter, err := rl.AllowLogin("192.0.2.1")
	if err != nil {
		t.Fatalf("AllowLogin returned error: %v", err)
	}
	if allowed {
		t.Fatal("third attempt should be throttled")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry hint, got %v", retryAfter)
	}

	// A different client key carries its own budget.
	if allowed, _, _ := rl.AllowLogin("198.51.100.9"); !allowed {
		t.Fatal("separate key should not share the exhausted budget")
	}
}

func TestRateLimiterDelegatesToStore(t *testing.T) {
	store := &fakeTokenStore{allowed: false, retry: 30 * time.Second}
	rl := newRateLimiter(RateLimitConfig{LoginLimit: 5, LoginWindow: time.Minute})
	rl.store = store

	allowed, retryAfter, err := rl.AllowLogin("192.0.2.1")
	if err != nil {
		t.Fatalf("AllowLogin returned error: %v", err)
	}
	if allowed {
		t.Fatal("expected store verdict to be honored")
	}
	if retryAfter != 30*time.Second {
		t.Fatalf("expected store retry hint, got %v", retryAfter)
	}
	if store.key != "diskgate:login:192.0.2.1" {
		t.Fatalf("unexpected store key: %q", store.key)
	}
	if store.limit != 5 || store.window != time.Minute {
		t.Fatalf("unexpected store parameters: limit %d window %v", store.limit, store.window)
	}
}

func TestRateLimiterSurfacesStoreErrors(t *testing.T) {
	storeErr := errors.New("redis unavailable")
	rl := newRateLimiter(RateLimitConfig{LoginLimit: 5, LoginWindow: time.Minute})
	rl.store = &fakeTokenStore{err: storeErr}

	if _, _, err := rl.AllowLogin("192.0.2.1"); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.1:5000", want: "192.0.2.1"},
		{name: "forwarded for", remoteAddr: "10.0.0.1:80", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, want: "203.0.113.7"},
		{name: "real ip", remoteAddr: "10.0.0.1:80", headers: map[string]string{"X-Real-IP": "203.0.113.9"}, want: "203.0.113.9"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for name, value := range tc.headers {
				req.Header.Set(name, value)
			}
			if got := extractClientIP(req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
