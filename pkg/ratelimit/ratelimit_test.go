package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	l := NewLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("client-a") {
			t.Errorf("request %d should be within burst", i)
		}
	}
	if l.Allow("client-a") {
		t.Error("request beyond burst should be denied")
	}
}

func TestAllowIndependentKeys(t *testing.T) {
	l := NewLimiter(1, 1)

	if !l.Allow("client-a") {
		t.Error("first request for client-a should pass")
	}
	if !l.Allow("client-b") {
		t.Error("client-b has its own bucket")
	}
	if l.Allow("client-a") {
		t.Error("client-a bucket is exhausted")
	}
}

func TestCleanup(t *testing.T) {
	l := NewLimiter(1, 1)
	l.Allow("client-a")
	l.Allow("client-b")

	if l.Size() != 2 {
		t.Fatalf("size = %d, want 2", l.Size())
	}

	time.Sleep(20 * time.Millisecond)
	l.Cleanup(10 * time.Millisecond)

	if l.Size() != 0 {
		t.Errorf("size after cleanup = %d, want 0", l.Size())
	}
}

func TestMiddleware(t *testing.T) {
	l := NewLimiter(1, 1)
	handler := l.Middleware(IPKeyFunc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestIPKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if got := IPKeyFunc(req); got != "10.0.0.1:1234" {
		t.Errorf("key = %q, want RemoteAddr", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := IPKeyFunc(req); got != "203.0.113.7" {
		t.Errorf("key = %q, want X-Forwarded-For value", got)
	}
}
