package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteHeaders(t *testing.T) {
	tests := []struct {
		name       string
		result     Result
		retryAfter string
	}{
		{
			name:   "allowed",
			result: Result{Allowed: true, Limit: 60, Remaining: 45, ResetAt: time.Unix(1706012345, 0)},
		},
		{
			name:       "denied",
			result:     Result{Limit: 60, ResetAt: time.Unix(1706012345, 0), RetryAfter: 30 * time.Second},
			retryAfter: "30",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteHeaders(w, tt.result)
			if got := w.Header().Get("X-RateLimit-Limit"); got != "60" {
				t.Errorf("X-RateLimit-Limit = %s, want 60", got)
			}
			if got := w.Header().Get("X-RateLimit-Reset"); got != "1706012345" {
				t.Errorf("X-RateLimit-Reset = %s, want 1706012345", got)
			}
			if got := w.Header().Get("Retry-After"); got != tt.retryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tt.retryAfter)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewResponseWriter(rec, Result{Allowed: true, Limit: 10, Remaining: 9})
	if _, err := w.Write([]byte("ok")); err != nil {
		t.Fatal(err)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q, want 9", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if u, ok := w.(interface{ Unwrap() http.ResponseWriter }); !ok || u.Unwrap() != rec {
		t.Error("Unwrap() should return the recorder")
	}
}

func TestBuildKey(t *testing.T) {
	if got := BuildKey(ScopeIP, "1.2.3.4", "read"); got != "ip:1.2.3.4:read" {
		t.Errorf("BuildKey() = %q", got)
	}
	if got := BuildKey(ScopeSubject, "alice", "write"); got != "sub:alice:write" {
		t.Errorf("BuildKey() = %q", got)
	}
}
