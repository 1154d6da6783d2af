package ratelimit

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(5, time.Minute, 5)
	defer l.Close()

	for i := range 5 {
		result := l.Allow("ip:1.2.3.4:write")
		if !result.Allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		if result.Limit != 5 {
			t.Errorf("expected Limit=5, got %d", result.Limit)
		}
		if result.RetryAfter != 0 {
			t.Errorf("RetryAfter should be 0 for allowed requests, got %v", result.RetryAfter)
		}
	}
	result := l.Allow("ip:1.2.3.4:write")
	if result.Allowed {
		t.Error("6th request should be rate limited")
	}
	if result.Remaining != 0 {
		t.Errorf("expected Remaining=0, got %d", result.Remaining)
	}
	if result.RetryAfter < time.Second {
		t.Errorf("expected RetryAfter >= 1s, got %v", result.RetryAfter)
	}
	if !result.ResetAt.After(time.Now()) {
		t.Errorf("ResetAt should be in the future, got %v", result.ResetAt)
	}
}

func TestLimiter_DifferentKeys(t *testing.T) {
	l := NewLimiter(2, time.Minute, 2)
	defer l.Close()

	l.Allow("a")
	l.Allow("a")
	if l.Allow("a").Allowed {
		t.Error("a should be rate limited")
	}
	if !l.Allow("b").Allowed {
		t.Error("b should not be rate limited")
	}
	if got := l.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l := NewLimiter(60, time.Minute, 10)
	defer l.Close()

	l.Allow("idle")
	l.Allow("busy")
	// An hour later every bucket has refilled; only idle ones are dropped.
	later := time.Now().Add(time.Hour)
	l.bucketFor("busy", later)
	l.cleanup(later)
	if got := l.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if _, ok := l.buckets["busy"]; !ok {
		t.Error("busy bucket was dropped")
	}
}

func TestConfig_Match(t *testing.T) {
	c := NewConfig(600, 60)
	defer c.Close()

	tests := []struct {
		method, path string
		want         string
	}{
		{"GET", "/api/data", "read"},
		{"GET", "/", "read"},
		{"POST", "/api/data", "write"},
		{"PUT", "/api/data/3", "write"},
		{"DELETE", "/api/data/3", "write"},
		{"POST", "/data_cleaning/coerce", "write"},
		{"GET", "/api/health", ""},
		{"GET", "/health", ""},
		{"OPTIONS", "/api/data", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := ""
			if tier := c.Match(tt.method, tt.path); tier != nil {
				got = tier.Name
			}
			if got != tt.want {
				t.Errorf("Match() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_Disabled(t *testing.T) {
	c := NewConfig(0, 10)
	defer c.Close()
	if tier := c.Match("GET", "/api/data"); tier != nil {
		t.Errorf("read tier should be disabled, got %q", tier.Name)
	}
	if tier := c.Match("POST", "/api/data"); tier == nil {
		t.Error("write tier should be enabled")
	}
	var nilCfg *Config
	if nilCfg.Match("GET", "/api/data") != nil {
		t.Error("nil config should not rate limit")
	}
}
