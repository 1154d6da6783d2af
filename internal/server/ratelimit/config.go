// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"net/http"
	"time"
)

// Scope selects what identifies a client.
type Scope int

const (
	// ScopeIP keys buckets by client IP address.
	ScopeIP Scope = iota
	// ScopeSubject keys buckets by the authenticated token subject, falling
	// back to the client IP when the request is anonymous.
	ScopeSubject
)

// Tier is a named limiter.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Config holds the limiters of the API.
type Config struct {
	Read  Tier
	Write Tier
}

// NewConfig returns a Config allowing readPerMin reads and writePerMin writes
// per client and minute. A non-positive rate disables the tier.
func NewConfig(readPerMin, writePerMin int) *Config {
	c := &Config{}
	if readPerMin > 0 {
		c.Read = Tier{Name: "read", Limiter: NewLimiter(readPerMin, time.Minute, max(readPerMin/6, 1)), Scope: ScopeIP}
	}
	if writePerMin > 0 {
		c.Write = Tier{Name: "write", Limiter: NewLimiter(writePerMin, time.Minute, max(writePerMin/6, 1)), Scope: ScopeSubject}
	}
	return c
}

// Match returns the tier for a request or nil when it is not rate limited.
func (c *Config) Match(method, path string) *Tier {
	if c == nil || path == "/health" || path == "/api/health" {
		return nil
	}
	var t *Tier
	switch method {
	case http.MethodGet, http.MethodHead:
		t = &c.Read
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		t = &c.Write
	default:
		return nil
	}
	if t.Limiter == nil {
		return nil
	}
	return t
}

// Close stops every limiter.
func (c *Config) Close() {
	for _, t := range []*Tier{&c.Read, &c.Write} {
		if t.Limiter != nil {
			t.Limiter.Close()
		}
	}
}
