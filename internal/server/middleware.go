// HTTP middleware: request metadata and access log, token checks and rate
// limits.

package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/maruel/ksid"
	"github.com/maruel/salesdb/internal/server/dto"
	"github.com/maruel/salesdb/internal/server/ipgeo"
	"github.com/maruel/salesdb/internal/server/ratelimit"
	"github.com/maruel/salesdb/internal/server/reqctx"
)

// isMutating returns true for HTTP methods that modify state.
func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// statusRecorder remembers the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.size += int64(n)
	return n, err
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RequestMetadata assigns a request id, resolves the client address and its
// country, and logs one line per request.
func RequestMetadata(geo *ipgeo.Checker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := ksid.NewID()
			ip := reqctx.GetClientIP(r)
			cc := geo.CountryCode(ip)
			ctx := reqctx.WithRequestID(r.Context(), id)
			ctx = reqctx.WithClientIP(ctx, ip)
			ctx = reqctx.WithCountryCode(ctx, cc)
			w.Header().Set("X-Request-Id", id.String())

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))
			slog.InfoContext(ctx, "http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"size", rec.size,
				"dur", time.Since(start).Round(time.Microsecond),
				"rid", id.String(),
				"ip", ip,
				"country", cc,
			)
		})
	}
}

// RequireToken rejects mutating requests lacking a valid token signed with
// secret. Reads are never checked. An empty secret disables the check.
func RequireToken(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			tok, err := tokenFromRequest(r)
			if err == nil {
				var sub string
				if sub, err = verifyToken(tok, secret); err == nil {
					next.ServeHTTP(w, r.WithContext(reqctx.WithSubject(r.Context(), sub)))
					return
				}
			}
			slog.InfoContext(r.Context(), "Rejected token", "err", err)
			w.Header().Set("WWW-Authenticate", `Bearer realm="salesdb"`)
			writeAPIError(w, dto.Unauthorized(err.Error()))
		})
	}
}

// RateLimit applies the tier matching each request. Write tiers are keyed by
// token subject when one is known.
func RateLimit(limiters *ratelimit.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tier := limiters.Match(r.Method, r.URL.Path)
			if tier == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			key := ratelimit.BuildKey(ratelimit.ScopeIP, reqctx.ClientIP(ctx), tier.Name)
			if sub := reqctx.Subject(ctx); tier.Scope == ratelimit.ScopeSubject && sub != "" {
				key = ratelimit.BuildKey(ratelimit.ScopeSubject, sub, tier.Name)
			}
			result := tier.Limiter.Allow(key)
			w = ratelimit.NewResponseWriter(w, result)
			if !result.Allowed {
				slog.WarnContext(ctx, "Rate limited", "key", key)
				writeRateLimitError(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
