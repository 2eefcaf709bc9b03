package httpserver

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/server/audit"
	"github.com/dmitrijs2005/thriftmarket/internal/server/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type csrfTokenKey struct{}

// requestMetaMiddleware makes the client address and agent available to the
// audit recorder.
func (s *HTTPServer) requestMetaMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := audit.WithRequestMeta(r.Context(), audit.RequestMeta{IP: ip, UserAgent: r.UserAgent()})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware writes one record per request. The level follows the
// status: 5xx error, 4xx warn, anything else info.
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		}

		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error(r.Context(), "response", args...)
		case status >= http.StatusBadRequest:
			s.logger.Warn(r.Context(), "response", args...)
		default:
			s.logger.Info(r.Context(), "response", args...)
		}
	})
}

// rescueMiddleware turns a handler panic into a masked 500.
func (s *HTTPServer) rescueMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				s.logger.Error(r.Context(), "request panic",
					"method", r.Method, "path", r.URL.Path, "panic", p, "stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: maskedServerError})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}

// securityHeadersMiddleware sets the browser hardening headers on every
// response. Stripe.js needs its script, frame and API origins allowed.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		h.Set("Origin-Agent-Cluster", "?1")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("X-Download-Options", "noopen")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		h.Set("X-XSS-Protection", "0")
		next.ServeHTTP(w, r)
	})
}

var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"base-uri 'self'",
	"font-src 'self' https: data:",
	"form-action 'self'",
	"frame-ancestors 'self'",
	"object-src 'none'",
	"script-src 'self' https://js.stripe.com",
	"frame-src 'self' https://js.stripe.com",
	"img-src 'self' data: https: http:",
	"style-src 'self' 'unsafe-inline'",
	"connect-src 'self' https://api.stripe.com",
	"upgrade-insecure-requests",
}, "; ")

// rateLimitMiddleware counts requests per client IP. A limiter backend
// failure lets the request through.
func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		d, err := s.limiter.Allow(r.Context(), ip)
		if err != nil {
			s.logger.Warn(r.Context(), "rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(s.limiter.Limit()))
		h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			h.Set("Retry-After", strconv.Itoa(int((d.RetryAfter+time.Second-1)/time.Second)))
			s.metrics.RateLimited()
			s.writeError(w, r, common.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware admits the configured browser origin with credentials.
func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || origin != s.clientOrigin {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+common.CSRFHeaderName)
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// csrfMiddleware lets safe methods through, handing out a token when the
// caller has none. Unsafe methods must echo a genuine cookie in the header.
func (s *HTTPServer) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie := cookieValue(r, common.CSRFCookieName)

		if isSafeMethod(r.Method) {
			if !s.csrf.Valid(cookie) {
				token, err := s.issueCSRF(w)
				if err != nil {
					s.writeError(w, r, err)
					return
				}
				cookie = token
			}
			ctx := context.WithValue(r.Context(), csrfTokenKey{}, cookie)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if err := s.csrf.Check(cookie, r.Header.Get(common.CSRFHeaderName)); err != nil {
			userID := ""
			if id, err := s.identityFromRequest(r); err == nil {
				userID = id.UserID
			}
			s.audit.Recordf(r.Context(), userID, audit.ActionCsrfRejected, "%s %s", r.Method, r.URL.Path)
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware resolves the caller from the session cookie, falling
// back to a bearer token.
func (s *HTTPServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identityFromRequest(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: common.ErrUnauthenticated.Error()})
				return
			}
			if !id.HasRole(roles...) {
				writeJSON(w, http.StatusForbidden, errorBody{Error: common.ErrForbidden.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *HTTPServer) identityFromRequest(r *http.Request) (auth.Identity, error) {
	token := cookieValue(r, common.AccessTokenCookieName)
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
	}
	if token == "" {
		return auth.Identity{}, common.ErrUnauthenticated
	}
	return auth.ParseToken(token, s.jwtSecret)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
