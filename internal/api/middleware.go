package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/friendix-ai/engagement-engine/internal/errors"
	"github.com/friendix-ai/engagement-engine/internal/ratelimit"
	"github.com/friendix-ai/engagement-engine/pkg/metrics"
)

type contextKey string

const userIDKey contextKey = "user_id"

// userIDFromContext returns the authenticated user, zero when absent.
func userIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withMetrics records request counts and latency per route.
func withMetrics(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		metrics.RecordHTTPRequest(route, fmt.Sprintf("%d", rec.status), time.Since(start))
	})
}

// withRecovery turns handler panics into 500s instead of dropping the
// connection.
func withRecovery(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panicked",
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec))
				writeJSON(w, http.StatusInternalServerError,
					errorResponse{Success: false, Message: "Something went wrong, please try again later"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withRateLimit keys the limit by client IP.
func (s *Server) withRateLimit(name string, limit int, window time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := name + ":" + clientIP(r)
		decision, err := s.limiter.Allow(r.Context(), key, limit, window)
		switch {
		case errors.Is(err, ratelimit.ErrLimitExceeded), err == nil && !decision.Allowed:
			s.writeError(w, r, apperrors.NewRateLimitError(int(window.Seconds())))
			return
		case err != nil:
			// Fail open on limiter errors so the limiter never takes
			// the login path down with it.
			s.log.Error("rate limit check failed", slog.String("key", key), slog.Any("error", err))
		}
		next.ServeHTTP(w, r)
	})
}

// withSession authenticates the request via the bearer token.
func (s *Server) withSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.sessions.Resolve(r.Context(), bearerToken(r))
		if err != nil {
			s.writeError(w, r, apperrors.NewAuthError("missing or expired session"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// withAdminToken guards the admin console with the configured token.
func (s *Server) withAdminToken(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if s.adminToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			s.writeError(w, r, apperrors.NewAuthError("invalid admin token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
