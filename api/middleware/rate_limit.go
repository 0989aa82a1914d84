package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/peakrent/peakrent-backend/api/responses"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
)

// maxAuthBody bounds how much of a login body is buffered to find the email.
const maxAuthBody = 64 << 10

type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps requests per authenticated user (or client IP) in a fixed window.
func RateLimit(name string, limit int64, window time.Duration, store windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := UserIDFromContext(r.Context())
			if subject == "" {
				subject = "ip:" + clientIP(r)
			}
			if !checkWindow(w, r, store, logg, name, subject, limit, window) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthRateLimitPolicy throttles an unauthenticated auth endpoint both per
// client IP and per submitted email address.
type AuthRateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int64
	EmailLimit int64
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{Name: name, Window: window, IPLimit: int64(ipLimit), EmailLimit: int64(emailLimit)}
}

func AuthRateLimit(policy AuthRateLimitPolicy, store windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || policy.Window <= 0 || (policy.IPLimit <= 0 && policy.EmailLimit <= 0) {
			return next
		}
		scope := "auth:" + policy.Name
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if policy.IPLimit > 0 {
				if !checkWindow(w, r, store, logg, scope, "ip:"+clientIP(r), policy.IPLimit, policy.Window) {
					return
				}
			}
			if policy.EmailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBody))
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := emailFromBody(body); email != "" {
					if !checkWindow(w, r, store, logg, scope, "email:"+digest(email), policy.EmailLimit, policy.Window) {
						return
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkWindow counts one hit for scope/subject and writes the error response
// when the caller must stop.
func checkWindow(w http.ResponseWriter, r *http.Request, store windowLimiter, logg *logger.Logger, scope, subject string, limit int64, window time.Duration) bool {
	ctx := r.Context()
	allowed, count, err := store.FixedWindowAllow(ctx, scope+":"+subject, limit, window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if allowed {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         scope,
			"subject":        subject,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(window.Seconds()),
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", retryAfter(window))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return false
}

func retryAfter(window time.Duration) string {
	seconds := int(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func emailFromBody(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
