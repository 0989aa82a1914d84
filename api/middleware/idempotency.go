package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peakrent/peakrent-backend/api/responses"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	pkgredis "github.com/peakrent/peakrent-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotentRoutes maps "METHOD /template" to how long a replay stays valid.
// Money-moving routes keep their records for a week.
var idempotentRoutes = map[string]time.Duration{
	"POST /api/v1/auth/register":                                 defaultIdempotencyTTL,
	"POST /api/v1/admin/stores":                                  defaultIdempotencyTTL,
	"POST /api/v1/admin/products":                                defaultIdempotencyTTL,
	"POST /api/v1/admin/products/{productId}/variants":           defaultIdempotencyTTL,
	"POST /api/v1/admin/vouchers":                                defaultIdempotencyTTL,
	"PATCH /api/v1/admin/orders/{orderId}/status":                defaultIdempotencyTTL,
	"PATCH /api/v1/admin/orders/{orderId}/items/{itemId}/status": defaultIdempotencyTTL,
	"POST /api/v1/checkout":                                      criticalIdempotencyTTL,
	"POST /api/v1/orders/{orderId}/cancel":                       criticalIdempotencyTTL,
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the first non-5xx response recorded for a
// (user, method, path, Idempotency-Key) tuple. Reusing a key with a different
// body is rejected with a conflict.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := bodyFingerprint(body)
			key := store.IdempotencyKey(strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, "|"), clientKey)

			prior, err := loadResponse(ctx, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if prior != nil {
				if prior.RequestHash != fingerprint {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				prior.replay(w)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.statusCode() >= http.StatusInternalServerError {
				return
			}
			if err := saveResponse(ctx, store, key, ttl, capture.record(fingerprint)); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func loadResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec storedResponse
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// saveResponse uses SETNX so a concurrent first writer wins.
func saveResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string, ttl time.Duration, rec storedResponse) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = store.SetNX(ctx, key, string(payload), ttl)
	return err
}

func (s *storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(s.Status)
	if body, err := base64.StdEncoding.DecodeString(s.Body); err == nil {
		_, _ = w.Write(body)
	}
}

func bodyFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for route, ttl := range idempotentRoutes {
		routeMethod, template, _ := strings.Cut(route, " ")
		if routeMethod == method && matchesTemplate(template, path) {
			return ttl, true
		}
	}
	return 0, false
}

// matchesTemplate compares path segments; {param} matches any non-empty segment.
func matchesTemplate(template, path string) bool {
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, segment := range want {
		if strings.HasPrefix(segment, "{") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if segment != got[i] {
			return false
		}
	}
	return true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) record(fingerprint string) storedResponse {
	return storedResponse{
		Status:      c.statusCode(),
		ContentType: c.Header().Get("Content-Type"),
		Body:        base64.StdEncoding.EncodeToString(c.body.Bytes()),
		RequestHash: fingerprint,
	}
}
