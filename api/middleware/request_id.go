package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// inbound ids are echoed into logs and headers, so only accept plain tokens
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,128}$`)

// RequestID propagates a caller supplied request id or mints a new one,
// echoes it on the response and stores it on the logging context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
