package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/peakrent/peakrent-backend/api/responses"
	pkgAuth "github.com/peakrent/peakrent-backend/pkg/auth"
	"github.com/peakrent/peakrent-backend/pkg/auth/session"
	"github.com/peakrent/peakrent-backend/pkg/config"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
)

// Auth requires a bearer access token whose session is still live and seeds
// the request context with the caller id, role and access session id.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, cfg, sessions, logg)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) (context.Context, error) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	ctx := r.Context()
	if sessions != nil {
		live, err := sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	userID, role := claims.UserID.String(), string(claims.Role)
	ctx = WithAccessID(WithRole(WithUserID(ctx, userID), role), claims.ID)
	if logg != nil {
		ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), role)
	}
	return ctx, nil
}

// BearerToken accepts "Bearer <token>" with any scheme casing, or a bare token.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if scheme, rest, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "bearer") {
		header = strings.TrimSpace(rest)
	}
	return header, header != ""
}
