package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"opsgate/internal/session"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/httputil"
	"opsgate/pkg/requestcontext"
)

// LockoutGuard is the slice of the lockout service the operator middleware
// needs.
type LockoutGuard interface {
	Check(ctx context.Context, identifier string) error
	RecordFailure(ctx context.Context, identifier string)
	Clear(ctx context.Context, identifier string)
}

// SessionValidator is the slice of the session service the bearer middleware
// needs.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (session.Claims, error)
}

// RequireOperator authenticates the operator console. The caller presents its
// admin id plus a shared token; the token is verified against the configured
// bcrypt hash and failures feed the lockout service.
func RequireOperator(tokenHash string, lockouts LockoutGuard, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			operatorID, err := id.ParseAdminID(r.Header.Get("X-Operator-Id"))
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "operator id required"))
				return
			}
			identifier := operatorID.String()
			if err := lockouts.Check(ctx, identifier); err != nil {
				logger.WarnContext(ctx, "operator rejected by lockout",
					"request_id", requestcontext.RequestID(ctx),
					"operator_id", identifier,
				)
				httputil.WriteError(w, err)
				return
			}
			token := r.Header.Get("X-Operator-Token")
			if bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
				lockouts.RecordFailure(ctx, identifier)
				logger.WarnContext(ctx, "operator token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"operator_id", identifier,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid operator token"))
				return
			}
			lockouts.Clear(ctx, identifier)
			next.ServeHTTP(w, r.WithContext(requestcontext.WithOperatorID(ctx, operatorID)))
		})
	}
}

// RequireSession validates the bearer token on every call rather than caching
// the outcome, so an ended session is refused immediately.
func RequireSession(sessions SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "bearer token required"))
				return
			}
			claims, err := sessions.Validate(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "session token rejected",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
			ctx = requestcontext.WithOperatorID(ctx, claims.AdminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
