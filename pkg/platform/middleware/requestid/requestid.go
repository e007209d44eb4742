// Package requestid assigns each request a correlation id for logs and error
// reports.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"opsgate/pkg/requestcontext"
)

const Header = "X-Request-Id"

// Middleware reuses the caller's X-Request-Id when present, otherwise mints
// one, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
