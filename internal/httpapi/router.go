// Package httpapi assembles the HTTP surface: middleware, route groups, and
// operational endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	alerthandler "opsgate/internal/alerts/handler"
	boundaryhandler "opsgate/internal/boundary/handler"
	ledgerhandler "opsgate/internal/ledger/handler"
	recorderhandler "opsgate/internal/recorder/handler"
	sessionhandler "opsgate/internal/session/handler"
	"opsgate/pkg/platform/httputil"
	"opsgate/pkg/platform/middleware/requestid"
	"opsgate/pkg/platform/middleware/requesttime"
)

// HealthChecker reports readiness of one backing dependency.
type HealthChecker func(ctx context.Context) error

// Deps carries everything the router needs. Handlers are constructed by the
// caller so the router stays free of wiring decisions.
type Deps struct {
	Logger            *slog.Logger
	OperatorTokenHash string
	Lockouts          LockoutGuard
	Sessions          SessionValidator

	Ledger   *ledgerhandler.Handler
	Session  *sessionhandler.Handler
	Recorder *recorderhandler.Handler
	Alerts   *alerthandler.Handler
	Boundary *boundaryhandler.Handler

	Health map[string]HealthChecker
}

// NewRouter wires all endpoints. Operator console routes require the operator
// token; action recording requires a live impersonation session.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", handleHealth(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RequireOperator(deps.OperatorTokenHash, deps.Lockouts, deps.Logger))
		deps.Ledger.Register(r)
		deps.Session.Register(r)
		deps.Alerts.Register(r)
		deps.Boundary.Register(r)
		deps.Recorder.RegisterOperator(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(deps.Sessions, deps.Logger))
		deps.Recorder.RegisterSession(r)
	})

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		detail := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				detail[name] = err.Error()
				continue
			}
			detail[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{"checks": detail})
	}
}
