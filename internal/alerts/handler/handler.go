package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"opsgate/internal/alerts"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/httputil"
	"opsgate/pkg/requestcontext"
)

// Service defines the alert pipeline operations the handler exposes.
type Service interface {
	Raise(ctx context.Context, category alerts.Category, severity alerts.Severity, description, sourceRef string) (*alerts.Alert, error)
	Acknowledge(ctx context.Context, alertID id.AlertID, operatorID id.AdminID) (*alerts.Alert, error)
	Resolve(ctx context.Context, alertID id.AlertID, operatorID id.AdminID) (*alerts.Alert, error)
	Dismiss(ctx context.Context, alertID id.AlertID, operatorID id.AdminID) (*alerts.Alert, error)
	List(ctx context.Context, category alerts.Category, status alerts.Status) ([]*alerts.Alert, error)
	Subscribe(ctx context.Context, categories ...alerts.Category) <-chan alerts.Alert
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts alert endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/alerts", h.HandleRaise)
	r.Get("/alerts", h.HandleList)
	r.Get("/alerts/stream", h.HandleStream)
	r.Post("/alerts/{alertID}/acknowledge", h.transition(Service.Acknowledge))
	r.Post("/alerts/{alertID}/resolve", h.transition(Service.Resolve))
	r.Post("/alerts/{alertID}/dismiss", h.transition(Service.Dismiss))
}

type raiseRequest struct {
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	SourceRef   string `json:"source_ref,omitempty"`
}

type alertResponse struct {
	ID             string     `json:"id"`
	Category       string     `json:"category"`
	Severity       string     `json:"severity"`
	Status         string     `json:"status"`
	Description    string     `json:"description"`
	SourceRef      string     `json:"source_ref,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	DismissedAt    *time.Time `json:"dismissed_at,omitempty"`
}

func toResponse(a *alerts.Alert) alertResponse {
	resp := alertResponse{
		ID:             a.ID.String(),
		Category:       string(a.Category),
		Severity:       string(a.Severity),
		Status:         string(a.Status()),
		Description:    a.Description,
		SourceRef:      a.SourceRef,
		CreatedAt:      a.CreatedAt,
		AcknowledgedAt: a.AcknowledgedAt,
		ResolvedAt:     a.ResolvedAt,
		DismissedAt:    a.DismissedAt,
	}
	if !a.AcknowledgedBy.IsNil() {
		resp.AcknowledgedBy = a.AcknowledgedBy.String()
	}
	return resp
}

// HandleRaise handles POST /alerts.
func (h *Handler) HandleRaise(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[raiseRequest](w, r, h.logger)
	if !ok {
		return
	}
	alert, err := h.service.Raise(ctx, alerts.Category(req.Category), alerts.Severity(req.Severity), req.Description, req.SourceRef)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(alert))
}

// transition adapts the three lifecycle endpoints, which differ only in the
// service method they call.
func (h *Handler) transition(apply func(Service, context.Context, id.AlertID, id.AdminID) (*alerts.Alert, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		alertID, err := id.ParseAlertID(chi.URLParam(r, "alertID"))
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid alert id"))
			return
		}
		operatorID := requestcontext.OperatorID(ctx)
		alert, err := apply(h.service, ctx, alertID, operatorID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, toResponse(alert))
	}
}

// HandleList handles GET /alerts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := alerts.Category(r.URL.Query().Get("category"))
	status := alerts.Status(r.URL.Query().Get("status"))
	list, err := h.service.List(ctx, category, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]alertResponse, 0, len(list))
	for _, alert := range list {
		out = append(out, toResponse(alert))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"alerts": out})
}

// HandleStream handles GET /alerts/stream as server-sent events. The optional
// categories query parameter is a comma-separated filter.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	var categories []alerts.Category
	if raw := r.URL.Query().Get("categories"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			categories = append(categories, alerts.Category(strings.TrimSpace(part)))
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates := h.service.Subscribe(ctx, categories...)
	for {
		select {
		case <-ctx.Done():
			return
		case alert, open := <-updates:
			if !open {
				return
			}
			payload, err := json.Marshal(toResponse(&alert))
			if err != nil {
				h.logger.ErrorContext(ctx, "failed to encode alert event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: alert\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
