package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opsgate/internal/recorder"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/httputil"
	"opsgate/pkg/requestcontext"
)

// Service defines the action recorder operations the handler exposes.
type Service interface {
	Record(ctx context.Context, sessionID id.SessionID, actionType, resourceType, resourceID string, details json.RawMessage)
	ListBySession(ctx context.Context, sessionID id.SessionID) ([]*recorder.ActionLogEntry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterSession mounts the recording endpoint. It sits behind the session
// middleware so every recorded action carries a validated session id.
func (h *Handler) RegisterSession(r chi.Router) {
	r.Post("/actions", h.HandleRecord)
}

// RegisterOperator mounts the read endpoint for the operator console.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Get("/sessions/{sessionID}/actions", h.HandleListBySession)
}

type recordRequest struct {
	ActionType   string          `json:"action_type"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
}

// HandleRecord handles POST /actions. Recording is asynchronous; acceptance
// means enqueued, not persisted.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session required"))
		return
	}
	req, ok := httputil.Decode[recordRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.ActionType == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "action_type is required"))
		return
	}
	h.service.Record(ctx, sessionID, req.ActionType, req.ResourceType, req.ResourceID, req.Details)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type entryResponse struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"session_id"`
	ActionType   string          `json:"action_type"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	PerformedAt  time.Time       `json:"performed_at"`
}

// HandleListBySession handles GET /sessions/{sessionID}/actions.
func (h *Handler) HandleListBySession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid session id"))
		return
	}
	entries, err := h.service.ListBySession(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entryResponse{
			ID:           entry.ID.String(),
			SessionID:    entry.SessionID.String(),
			ActionType:   entry.ActionType,
			ResourceType: entry.ResourceType,
			ResourceID:   entry.ResourceID,
			Details:      entry.Details,
			PerformedAt:  entry.PerformedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"actions": out})
}
