package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opsgate/internal/ledger"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/httputil"
	"opsgate/pkg/requestcontext"
)

// Service defines the justification operations the handler exposes.
type Service interface {
	RequestAccess(ctx context.Context, adminID id.AdminID, targetOrgID id.OrgID, reason, ticketRef string, duration time.Duration) (*ledger.AccessJustification, error)
	CheckActive(ctx context.Context, adminID id.AdminID, targetOrgID id.OrgID) (bool, error)
	Revoke(ctx context.Context, justificationID id.JustificationID, reason string) (*ledger.AccessJustification, error)
	ListForAdmin(ctx context.Context, adminID id.AdminID, activeOnly bool) ([]*ledger.AccessJustification, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts justification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/justifications", h.HandleRequestAccess)
	r.Get("/justifications", h.HandleList)
	r.Get("/justifications/active", h.HandleCheckActive)
	r.Post("/justifications/{justificationID}/revoke", h.HandleRevoke)
}

type requestAccessRequest struct {
	AdminID         string `json:"admin_id"`
	TargetOrgID     string `json:"target_org_id"`
	Reason          string `json:"reason"`
	TicketRef       string `json:"ticket_ref,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type justificationResponse struct {
	ID           string     `json:"id"`
	AdminID      string     `json:"admin_id"`
	TargetOrgID  string     `json:"target_org_id"`
	Reason       string     `json:"reason"`
	TicketRef    string     `json:"ticket_ref,omitempty"`
	GrantedAt    time.Time  `json:"granted_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	RevokeReason string     `json:"revoke_reason,omitempty"`
	Active       bool       `json:"active"`
}

func toResponse(j *ledger.AccessJustification, now time.Time) justificationResponse {
	return justificationResponse{
		ID:           j.ID.String(),
		AdminID:      j.AdminID.String(),
		TargetOrgID:  j.TargetOrgID.String(),
		Reason:       j.Reason,
		TicketRef:    j.TicketRef,
		GrantedAt:    j.GrantedAt,
		ExpiresAt:    j.ExpiresAt,
		RevokedAt:    j.RevokedAt,
		RevokeReason: j.RevokeReason,
		Active:       j.IsActive(now),
	}
}

// HandleRequestAccess handles POST /justifications.
func (h *Handler) HandleRequestAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[requestAccessRequest](w, r, h.logger)
	if !ok {
		return
	}
	adminID, err := id.ParseAdminID(req.AdminID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid admin_id"))
		return
	}
	orgID, err := id.ParseOrgID(req.TargetOrgID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid target_org_id"))
		return
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute
	grant, err := h.service.RequestAccess(ctx, adminID, orgID, req.Reason, req.TicketRef, duration)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(grant, requestcontext.Now(ctx)))
}

// HandleCheckActive handles GET /justifications/active.
func (h *Handler) HandleCheckActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, err := id.ParseAdminID(r.URL.Query().Get("admin_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid admin_id"))
		return
	}
	orgID, err := id.ParseOrgID(r.URL.Query().Get("org_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid org_id"))
		return
	}
	active, err := h.service.CheckActive(ctx, adminID, orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"active": active})
}

type revokeRequest struct {
	Reason string `json:"reason,omitempty"`
}

// HandleRevoke handles POST /justifications/{justificationID}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	justificationID, err := id.ParseJustificationID(chi.URLParam(r, "justificationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid justification id"))
		return
	}
	req, ok := httputil.Decode[revokeRequest](w, r, h.logger)
	if !ok {
		return
	}
	grant, err := h.service.Revoke(ctx, justificationID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(grant, requestcontext.Now(ctx)))
}

// HandleList handles GET /justifications.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, err := id.ParseAdminID(r.URL.Query().Get("admin_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid admin_id"))
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	grants, err := h.service.ListForAdmin(ctx, adminID, activeOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	out := make([]justificationResponse, 0, len(grants))
	for _, grant := range grants {
		out = append(out, toResponse(grant, now))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"justifications": out})
}
