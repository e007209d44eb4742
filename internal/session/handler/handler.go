package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opsgate/internal/session"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/httputil"
)

// Service defines the session broker operations the handler exposes.
type Service interface {
	Start(ctx context.Context, adminID id.AdminID, targetType session.TargetType, targetOrgID id.OrgID, targetUserID id.UserID, targetName string) (*session.StartResult, error)
	Validate(ctx context.Context, token string) (session.Claims, error)
	End(ctx context.Context, sessionID id.SessionID, reason string) (*session.ImpersonationSession, error)
	ListForAdmin(ctx context.Context, adminID id.AdminID) ([]*session.ImpersonationSession, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts session endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions", h.HandleStart)
	r.Get("/sessions", h.HandleList)
	r.Post("/sessions/validate", h.HandleValidate)
	r.Post("/sessions/{sessionID}/end", h.HandleEnd)
}

type startRequest struct {
	AdminID      string `json:"admin_id"`
	TargetType   string `json:"target_type"`
	TargetOrgID  string `json:"target_org_id,omitempty"`
	TargetUserID string `json:"target_user_id,omitempty"`
	TargetName   string `json:"target_name,omitempty"`
}

type startResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionResponse struct {
	ID           string     `json:"id"`
	AdminID      string     `json:"admin_id"`
	TargetType   string     `json:"target_type"`
	TargetOrgID  string     `json:"target_org_id,omitempty"`
	TargetUserID string     `json:"target_user_id,omitempty"`
	TargetName   string     `json:"target_name,omitempty"`
	IssuedAt     time.Time  `json:"issued_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	EndReason    string     `json:"end_reason,omitempty"`
}

func toResponse(s *session.ImpersonationSession) sessionResponse {
	resp := sessionResponse{
		ID:         s.ID.String(),
		AdminID:    s.AdminID.String(),
		TargetType: string(s.TargetType),
		TargetName: s.TargetName,
		IssuedAt:   s.IssuedAt,
		ExpiresAt:  s.ExpiresAt,
		EndedAt:    s.EndedAt,
		EndReason:  s.EndReason,
	}
	if !s.TargetOrgID.IsNil() {
		resp.TargetOrgID = s.TargetOrgID.String()
	}
	if !s.TargetUserID.IsNil() {
		resp.TargetUserID = s.TargetUserID.String()
	}
	return resp
}

// HandleStart handles POST /sessions.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[startRequest](w, r, h.logger)
	if !ok {
		return
	}
	adminID, err := id.ParseAdminID(req.AdminID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid admin_id"))
		return
	}
	var orgID id.OrgID
	if req.TargetOrgID != "" {
		if orgID, err = id.ParseOrgID(req.TargetOrgID); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid target_org_id"))
			return
		}
	}
	var userID id.UserID
	if req.TargetUserID != "" {
		if userID, err = id.ParseUserID(req.TargetUserID); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid target_user_id"))
			return
		}
	}
	result, err := h.service.Start(ctx, adminID, session.TargetType(req.TargetType), orgID, userID, req.TargetName)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, startResponse{
		SessionID: result.SessionID.String(),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	SessionID    string    `json:"session_id"`
	AdminID      string    `json:"admin_id"`
	TargetType   string    `json:"target_type"`
	TargetOrgID  string    `json:"target_org_id,omitempty"`
	TargetUserID string    `json:"target_user_id,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// HandleValidate handles POST /sessions/validate.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[validateRequest](w, r, h.logger)
	if !ok {
		return
	}
	claims, err := h.service.Validate(ctx, req.Token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := validateResponse{
		SessionID:  claims.SessionID.String(),
		AdminID:    claims.AdminID.String(),
		TargetType: string(claims.TargetType),
		ExpiresAt:  claims.ExpiresAt,
	}
	if !claims.TargetOrgID.IsNil() {
		resp.TargetOrgID = claims.TargetOrgID.String()
	}
	if !claims.TargetUserID.IsNil() {
		resp.TargetUserID = claims.TargetUserID.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type endRequest struct {
	Reason string `json:"reason,omitempty"`
}

// HandleEnd handles POST /sessions/{sessionID}/end.
func (h *Handler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid session id"))
		return
	}
	req, ok := httputil.Decode[endRequest](w, r, h.logger)
	if !ok {
		return
	}
	ended, err := h.service.End(ctx, sessionID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(ended))
}

// HandleList handles GET /sessions.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, err := id.ParseAdminID(r.URL.Query().Get("admin_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid admin_id"))
		return
	}
	sessions, err := h.service.ListForAdmin(ctx, adminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toResponse(s))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": out})
}
