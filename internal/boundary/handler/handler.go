package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opsgate/internal/boundary"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/httputil"
	"opsgate/pkg/requestcontext"
)

// Service defines the boundary approval operations the handler exposes.
type Service interface {
	Submit(ctx context.Context, sourceSchema, targetSchema string, operation boundary.Operation, requesterID id.AdminID, dataClassification string) (*boundary.Request, error)
	Approve(ctx context.Context, requestID id.BoundaryRequestID, approved bool, reason string, reviewerID id.AdminID) (*boundary.Request, error)
	BulkApprove(ctx context.Context, requestIDs []id.BoundaryRequestID, reason string, reviewerID id.AdminID) boundary.BulkResult
	BulkDeny(ctx context.Context, requestIDs []id.BoundaryRequestID, reason string, reviewerID id.AdminID) boundary.BulkResult
	ListPending(ctx context.Context) ([]*boundary.Request, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts boundary approval endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/boundary-requests", h.HandleSubmit)
	r.Get("/boundary-requests/pending", h.HandleListPending)
	r.Post("/boundary-requests/{requestID}/decide", h.HandleDecide)
	r.Post("/boundary-requests/bulk-approve", h.bulk(Service.BulkApprove))
	r.Post("/boundary-requests/bulk-deny", h.bulk(Service.BulkDeny))
}

type submitRequest struct {
	SourceSchema       string `json:"source_schema"`
	TargetSchema       string `json:"target_schema"`
	Operation          string `json:"operation"`
	DataClassification string `json:"data_classification,omitempty"`
}

type requestResponse struct {
	ID                 string     `json:"id"`
	SourceSchema       string     `json:"source_schema"`
	TargetSchema       string     `json:"target_schema"`
	Operation          string     `json:"operation"`
	RequesterID        string     `json:"requester_id"`
	DataClassification string     `json:"data_classification,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	Approved           *bool      `json:"approved,omitempty"`
	ApprovedBy         string     `json:"approved_by,omitempty"`
	DecidedAt          *time.Time `json:"decided_at,omitempty"`
	Reason             string     `json:"reason,omitempty"`
}

func toResponse(r *boundary.Request) requestResponse {
	resp := requestResponse{
		ID:                 r.ID.String(),
		SourceSchema:       r.SourceSchema,
		TargetSchema:       r.TargetSchema,
		Operation:          string(r.Operation),
		RequesterID:        r.RequesterID.String(),
		DataClassification: r.DataClassification,
		CreatedAt:          r.CreatedAt,
		Approved:           r.Approved,
		DecidedAt:          r.DecidedAt,
		Reason:             r.Reason,
	}
	if !r.ApprovedBy.IsNil() {
		resp.ApprovedBy = r.ApprovedBy.String()
	}
	return resp
}

// HandleSubmit handles POST /boundary-requests. The requester is the
// authenticated operator.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[submitRequest](w, r, h.logger)
	if !ok {
		return
	}
	record, err := h.service.Submit(ctx, req.SourceSchema, req.TargetSchema,
		boundary.Operation(req.Operation), requestcontext.OperatorID(ctx), req.DataClassification)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(record))
}

type decideRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// HandleDecide handles POST /boundary-requests/{requestID}/decide.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseBoundaryRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid boundary request id"))
		return
	}
	req, ok := httputil.Decode[decideRequest](w, r, h.logger)
	if !ok {
		return
	}
	record, err := h.service.Approve(ctx, requestID, req.Approved, req.Reason, requestcontext.OperatorID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(record))
}

type bulkRequest struct {
	RequestIDs []string `json:"request_ids"`
	Reason     string   `json:"reason,omitempty"`
}

// bulk adapts bulk-approve and bulk-deny, which differ only in the service
// method they call.
func (h *Handler) bulk(apply func(Service, context.Context, []id.BoundaryRequestID, string, id.AdminID) boundary.BulkResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, ok := httputil.Decode[bulkRequest](w, r, h.logger)
		if !ok {
			return
		}
		if len(req.RequestIDs) == 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "request_ids is required"))
			return
		}
		ids := make([]id.BoundaryRequestID, 0, len(req.RequestIDs))
		for _, raw := range req.RequestIDs {
			requestID, err := id.ParseBoundaryRequestID(raw)
			if err != nil {
				httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "invalid boundary request id %q", raw))
				return
			}
			ids = append(ids, requestID)
		}
		result := apply(h.service, ctx, ids, req.Reason, requestcontext.OperatorID(ctx))
		httputil.WriteJSON(w, http.StatusOK, result)
	}
}

// HandleListPending handles GET /boundary-requests/pending.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pending, err := h.service.ListPending(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]requestResponse, 0, len(pending))
	for _, record := range pending {
		out = append(out, toResponse(record))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": out})
}
