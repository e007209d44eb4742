package boundary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"opsgate/internal/alerts"
	"opsgate/internal/boundary/metrics"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/sentinel"
	"opsgate/pkg/requestcontext"
)

// Store is the narrow persistence port for boundary requests.
type Store interface {
	Create(ctx context.Context, r *Request) error
	FindByID(ctx context.Context, requestID id.BoundaryRequestID) (*Request, error)
	ListPending(ctx context.Context) ([]*Request, error)
	Decide(ctx context.Context, requestID id.BoundaryRequestID, approved bool, by id.AdminID, at time.Time, reason string) (*Request, error)
}

// Alerter raises pipeline alerts on boundary activity. Satisfied by
// *alerts.Service; tests substitute a fake.
type Alerter interface {
	Raise(ctx context.Context, category alerts.Category, severity alerts.Severity, description, sourceRef string) (*alerts.Alert, error)
}

// bulkConcurrency caps in-flight members of one bulk operation.
const bulkConcurrency = 8

type Service struct {
	store   Store
	alerter Alerter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithAlerter(a Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("boundary request store is required")
	}
	svc := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Submit logs a new pending request and raises a boundary-category alert so
// reviewers see it in real time.
func (s *Service) Submit(ctx context.Context, sourceSchema, targetSchema string, operation Operation, requesterID id.AdminID, dataClassification string) (*Request, error) {
	if sourceSchema == "" || targetSchema == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "source and target schemas are required")
	}
	if requesterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "requester id is required")
	}
	req := &Request{
		ID:                 id.NewBoundaryRequestID(),
		SourceSchema:       sourceSchema,
		TargetSchema:       targetSchema,
		Operation:          operation,
		RequesterID:        requesterID,
		DataClassification: dataClassification,
		CreatedAt:          requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store boundary request")
	}

	if s.alerter != nil {
		description := fmt.Sprintf("Cross-schema %s requested: %s -> %s", operation, sourceSchema, targetSchema)
		if _, err := s.alerter.Raise(ctx, alerts.CategoryBoundaryRequest, alerts.SeverityMedium, description, req.ID.String()); err != nil {
			// The request itself is stored; a missed alert is recoverable
			// from the pending list.
			s.logger.ErrorContext(ctx, "failed to raise boundary alert",
				"error", err, "request_id_record", req.ID.String())
		}
	}
	return req, nil
}

// Approve records the terminal decision for a single request.
func (s *Service) Approve(ctx context.Context, requestID id.BoundaryRequestID, approved bool, reason string, reviewerID id.AdminID) (*Request, error) {
	now := requestcontext.Now(ctx)
	req, err := s.store.Decide(ctx, requestID, approved, reviewerID, now, reason)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "boundary request not found")
		}
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeValidation, "boundary request is already decided")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to decide boundary request")
	}
	if s.metrics != nil {
		outcome := "denied"
		if approved {
			outcome = "approved"
		}
		s.metrics.Decisions.WithLabelValues(outcome).Inc()
	}
	s.logger.InfoContext(ctx, "boundary request decided",
		"request_id", requestcontext.RequestID(ctx),
		"boundary_request_id", requestID.String(),
		"approved", approved,
		"reviewer_id", reviewerID.String(),
	)
	return req, nil
}

// BulkApprove approves every request concurrently. See bulkDecide for the
// partial-failure contract.
func (s *Service) BulkApprove(ctx context.Context, requestIDs []id.BoundaryRequestID, reason string, reviewerID id.AdminID) BulkResult {
	return s.bulkDecide(ctx, requestIDs, true, reason, reviewerID)
}

// BulkDeny denies every request concurrently.
func (s *Service) BulkDeny(ctx context.Context, requestIDs []id.BoundaryRequestID, reason string, reviewerID id.AdminID) BulkResult {
	return s.bulkDecide(ctx, requestIDs, false, reason, reviewerID)
}

// bulkDecide fans out one Approve per id with no ordering guarantee and no
// cross-item atomicity. Members are deliberately not wrapped in a shared
// transaction: a failing member must not abort or roll back the others.
func (s *Service) bulkDecide(ctx context.Context, requestIDs []id.BoundaryRequestID, approved bool, reason string, reviewerID id.AdminID) BulkResult {
	var succeeded, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for _, requestID := range requestIDs {
		g.Go(func() error {
			if _, err := s.Approve(ctx, requestID, approved, reason, reviewerID); err != nil {
				failed.Add(1)
				s.logger.WarnContext(ctx, "bulk boundary decision member failed",
					"error", err,
					"boundary_request_id", requestID.String(),
				)
				return nil // keep the remaining members running
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := BulkResult{Succeeded: int(succeeded.Load()), Failed: int(failed.Load())}
	if s.metrics != nil {
		s.metrics.BulkOutcomes.WithLabelValues("succeeded").Add(float64(result.Succeeded))
		s.metrics.BulkOutcomes.WithLabelValues("failed").Add(float64(result.Failed))
	}
	s.logger.InfoContext(ctx, "bulk boundary decision finished",
		"request_id", requestcontext.RequestID(ctx),
		"approved", approved,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result
}

// ListPending returns requests awaiting a decision.
func (s *Service) ListPending(ctx context.Context) ([]*Request, error) {
	out, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list boundary requests")
	}
	return out, nil
}
