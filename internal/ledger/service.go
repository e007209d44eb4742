package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"opsgate/internal/alerts"
	"opsgate/internal/ledger/metrics"
	"opsgate/internal/notify"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/sentinel"
	"opsgate/pkg/requestcontext"
)

// Store is the narrow persistence port for justification records. The store
// is injected so tests can substitute the in-memory implementation.
type Store interface {
	Create(ctx context.Context, j *AccessJustification) error
	FindByID(ctx context.Context, justificationID id.JustificationID) (*AccessJustification, error)
	ListByAdminOrg(ctx context.Context, adminID id.AdminID, orgID id.OrgID) ([]*AccessJustification, error)
	ListByAdmin(ctx context.Context, adminID id.AdminID) ([]*AccessJustification, error)
	MarkRevoked(ctx context.Context, justificationID id.JustificationID, at time.Time, reason string) (*AccessJustification, error)
}

// Alerter raises pipeline alerts on privilege elevation. Satisfied by
// *alerts.Service; tests substitute a fake.
type Alerter interface {
	Raise(ctx context.Context, category alerts.Category, severity alerts.Severity, description, sourceRef string) (*alerts.Alert, error)
}

// Policy bounds grant durations.
type Policy struct {
	// DefaultDuration applies when a request does not specify a duration.
	DefaultDuration time.Duration
	// Ceiling is the maximum duration a single grant may cover.
	Ceiling time.Duration
}

// DefaultPolicy mirrors the platform defaults: two-hour grants, eight-hour ceiling.
func DefaultPolicy() Policy {
	return Policy{DefaultDuration: 2 * time.Hour, Ceiling: 8 * time.Hour}
}

type Service struct {
	store    Store
	alerter  Alerter
	notifier notify.Sink
	logger   *slog.Logger
	metrics  *metrics.Metrics
	policy   Policy
}

type Option func(*Service)

func WithAlerter(a Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

func WithNotifier(sink notify.Sink) Option {
	return func(s *Service) { s.notifier = sink }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("justification store is required")
	}
	svc := &Service{
		store:  store,
		logger: logger,
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RequestAccess validates and stores a new time-boxed grant. Every grant is
// surfaced on the alert pipeline as a privilege elevation event and emits a
// "granted" notice carrying the computed expiry.
func (s *Service) RequestAccess(ctx context.Context, adminID id.AdminID, targetOrgID id.OrgID, reason, ticketRef string, duration time.Duration) (*AccessJustification, error) {
	if adminID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "admin id is required")
	}
	if targetOrgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "target org id is required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "access reason is required")
	}
	if duration == 0 {
		duration = s.policy.DefaultDuration
	}
	if duration < 0 || duration > s.policy.Ceiling {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"requested duration %s exceeds the policy ceiling of %s", duration, s.policy.Ceiling)
	}

	now := requestcontext.Now(ctx)
	grant := &AccessJustification{
		ID:          id.NewJustificationID(),
		AdminID:     adminID,
		TargetOrgID: targetOrgID,
		Reason:      strings.TrimSpace(reason),
		TicketRef:   ticketRef,
		GrantedAt:   now,
		ExpiresAt:   now.Add(duration),
	}

	// Grant persistence is load-bearing: a silent failure here would let an
	// operator believe they hold access they do not. Surface store errors.
	if err := s.store.Create(ctx, grant); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store access justification")
	}

	if s.metrics != nil {
		s.metrics.GrantsIssued.Inc()
	}
	if s.alerter != nil {
		description := fmt.Sprintf("Privileged access to org %s granted to admin %s until %s",
			targetOrgID, adminID, grant.ExpiresAt.Format(time.RFC3339))
		if _, err := s.alerter.Raise(ctx, alerts.CategoryPrivilegeElevation, alerts.SeverityMedium, description, grant.ID.String()); err != nil {
			// The grant itself is stored; a missed alert is recoverable from
			// the ledger listing.
			s.logger.ErrorContext(ctx, "failed to raise privilege elevation alert",
				"error", err, "justification_id", grant.ID.String())
		}
	}
	s.notify(ctx, notify.Notice{
		Title:       "Access granted",
		Description: fmt.Sprintf("Access to org %s granted until %s", targetOrgID, grant.ExpiresAt.Format(time.RFC3339)),
		Severity:    notify.SeverityInfo,
	})
	s.logger.InfoContext(ctx, "access justification granted",
		"request_id", requestcontext.RequestID(ctx),
		"justification_id", grant.ID.String(),
		"admin_id", adminID.String(),
		"target_org_id", targetOrgID.String(),
		"expires_at", grant.ExpiresAt,
	)
	return grant, nil
}

// CheckActive reports whether the admin currently holds an unrevoked,
// unexpired grant for the org. Pure read; no caching, so revocations take
// effect on the next call.
func (s *Service) CheckActive(ctx context.Context, adminID id.AdminID, targetOrgID id.OrgID) (bool, error) {
	grants, err := s.store.ListByAdminOrg(ctx, adminID, targetOrgID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read justifications")
	}
	now := requestcontext.Now(ctx)
	active := false
	for _, grant := range grants {
		if grant.IsActive(now) {
			active = true
			break
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveActiveCheck(active)
	}
	return active, nil
}

// Revoke marks the grant revoked. Idempotent: revoking an already-revoked
// grant succeeds and leaves the original revokedAt untouched.
func (s *Service) Revoke(ctx context.Context, justificationID id.JustificationID, reason string) (*AccessJustification, error) {
	now := requestcontext.Now(ctx)
	grant, err := s.store.MarkRevoked(ctx, justificationID, now, reason)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "justification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to revoke justification")
	}

	if s.metrics != nil {
		s.metrics.GrantsRevoked.Inc()
	}
	s.notify(ctx, notify.Notice{
		Title:       "Access revoked",
		Description: fmt.Sprintf("Access grant for org %s was revoked", grant.TargetOrgID),
		Severity:    notify.SeverityWarning,
	})
	s.logger.InfoContext(ctx, "access justification revoked",
		"request_id", requestcontext.RequestID(ctx),
		"justification_id", justificationID.String(),
		"reason", reason,
	)
	return grant, nil
}

// ListForAdmin returns the admin's grants, optionally filtered to currently
// active ones. Used by the operator console.
func (s *Service) ListForAdmin(ctx context.Context, adminID id.AdminID, activeOnly bool) ([]*AccessJustification, error) {
	grants, err := s.store.ListByAdmin(ctx, adminID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read justifications")
	}
	if !activeOnly {
		return grants, nil
	}
	now := requestcontext.Now(ctx)
	filtered := grants[:0]
	for _, grant := range grants {
		if grant.IsActive(now) {
			filtered = append(filtered, grant)
		}
	}
	return filtered, nil
}

func (s *Service) notify(ctx context.Context, notice notify.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, notice)
	}
}
