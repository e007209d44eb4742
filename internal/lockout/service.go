package lockout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"opsgate/internal/alerts"
	dErrors "opsgate/pkg/domerrors"
)

// Store is the persistence port for failure counters and hard locks.
type Store interface {
	RecordFailure(ctx context.Context, identifier string, window time.Duration) (int, error)
	Lock(ctx context.Context, identifier string, duration time.Duration) error
	IsLocked(ctx context.Context, identifier string) (bool, error)
	Clear(ctx context.Context, identifier string) error
}

// Alerter raises a security alert when an identifier is hard-locked.
type Alerter interface {
	Raise(ctx context.Context, category alerts.Category, severity alerts.Severity, description, sourceRef string) (*alerts.Alert, error)
}

type Service struct {
	store   Store
	alerter Alerter
	logger  *slog.Logger
	policy  Policy
}

type Option func(*Service)

func WithAlerter(a Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("lockout store is required")
	}
	svc := &Service{store: store, logger: logger, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Check fails closed: if lockout state cannot be read, authentication is
// refused rather than allowed through.
func (s *Service) Check(ctx context.Context, identifier string) error {
	locked, err := s.store.IsLocked(ctx, identifier)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "lockout state unavailable")
	}
	if locked {
		return dErrors.New(dErrors.CodeUnauthorized, "too many failed authentication attempts")
	}
	return nil
}

// RecordFailure counts one failed authentication and applies the hard lock
// once the policy threshold is reached.
func (s *Service) RecordFailure(ctx context.Context, identifier string) {
	count, err := s.store.RecordFailure(ctx, identifier, s.policy.Window)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record auth failure", "error", err)
		return
	}
	if count < s.policy.MaxFailures {
		return
	}
	if err := s.store.Lock(ctx, identifier, s.policy.LockDuration); err != nil {
		s.logger.ErrorContext(ctx, "failed to apply hard lock", "error", err)
		return
	}
	s.logger.WarnContext(ctx, "operator hard-locked after repeated auth failures",
		"identifier", identifier,
		"failures", count,
		"lock_duration", s.policy.LockDuration.String(),
	)
	if s.alerter != nil {
		description := fmt.Sprintf("Operator %q hard-locked after %d failed authentication attempts", identifier, count)
		if _, err := s.alerter.Raise(ctx, alerts.CategoryFailedAuth, alerts.SeverityHigh, description, identifier); err != nil {
			s.logger.ErrorContext(ctx, "failed to raise lockout alert", "error", err)
		}
	}
}

// Clear resets counters after a successful authentication.
func (s *Service) Clear(ctx context.Context, identifier string) {
	if err := s.store.Clear(ctx, identifier); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear lockout state", "error", err)
	}
}
