package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"opsgate/internal/notify"
	"opsgate/internal/session/metrics"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/sentinel"
	"opsgate/pkg/requestcontext"
)

// Store is the narrow persistence port for session records.
type Store interface {
	Create(ctx context.Context, sess *ImpersonationSession) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*ImpersonationSession, error)
	ListByAdmin(ctx context.Context, adminID id.AdminID) ([]*ImpersonationSession, error)
	MarkEnded(ctx context.Context, sessionID id.SessionID, at time.Time, reason string) (*ImpersonationSession, error)
}

// EndedList shares terminal session state across instances. Optional; the
// session record itself remains authoritative.
type EndedList interface {
	MarkEnded(ctx context.Context, sessionID id.SessionID, ttl time.Duration) error
	IsEnded(ctx context.Context, sessionID id.SessionID) (bool, error)
}

// LedgerChecker answers whether the admin holds a live access grant for the
// org. Satisfied by *ledger.Service.
type LedgerChecker interface {
	CheckActive(ctx context.Context, adminID id.AdminID, targetOrgID id.OrgID) (bool, error)
}

// DefaultTTL is the fixed impersonation token lifetime from issuance.
const DefaultTTL = 60 * time.Minute

type Service struct {
	store    Store
	tokens   *TokenService
	ledger   LedgerChecker
	endlist  EndedList
	notifier notify.Sink
	logger   *slog.Logger
	metrics  *metrics.Metrics
	ttl      time.Duration
}

type Option func(*Service)

func WithEndedList(list EndedList) Option {
	return func(s *Service) { s.endlist = list }
}

func WithNotifier(sink notify.Sink) Option {
	return func(s *Service) { s.notifier = sink }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func NewService(store Store, tokens *TokenService, ledger LedgerChecker, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger checker is required")
	}
	svc := &Service{
		store:  store,
		tokens: tokens,
		ledger: ledger,
		logger: logger,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Start issues a signed, expiring token scoped to the target. Organization
// sessions additionally require a live access justification at issuance.
func (s *Service) Start(ctx context.Context, adminID id.AdminID, targetType TargetType, targetOrgID id.OrgID, targetUserID id.UserID, targetName string) (*StartResult, error) {
	operator := requestcontext.OperatorID(ctx)
	if operator.IsNil() || operator != adminID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "operator privilege required")
	}

	switch targetType {
	case TargetOrganization:
		if targetOrgID.IsNil() {
			return nil, dErrors.New(dErrors.CodeValidation, "organization sessions require a target org id")
		}
		if !targetUserID.IsNil() {
			return nil, dErrors.New(dErrors.CodeValidation, "organization sessions must not carry a target user id")
		}
	case TargetUser:
		if targetUserID.IsNil() {
			return nil, dErrors.New(dErrors.CodeValidation, "user sessions require a target user id")
		}
		if !targetOrgID.IsNil() {
			return nil, dErrors.New(dErrors.CodeValidation, "user sessions must not carry a target org id")
		}
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown target type %q", targetType)
	}

	if targetType == TargetOrganization {
		active, err := s.ledger.CheckActive(ctx, adminID, targetOrgID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, dErrors.New(dErrors.CodeForbidden, "no active access justification for the target org")
		}
	}

	now := requestcontext.Now(ctx)
	sess := &ImpersonationSession{
		ID:           id.NewSessionID(),
		AdminID:      adminID,
		TargetType:   targetType,
		TargetOrgID:  targetOrgID,
		TargetUserID: targetUserID,
		TargetName:   targetName,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store session")
	}

	token, err := s.tokens.Generate(sess)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}

	if s.metrics != nil {
		s.metrics.SessionsStarted.Inc()
	}
	s.notify(ctx, notify.Notice{
		Title:       "Impersonation started",
		Description: fmt.Sprintf("Session for %s active until %s", targetName, sess.ExpiresAt.Format(time.RFC3339)),
		Severity:    notify.SeverityWarning,
	})
	s.logger.InfoContext(ctx, "impersonation session started",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID.String(),
		"admin_id", adminID.String(),
		"target_type", string(targetType),
		"expires_at", sess.ExpiresAt,
	)
	return &StartResult{SessionID: sess.ID, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Validate gates every use of a session token. A token passes only while the
// session is unterminated, unexpired (boundary-inclusive), and - for
// organization sessions - the admin's grant is still live in the ledger. The
// ledger check runs on every call, never cached at issuance, so a revocation
// takes effect immediately.
func (s *Service) Validate(ctx context.Context, token string) (Claims, error) {
	now := requestcontext.Now(ctx)
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ValidateDuration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
		}
	}()

	claims, err := s.tokens.Parse(token, now)
	if err != nil {
		s.observeValidation(dErrors.CodeOf(err))
		return Claims{}, err
	}

	sess, err := s.store.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.observeValidation(dErrors.CodeInvalidToken)
			return Claims{}, dErrors.New(dErrors.CodeInvalidToken, "unknown session")
		}
		return Claims{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load session")
	}
	if sess.EndedAt != nil {
		s.observeValidation(dErrors.CodeExpired)
		return Claims{}, dErrors.New(dErrors.CodeExpired, "session has ended")
	}
	if !now.Before(sess.ExpiresAt) {
		s.observeValidation(dErrors.CodeExpired)
		return Claims{}, dErrors.New(dErrors.CodeExpired, "session has expired")
	}
	if s.endlist != nil {
		ended, err := s.endlist.IsEnded(ctx, claims.SessionID)
		if err != nil {
			// Fail closed: an unreadable end list must not admit a
			// possibly-terminated session.
			return Claims{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check session state")
		}
		if ended {
			s.observeValidation(dErrors.CodeExpired)
			return Claims{}, dErrors.New(dErrors.CodeExpired, "session has ended")
		}
	}

	if sess.TargetType == TargetOrganization {
		active, err := s.ledger.CheckActive(ctx, sess.AdminID, sess.TargetOrgID)
		if err != nil {
			return Claims{}, err
		}
		if !active {
			s.observeValidation(dErrors.CodeExpired)
			return Claims{}, dErrors.New(dErrors.CodeExpired, "access justification revoked or expired")
		}
	}

	s.observeValidation("ok")
	return claims, nil
}

// End transitions the session to its terminal state regardless of remaining
// lifetime. Idempotent: repeat ends succeed without re-stamping endedAt.
func (s *Service) End(ctx context.Context, sessionID id.SessionID, reason string) (*ImpersonationSession, error) {
	now := requestcontext.Now(ctx)
	sess, err := s.store.MarkEnded(ctx, sessionID, now, reason)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to end session")
	}

	if s.endlist != nil {
		// Best effort: the session record already carries the terminal state.
		if err := s.endlist.MarkEnded(ctx, sessionID, sess.ExpiresAt.Sub(now)); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish session end",
				"error", err, "session_id", sessionID.String())
		}
	}

	if s.metrics != nil {
		s.metrics.SessionsEnded.WithLabelValues(sess.EndReason).Inc()
	}
	s.notify(ctx, notify.Notice{
		Title:       "Impersonation ended",
		Description: fmt.Sprintf("Session for %s ended (%s)", sess.TargetName, sess.EndReason),
		Severity:    notify.SeverityInfo,
	})
	s.logger.InfoContext(ctx, "impersonation session ended",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID.String(),
		"reason", reason,
	)
	return sess, nil
}

// ListForAdmin returns the admin's sessions for the operator console.
func (s *Service) ListForAdmin(ctx context.Context, adminID id.AdminID) ([]*ImpersonationSession, error) {
	out, err := s.store.ListByAdmin(ctx, adminID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list sessions")
	}
	return out, nil
}

func (s *Service) observeValidation(outcome dErrors.Code) {
	if s.metrics != nil {
		s.metrics.ValidateOutcomes.WithLabelValues(string(outcome)).Inc()
	}
}

func (s *Service) notify(ctx context.Context, notice notify.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, notice)
	}
}
