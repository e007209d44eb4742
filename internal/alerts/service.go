package alerts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"opsgate/internal/alerts/metrics"
	"opsgate/internal/notify"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/platform/sentinel"
	"opsgate/pkg/requestcontext"
)

// Store is the narrow persistence port for alert records.
type Store interface {
	Create(ctx context.Context, a *Alert) error
	FindByID(ctx context.Context, alertID id.AlertID) (*Alert, error)
	List(ctx context.Context, category Category, status Status) ([]*Alert, error)
	Acknowledge(ctx context.Context, alertID id.AlertID, by id.AdminID, at time.Time) (*Alert, error)
	Resolve(ctx context.Context, alertID id.AlertID, at time.Time) (*Alert, error)
	Dismiss(ctx context.Context, alertID id.AlertID, at time.Time) (*Alert, error)
}

// Sink receives a copy of every raised alert for external systems (Kafka).
// Implementations must be fire-and-forget.
type Sink interface {
	Publish(ctx context.Context, alert Alert)
}

type Service struct {
	store    Store
	stream   *Stream
	sink     Sink
	notifier notify.Sink
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithSink(sink Sink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithNotifier(sink notify.Sink) Option {
	return func(s *Service) { s.notifier = sink }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, stream *Stream, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("alert store is required")
	}
	if stream == nil {
		return nil, errors.New("alert stream is required")
	}
	svc := &Service{store: store, stream: stream, logger: logger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Raise persists a new alert and pushes a copy to live subscribers and the
// external sink. Persistence failures surface; push failures do not exist by
// construction (at-most-once, drop-on-slow).
func (s *Service) Raise(ctx context.Context, category Category, severity Severity, description, sourceRef string) (*Alert, error) {
	if !category.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown alert category %q", category)
	}
	if !severity.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown alert severity %q", severity)
	}
	if description == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "alert description is required")
	}
	alert := &Alert{
		ID:          id.NewAlertID(),
		Category:    category,
		Severity:    severity,
		Description: description,
		SourceRef:   sourceRef,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, alert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store alert")
	}

	s.stream.Publish(*alert)
	if s.sink != nil {
		s.sink.Publish(ctx, *alert)
	}
	if s.metrics != nil {
		s.metrics.AlertsRaised.WithLabelValues(string(category), string(severity)).Inc()
	}
	s.notify(ctx, notify.Notice{
		Title:       "Security alert raised",
		Description: description,
		Severity:    noticeSeverity(severity),
	})
	s.logger.InfoContext(ctx, "alert raised",
		"request_id", requestcontext.RequestID(ctx),
		"alert_id", alert.ID.String(),
		"category", string(category),
		"severity", string(severity),
	)
	return alert, nil
}

// Acknowledge stamps the operator on an open alert. Monotonic: acknowledging
// a non-open alert is rejected, never reapplied.
func (s *Service) Acknowledge(ctx context.Context, alertID id.AlertID, operatorID id.AdminID) (*Alert, error) {
	alert, err := s.store.Acknowledge(ctx, alertID, operatorID, requestcontext.Now(ctx))
	if err != nil {
		return nil, s.translateTransition(err, "acknowledged")
	}
	s.observeTransition("acknowledge")
	return alert, nil
}

// Resolve closes out an open or acknowledged alert.
func (s *Service) Resolve(ctx context.Context, alertID id.AlertID, operatorID id.AdminID) (*Alert, error) {
	alert, err := s.store.Resolve(ctx, alertID, requestcontext.Now(ctx))
	if err != nil {
		return nil, s.translateTransition(err, "resolved")
	}
	s.observeTransition("resolve")
	s.logger.InfoContext(ctx, "alert resolved",
		"alert_id", alertID.String(), "operator_id", operatorID.String())
	return alert, nil
}

// Dismiss discards an open or acknowledged alert as noise.
func (s *Service) Dismiss(ctx context.Context, alertID id.AlertID, operatorID id.AdminID) (*Alert, error) {
	alert, err := s.store.Dismiss(ctx, alertID, requestcontext.Now(ctx))
	if err != nil {
		return nil, s.translateTransition(err, "dismissed")
	}
	s.observeTransition("dismiss")
	s.logger.InfoContext(ctx, "alert dismissed",
		"alert_id", alertID.String(), "operator_id", operatorID.String())
	return alert, nil
}

// List returns persisted alerts, optionally filtered by category and status.
func (s *Service) List(ctx context.Context, category Category, status Status) ([]*Alert, error) {
	out, err := s.store.List(ctx, category, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list alerts")
	}
	return out, nil
}

// Subscribe exposes the live stream for transport handlers.
func (s *Service) Subscribe(ctx context.Context, categories ...Category) <-chan Alert {
	return s.stream.Subscribe(ctx, categories...)
}

func (s *Service) translateTransition(err error, pastTense string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "alert not found")
	}
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.Newf(dErrors.CodeValidation, "alert cannot be %s in its current state", pastTense)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update alert")
}

func (s *Service) observeTransition(transition string) {
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(transition).Inc()
	}
}

func (s *Service) notify(ctx context.Context, notice notify.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, notice)
	}
}

func noticeSeverity(severity Severity) notify.Severity {
	switch severity {
	case SeverityHigh, SeverityCritical:
		return notify.SeverityCritical
	case SeverityMedium:
		return notify.SeverityWarning
	default:
		return notify.SeverityInfo
	}
}
