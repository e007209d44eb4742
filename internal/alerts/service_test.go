package alerts_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"opsgate/internal/alerts"
	alertstore "opsgate/internal/alerts/store/alert"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/requestcontext"
)

type capturingSink struct {
	mu        sync.Mutex
	published []alerts.Alert
}

func (c *capturingSink) Publish(_ context.Context, alert alerts.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, alert)
}

type ServiceSuite struct {
	suite.Suite
	sink    *capturingSink
	service *alerts.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.sink = &capturingSink{}
	svc, err := alerts.NewService(alertstore.New(), alerts.NewStream(), slog.Default(), alerts.WithSink(s.sink))
	s.Require().NoError(err)
	s.service = svc
}

func ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) TestRaise() {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s.Run("requires a description", func() {
		_, err := s.service.Raise(ctxAt(t0), alerts.CategoryAnomaly, alerts.SeverityLow, "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a category outside the known set", func() {
		_, err := s.service.Raise(ctxAt(t0), alerts.Category("weird"), alerts.SeverityLow, "odd login pattern", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Empty(s.sink.published)

		list, err := s.service.List(ctxAt(t0), "", "")
		s.Require().NoError(err)
		s.Empty(list)
	})

	s.Run("rejects a severity outside the known set", func() {
		_, err := s.service.Raise(ctxAt(t0), alerts.CategoryAnomaly, alerts.Severity("apocalyptic"), "odd login pattern", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Empty(s.sink.published)
	})

	s.Run("persists and forwards to the sink", func() {
		alert, err := s.service.Raise(ctxAt(t0), alerts.CategorySecurity, alerts.SeverityHigh, "odd login pattern", "session-7")
		s.Require().NoError(err)
		s.Equal(alerts.StatusOpen, alert.Status())
		s.Equal(t0, alert.CreatedAt)

		s.Require().Len(s.sink.published, 1)
		s.Equal(alert.ID, s.sink.published[0].ID)
	})

	s.Run("delivers to live subscribers", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		updates := s.service.Subscribe(ctx, alerts.CategoryAnomaly)

		raised, err := s.service.Raise(ctxAt(t0), alerts.CategoryAnomaly, alerts.SeverityMedium, "spike in exports", "")
		s.Require().NoError(err)

		select {
		case got := <-updates:
			s.Equal(raised.ID, got.ID)
		case <-time.After(time.Second):
			s.FailNow("no alert on the stream")
		}
	})
}

func (s *ServiceSuite) TestLifecycle() {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	operator := id.NewAdminID()

	s.Run("acknowledge then resolve", func() {
		alert, err := s.service.Raise(ctxAt(t0), alerts.CategorySecurity, alerts.SeverityHigh, "odd login pattern", "")
		s.Require().NoError(err)

		acked, err := s.service.Acknowledge(ctxAt(t0.Add(time.Minute)), alert.ID, operator)
		s.Require().NoError(err)
		s.Equal(alerts.StatusAcknowledged, acked.Status())
		s.Equal(operator, acked.AcknowledgedBy)

		resolved, err := s.service.Resolve(ctxAt(t0.Add(2*time.Minute)), alert.ID, operator)
		s.Require().NoError(err)
		s.Equal(alerts.StatusResolved, resolved.Status())
	})

	s.Run("transitions are monotonic", func() {
		alert, err := s.service.Raise(ctxAt(t0), alerts.CategorySecurity, alerts.SeverityHigh, "odd login pattern", "")
		s.Require().NoError(err)

		_, err = s.service.Resolve(ctxAt(t0.Add(time.Minute)), alert.ID, operator)
		s.Require().NoError(err)

		_, err = s.service.Acknowledge(ctxAt(t0.Add(2*time.Minute)), alert.ID, operator)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Dismiss(ctxAt(t0.Add(2*time.Minute)), alert.ID, operator)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("dismiss works from open and acknowledged only", func() {
		alert, err := s.service.Raise(ctxAt(t0), alerts.CategoryAnomaly, alerts.SeverityLow, "noise", "")
		s.Require().NoError(err)

		dismissed, err := s.service.Dismiss(ctxAt(t0.Add(time.Minute)), alert.ID, operator)
		s.Require().NoError(err)
		s.Equal(alerts.StatusDismissed, dismissed.Status())

		_, err = s.service.Resolve(ctxAt(t0.Add(2*time.Minute)), alert.ID, operator)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown alert returns not found", func() {
		_, err := s.service.Acknowledge(ctxAt(t0), id.NewAlertID(), operator)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestList() {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	operator := id.NewAdminID()

	security, err := s.service.Raise(ctxAt(t0), alerts.CategorySecurity, alerts.SeverityHigh, "one", "")
	s.Require().NoError(err)
	_, err = s.service.Raise(ctxAt(t0.Add(time.Minute)), alerts.CategoryAnomaly, alerts.SeverityLow, "two", "")
	s.Require().NoError(err)
	_, err = s.service.Acknowledge(ctxAt(t0.Add(2*time.Minute)), security.ID, operator)
	s.Require().NoError(err)

	s.Run("unfiltered returns everything", func() {
		list, err := s.service.List(ctxAt(t0), "", "")
		s.Require().NoError(err)
		s.Len(list, 2)
	})

	s.Run("filters by category", func() {
		list, err := s.service.List(ctxAt(t0), alerts.CategorySecurity, "")
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(security.ID, list[0].ID)
	})

	s.Run("filters by status", func() {
		list, err := s.service.List(ctxAt(t0), "", alerts.StatusAcknowledged)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(security.ID, list[0].ID)
	})
}
