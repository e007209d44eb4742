package boundary_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"opsgate/internal/alerts"
	"opsgate/internal/boundary"
	requeststore "opsgate/internal/boundary/store/request"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/requestcontext"
)

type capturingAlerter struct {
	mu     sync.Mutex
	raised []alerts.Category
}

func (c *capturingAlerter) Raise(_ context.Context, category alerts.Category, _ alerts.Severity, _ string, _ string) (*alerts.Alert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raised = append(c.raised, category)
	return &alerts.Alert{ID: id.NewAlertID(), Category: category}, nil
}

type ServiceSuite struct {
	suite.Suite
	store    *requeststore.InMemoryStore
	alerter  *capturingAlerter
	service  *boundary.Service
	reviewer id.AdminID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = requeststore.New()
	s.alerter = &capturingAlerter{}
	s.reviewer = id.NewAdminID()
	svc, err := boundary.NewService(s.store, slog.Default(), boundary.WithAlerter(s.alerter))
	s.Require().NoError(err)
	s.service = svc
}

func ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) submit(t time.Time) *boundary.Request {
	req, err := s.service.Submit(ctxAt(t), "billing", "analytics", boundary.OperationRead, id.NewAdminID(), "pii")
	s.Require().NoError(err)
	return req
}

func (s *ServiceSuite) TestSubmit() {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s.Run("rejects missing schemas", func() {
		_, err := s.service.Submit(ctxAt(t0), "", "analytics", boundary.OperationRead, id.NewAdminID(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a nil requester", func() {
		_, err := s.service.Submit(ctxAt(t0), "billing", "analytics", boundary.OperationRead, id.AdminID{}, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("stores a pending request and raises a boundary alert", func() {
		req := s.submit(t0)
		s.True(req.Pending())
		s.Equal(t0, req.CreatedAt)

		s.Require().Len(s.alerter.raised, 1)
		s.Equal(alerts.CategoryBoundaryRequest, s.alerter.raised[0])

		pending, err := s.service.ListPending(ctxAt(t0))
		s.Require().NoError(err)
		s.Require().Len(pending, 1)
		s.Equal(req.ID, pending[0].ID)
	})
}

func (s *ServiceSuite) TestApprove() {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s.Run("decision is stamped and terminal", func() {
		req := s.submit(t0)
		decided, err := s.service.Approve(ctxAt(t0.Add(time.Minute)), req.ID, true, "legit migration", s.reviewer)
		s.Require().NoError(err)
		s.Require().NotNil(decided.Approved)
		s.True(*decided.Approved)
		s.Equal(s.reviewer, decided.ApprovedBy)
		s.Require().NotNil(decided.DecidedAt)
		s.Equal(t0.Add(time.Minute), *decided.DecidedAt)

		_, err = s.service.Approve(ctxAt(t0.Add(2*time.Minute)), req.ID, false, "changed my mind", s.reviewer)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown request returns not found", func() {
		_, err := s.service.Approve(ctxAt(t0), id.NewBoundaryRequestID(), true, "", s.reviewer)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestBulkDecide() {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s.Run("one missing member does not abort the rest", func() {
		first := s.submit(t0)
		third := s.submit(t0)
		missing := id.NewBoundaryRequestID()

		result := s.service.BulkDeny(ctxAt(t0.Add(time.Minute)),
			[]id.BoundaryRequestID{first.ID, missing, third.ID}, "cleanup", s.reviewer)
		s.Equal(boundary.BulkResult{Succeeded: 2, Failed: 1}, result)

		for _, requestID := range []id.BoundaryRequestID{first.ID, third.ID} {
			record, err := s.store.FindByID(context.Background(), requestID)
			s.Require().NoError(err)
			s.Require().NotNil(record.Approved)
			s.False(*record.Approved)
		}
	})

	s.Run("bulk approve decides every pending member", func() {
		ids := []id.BoundaryRequestID{s.submit(t0).ID, s.submit(t0).ID, s.submit(t0).ID}
		result := s.service.BulkApprove(ctxAt(t0.Add(time.Minute)), ids, "batch", s.reviewer)
		s.Equal(boundary.BulkResult{Succeeded: 3, Failed: 0}, result)

		pending, err := s.service.ListPending(ctxAt(t0.Add(2*time.Minute)))
		s.Require().NoError(err)
		s.Empty(pending)
	})

	s.Run("already-decided members count as failed", func() {
		req := s.submit(t0)
		_, err := s.service.Approve(ctxAt(t0), req.ID, true, "", s.reviewer)
		s.Require().NoError(err)

		result := s.service.BulkDeny(ctxAt(t0.Add(time.Minute)), []id.BoundaryRequestID{req.ID}, "", s.reviewer)
		s.Equal(boundary.BulkResult{Succeeded: 0, Failed: 1}, result)
	})
}
