package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"opsgate/internal/boundary"
	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
	"opsgate/pkg/requestcontext"
)

type fakeService struct {
	submitted   *boundary.Request
	approveErr  error
	bulkResult  boundary.BulkResult
	bulkIDs     []id.BoundaryRequestID
	bulkApprove bool
	pending     []*boundary.Request
}

func (f *fakeService) Submit(_ context.Context, sourceSchema, targetSchema string, operation boundary.Operation, requesterID id.AdminID, dataClassification string) (*boundary.Request, error) {
	if sourceSchema == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "source and target schemas are required")
	}
	f.submitted = &boundary.Request{
		ID:                 id.NewBoundaryRequestID(),
		SourceSchema:       sourceSchema,
		TargetSchema:       targetSchema,
		Operation:          operation,
		RequesterID:        requesterID,
		DataClassification: dataClassification,
		CreatedAt:          time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	return f.submitted, nil
}

func (f *fakeService) Approve(_ context.Context, requestID id.BoundaryRequestID, approved bool, reason string, reviewerID id.AdminID) (*boundary.Request, error) {
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	decidedAt := time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC)
	return &boundary.Request{
		ID:          requestID,
		Approved:    &approved,
		ApprovedBy:  reviewerID,
		DecidedAt:   &decidedAt,
		Reason:      reason,
		RequesterID: id.NewAdminID(),
	}, nil
}

func (f *fakeService) BulkApprove(_ context.Context, requestIDs []id.BoundaryRequestID, _ string, _ id.AdminID) boundary.BulkResult {
	f.bulkIDs = requestIDs
	f.bulkApprove = true
	return f.bulkResult
}

func (f *fakeService) BulkDeny(_ context.Context, requestIDs []id.BoundaryRequestID, _ string, _ id.AdminID) boundary.BulkResult {
	f.bulkIDs = requestIDs
	f.bulkApprove = false
	return f.bulkResult
}

func (f *fakeService) ListPending(context.Context) ([]*boundary.Request, error) {
	return f.pending, nil
}

type HandlerSuite struct {
	suite.Suite
	service  *fakeService
	router   chi.Router
	operator id.AdminID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = &fakeService{}
	s.operator = id.NewAdminID()
	s.router = chi.NewRouter()
	New(s.service, slog.Default()).Register(s.router)
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(requestcontext.WithOperatorID(req.Context(), s.operator))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestSubmit() {
	s.Run("creates a request attributed to the operator", func() {
		rec := s.do(http.MethodPost, "/boundary-requests",
			`{"source_schema":"billing","target_schema":"analytics","operation":"export","data_classification":"pii"}`)
		s.Equal(http.StatusCreated, rec.Code)
		s.Require().NotNil(s.service.submitted)
		s.Equal(s.operator, s.service.submitted.RequesterID)

		var resp map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal("export", resp["operation"])
	})

	s.Run("malformed body is a validation error", func() {
		rec := s.do(http.MethodPost, "/boundary-requests", `{`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestDecide() {
	requestID := id.NewBoundaryRequestID()

	s.Run("records the decision", func() {
		rec := s.do(http.MethodPost, "/boundary-requests/"+requestID.String()+"/decide",
			`{"approved":false,"reason":"not justified"}`)
		s.Equal(http.StatusOK, rec.Code)

		var resp map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(false, resp["approved"])
		s.Equal("not justified", resp["reason"])
	})

	s.Run("invalid id in the path", func() {
		rec := s.do(http.MethodPost, "/boundary-requests/not-a-uuid/decide", `{"approved":true}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("already-decided maps to validation error", func() {
		s.service.approveErr = dErrors.New(dErrors.CodeValidation, "boundary request is already decided")
		defer func() { s.service.approveErr = nil }()
		rec := s.do(http.MethodPost, "/boundary-requests/"+requestID.String()+"/decide", `{"approved":true}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestBulk() {
	first := id.NewBoundaryRequestID()
	second := id.NewBoundaryRequestID()

	s.Run("bulk deny reports the aggregate", func() {
		s.service.bulkResult = boundary.BulkResult{Succeeded: 1, Failed: 1}
		rec := s.do(http.MethodPost, "/boundary-requests/bulk-deny",
			`{"request_ids":["`+first.String()+`","`+second.String()+`"],"reason":"cleanup"}`)
		s.Equal(http.StatusOK, rec.Code)
		s.False(s.service.bulkApprove)
		s.Len(s.service.bulkIDs, 2)

		var resp boundary.BulkResult
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(boundary.BulkResult{Succeeded: 1, Failed: 1}, resp)
	})

	s.Run("empty id list is rejected", func() {
		rec := s.do(http.MethodPost, "/boundary-requests/bulk-approve", `{"request_ids":[]}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("one malformed id rejects the whole call", func() {
		rec := s.do(http.MethodPost, "/boundary-requests/bulk-approve",
			`{"request_ids":["`+first.String()+`","nope"]}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}
