package justification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"opsgate/internal/ledger"
	id "opsgate/pkg/domain"
	"opsgate/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = New()
}

func (s *InMemoryStoreSuite) grant(adminID id.AdminID, orgID id.OrgID) *ledger.AccessJustification {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	j := &ledger.AccessJustification{
		ID:          id.NewJustificationID(),
		AdminID:     adminID,
		TargetOrgID: orgID,
		Reason:      "debug billing",
		GrantedAt:   t0,
		ExpiresAt:   t0.Add(2 * time.Hour),
	}
	s.Require().NoError(s.store.Create(context.Background(), j))
	return j
}

func (s *InMemoryStoreSuite) TestFindByID() {
	ctx := context.Background()

	s.Run("missing id returns ErrNotFound", func() {
		_, err := s.store.FindByID(ctx, id.NewJustificationID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned record is a clone", func() {
		created := s.grant(id.NewAdminID(), id.NewOrgID())
		found, err := s.store.FindByID(ctx, created.ID)
		s.Require().NoError(err)

		found.Reason = "mutated"
		again, err := s.store.FindByID(ctx, created.ID)
		s.Require().NoError(err)
		s.Equal("debug billing", again.Reason)
	})
}

func (s *InMemoryStoreSuite) TestListByAdminOrg() {
	ctx := context.Background()
	adminID := id.NewAdminID()
	orgID := id.NewOrgID()

	s.grant(adminID, orgID)
	s.grant(adminID, orgID)
	s.grant(adminID, id.NewOrgID())
	s.grant(id.NewAdminID(), orgID)

	records, err := s.store.ListByAdminOrg(ctx, adminID, orgID)
	s.Require().NoError(err)
	s.Len(records, 2)
}

func (s *InMemoryStoreSuite) TestMarkRevoked() {
	ctx := context.Background()
	created := s.grant(id.NewAdminID(), id.NewOrgID())
	firstAt := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	s.Run("stamps revocation once", func() {
		revoked, err := s.store.MarkRevoked(ctx, created.ID, firstAt, "done")
		s.Require().NoError(err)
		s.Require().NotNil(revoked.RevokedAt)
		s.Equal(firstAt, *revoked.RevokedAt)
		s.Equal("done", revoked.RevokeReason)
	})

	s.Run("second revoke keeps the original stamp", func() {
		revoked, err := s.store.MarkRevoked(ctx, created.ID, firstAt.Add(time.Hour), "later")
		s.Require().NoError(err)
		s.Require().NotNil(revoked.RevokedAt)
		s.Equal(firstAt, *revoked.RevokedAt)
		s.Equal("done", revoked.RevokeReason)
	})

	s.Run("missing id returns ErrNotFound", func() {
		_, err := s.store.MarkRevoked(ctx, id.NewJustificationID(), firstAt, "")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
