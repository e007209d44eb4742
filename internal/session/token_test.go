package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
)

type TokenServiceSuite struct {
	suite.Suite
	tokens *TokenService
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceSuite))
}

func (s *TokenServiceSuite) SetupTest() {
	s.tokens = NewTokenService("test-signing-key", "opsgate-test")
}

func (s *TokenServiceSuite) orgSession(issuedAt time.Time, ttl time.Duration) *ImpersonationSession {
	return &ImpersonationSession{
		ID:          id.NewSessionID(),
		AdminID:     id.NewAdminID(),
		TargetType:  TargetOrganization,
		TargetOrgID: id.NewOrgID(),
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(ttl),
	}
}

func (s *TokenServiceSuite) TestRoundTrip() {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s.Run("organization token carries the org target", func() {
		sess := s.orgSession(t0, time.Hour)
		token, err := s.tokens.Generate(sess)
		s.Require().NoError(err)

		claims, err := s.tokens.Parse(token, t0.Add(30*time.Minute))
		s.Require().NoError(err)
		s.Equal(sess.ID, claims.SessionID)
		s.Equal(sess.AdminID, claims.AdminID)
		s.Equal(TargetOrganization, claims.TargetType)
		s.Equal(sess.TargetOrgID, claims.TargetOrgID)
		s.True(claims.TargetUserID.IsNil())
		s.Equal(sess.ExpiresAt, claims.ExpiresAt)
	})

	s.Run("user token carries the user target", func() {
		sess := &ImpersonationSession{
			ID:           id.NewSessionID(),
			AdminID:      id.NewAdminID(),
			TargetType:   TargetUser,
			TargetUserID: id.NewUserID(),
			IssuedAt:     t0,
			ExpiresAt:    t0.Add(time.Hour),
		}
		token, err := s.tokens.Generate(sess)
		s.Require().NoError(err)

		claims, err := s.tokens.Parse(token, t0.Add(time.Minute))
		s.Require().NoError(err)
		s.Equal(TargetUser, claims.TargetType)
		s.Equal(sess.TargetUserID, claims.TargetUserID)
		s.True(claims.TargetOrgID.IsNil())
	})
}

func (s *TokenServiceSuite) TestExpiry() {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sess := s.orgSession(t0, time.Hour)
	token, err := s.tokens.Generate(sess)
	s.Require().NoError(err)

	s.Run("valid one second before expiry", func() {
		_, err := s.tokens.Parse(token, sess.ExpiresAt.Add(-time.Second))
		s.NoError(err)
	})

	s.Run("expired exactly at the boundary", func() {
		_, err := s.tokens.Parse(token, sess.ExpiresAt)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})

	s.Run("expired after the boundary", func() {
		_, err := s.tokens.Parse(token, sess.ExpiresAt.Add(time.Second))
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})
}

func (s *TokenServiceSuite) TestRejectsBadTokens() {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s.Run("garbage input", func() {
		_, err := s.tokens.Parse("not-a-jwt", t0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
	})

	s.Run("token signed with a different key", func() {
		other := NewTokenService("other-key", "opsgate-test")
		token, err := other.Generate(s.orgSession(t0, time.Hour))
		s.Require().NoError(err)

		_, err = s.tokens.Parse(token, t0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
	})

	s.Run("tampered payload", func() {
		token, err := s.tokens.Generate(s.orgSession(t0, time.Hour))
		s.Require().NoError(err)

		_, err = s.tokens.Parse(token[:len(token)-4]+"AAAA", t0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
	})
}
