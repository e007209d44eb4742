package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "opsgate/pkg/domain"
	dErrors "opsgate/pkg/domerrors"
)

// tokenClaims is the JWT payload for impersonation tokens.
type tokenClaims struct {
	AdminID      string `json:"admin_id"`
	TargetType   string `json:"target_type"`
	TargetOrgID  string `json:"target_org_id,omitempty"`
	TargetUserID string `json:"target_user_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies impersonation session tokens (HS256).
// The token is opaque to clients; the session id travels in the subject.
type TokenService struct {
	signingKey []byte
	issuer     string
}

func NewTokenService(signingKey, issuer string) *TokenService {
	return &TokenService{signingKey: []byte(signingKey), issuer: issuer}
}

// Generate signs a token for the session, valid until the session's expiry.
func (t *TokenService) Generate(sess *ImpersonationSession) (string, error) {
	claims := tokenClaims{
		AdminID:    sess.AdminID.String(),
		TargetType: string(sess.TargetType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.ID.String(),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			Issuer:    t.issuer,
			ID:        uuid.NewString(),
		},
	}
	switch sess.TargetType {
	case TargetOrganization:
		claims.TargetOrgID = sess.TargetOrgID.String()
	case TargetUser:
		claims.TargetUserID = sess.TargetUserID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.signingKey)
}

// Parse verifies the signature and expiry at the given instant. Expiry here
// is boundary-inclusive: a token with expiresAt == now is already invalid.
func (t *TokenService) Parse(tokenString string, now time.Time) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return t.signingKey, nil
		},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, dErrors.New(dErrors.CodeExpired, "session token has expired")
		}
		return Claims{}, dErrors.New(dErrors.CodeInvalidToken, "invalid session token")
	}
	raw, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, dErrors.New(dErrors.CodeInvalidToken, "invalid session token claims")
	}
	if raw.ExpiresAt != nil && !now.Before(raw.ExpiresAt.Time) {
		return Claims{}, dErrors.New(dErrors.CodeExpired, "session token has expired")
	}

	claims := Claims{TargetType: TargetType(raw.TargetType)}
	if claims.SessionID, err = id.ParseSessionID(raw.Subject); err != nil {
		return Claims{}, dErrors.New(dErrors.CodeInvalidToken, "invalid session token claims")
	}
	if claims.AdminID, err = id.ParseAdminID(raw.AdminID); err != nil {
		return Claims{}, dErrors.New(dErrors.CodeInvalidToken, "invalid session token claims")
	}
	switch claims.TargetType {
	case TargetOrganization:
		if claims.TargetOrgID, err = id.ParseOrgID(raw.TargetOrgID); err != nil {
			return Claims{}, dErrors.New(dErrors.CodeInvalidToken, "invalid session token claims")
		}
	case TargetUser:
		if claims.TargetUserID, err = id.ParseUserID(raw.TargetUserID); err != nil {
			return Claims{}, dErrors.New(dErrors.CodeInvalidToken, "invalid session token claims")
		}
	default:
		return Claims{}, dErrors.New(dErrors.CodeInvalidToken, "invalid session token claims")
	}
	if raw.ExpiresAt != nil {
		claims.ExpiresAt = raw.ExpiresAt.Time
	}
	return claims, nil
}
