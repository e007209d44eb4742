// Package ledger persists and validates time-boxed access grants. A grant
// ("justification") lets a platform operator view a tenant organization's
// data for a documented reason until it expires or is revoked.
package ledger

import (
	"time"

	id "opsgate/pkg/domain"
)

// AccessJustification is a time-boxed, reason-documented access grant.
// Records are never deleted; revocation only marks them.
type AccessJustification struct {
	ID           id.JustificationID
	AdminID      id.AdminID
	TargetOrgID  id.OrgID
	Reason       string
	TicketRef    string
	GrantedAt    time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	RevokeReason string
}

// IsActive reports whether the grant confers access at the given instant:
// unrevoked and not yet expired.
func (j *AccessJustification) IsActive(now time.Time) bool {
	return j.RevokedAt == nil && now.Before(j.ExpiresAt)
}
