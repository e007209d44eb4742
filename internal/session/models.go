// Package session issues, validates, and terminates impersonation sessions.
// A session is a bounded-duration credential letting an operator act in the
// context of a target organization or user.
package session

import (
	"time"

	id "opsgate/pkg/domain"
)

// TargetType distinguishes organization-scoped from user-scoped sessions.
type TargetType string

const (
	TargetOrganization TargetType = "organization"
	TargetUser         TargetType = "user"
)

// ImpersonationSession is the server-side record of an issued session.
// Exactly one of TargetOrgID/TargetUserID is set, matching TargetType.
// Once EndedAt is set the session is terminal and never reopened.
type ImpersonationSession struct {
	ID           id.SessionID
	AdminID      id.AdminID
	TargetType   TargetType
	TargetOrgID  id.OrgID
	TargetUserID id.UserID
	TargetName   string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	EndedAt      *time.Time
	EndReason    string
}

// Claims are the validated facts a privileged call may rely on.
type Claims struct {
	SessionID    id.SessionID
	AdminID      id.AdminID
	TargetType   TargetType
	TargetOrgID  id.OrgID
	TargetUserID id.UserID
	ExpiresAt    time.Time
}

// StartResult is returned to the operator console on session start.
type StartResult struct {
	SessionID id.SessionID
	Token     string
	ExpiresAt time.Time
}
