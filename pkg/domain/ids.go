// Package domain holds typed identifiers shared across components. Wrapping
// uuid.UUID in distinct types lets the compiler reject cross-wiring an admin
// id where an org id belongs.
package domain

import (
	"github.com/google/uuid"

	dErrors "opsgate/pkg/domerrors"
)

type (
	// AdminID identifies a platform operator.
	AdminID uuid.UUID
	// OrgID identifies a tenant organization.
	OrgID uuid.UUID
	// UserID identifies a tenant user (impersonation target).
	UserID uuid.UUID
	// SessionID identifies an impersonation session.
	SessionID uuid.UUID
	// JustificationID identifies an access justification record.
	JustificationID uuid.UUID
	// AlertID identifies an anomaly/security alert record.
	AlertID uuid.UUID
	// BoundaryRequestID identifies a cross-schema access request.
	BoundaryRequestID uuid.UUID
)

// parseUUID enforces the shared invariant: ids must be valid, non-empty,
// non-nil UUIDs. Enforced at trust boundaries only; internal code passes
// typed values around.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, kind+" id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, kind+" id must not be nil")
	}
	return parsed, nil
}

func ParseAdminID(s string) (AdminID, error) {
	v, err := parseUUID(s, "admin")
	return AdminID(v), err
}

func ParseOrgID(s string) (OrgID, error) {
	v, err := parseUUID(s, "org")
	return OrgID(v), err
}

func ParseUserID(s string) (UserID, error) {
	v, err := parseUUID(s, "user")
	return UserID(v), err
}

func ParseSessionID(s string) (SessionID, error) {
	v, err := parseUUID(s, "session")
	return SessionID(v), err
}

func ParseJustificationID(s string) (JustificationID, error) {
	v, err := parseUUID(s, "justification")
	return JustificationID(v), err
}

func ParseAlertID(s string) (AlertID, error) {
	v, err := parseUUID(s, "alert")
	return AlertID(v), err
}

func ParseBoundaryRequestID(s string) (BoundaryRequestID, error) {
	v, err := parseUUID(s, "boundary request")
	return BoundaryRequestID(v), err
}

func (id AdminID) String() string           { return uuid.UUID(id).String() }
func (id OrgID) String() string             { return uuid.UUID(id).String() }
func (id UserID) String() string            { return uuid.UUID(id).String() }
func (id SessionID) String() string         { return uuid.UUID(id).String() }
func (id JustificationID) String() string   { return uuid.UUID(id).String() }
func (id AlertID) String() string           { return uuid.UUID(id).String() }
func (id BoundaryRequestID) String() string { return uuid.UUID(id).String() }

func (id AdminID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) IsNil() bool             { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id JustificationID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id BoundaryRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func NewAdminID() AdminID                     { return AdminID(uuid.New()) }
func NewOrgID() OrgID                         { return OrgID(uuid.New()) }
func NewUserID() UserID                       { return UserID(uuid.New()) }
func NewSessionID() SessionID                 { return SessionID(uuid.New()) }
func NewJustificationID() JustificationID     { return JustificationID(uuid.New()) }
func NewAlertID() AlertID                     { return AlertID(uuid.New()) }
func NewBoundaryRequestID() BoundaryRequestID { return BoundaryRequestID(uuid.New()) }
