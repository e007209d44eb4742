// Package alerts is the real-time security/anomaly alert pipeline. Alerts are
// persisted and pushed to live operator consoles; the persisted record is the
// source of truth, the push is best-effort.
package alerts

import (
	"time"

	id "opsgate/pkg/domain"
)

// Category partitions the independent event sources feeding the pipeline.
type Category string

const (
	CategoryBoundaryRequest    Category = "boundary_request"
	CategoryAnomaly            Category = "anomaly"
	CategorySecurity           Category = "security"
	CategoryFailedAuth         Category = "failed_auth"
	CategoryPrivilegeElevation Category = "privilege_elevation"
)

// Valid reports whether c is one of the known event sources.
func (c Category) Valid() bool {
	switch c {
	case CategoryBoundaryRequest, CategoryAnomaly, CategorySecurity,
		CategoryFailedAuth, CategoryPrivilegeElevation:
		return true
	}
	return false
}

// Severity grades an alert for triage.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severity grades.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Status is derived from the stamped fields, never stored independently.
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusDismissed    Status = "dismissed"
)

// Alert is one pipeline record. Transitions are monotonic: acknowledged and
// resolved stamps are written once and never cleared.
type Alert struct {
	ID             id.AlertID
	Category       Category
	Severity       Severity
	Description    string
	SourceRef      string
	CreatedAt      time.Time
	AcknowledgedBy id.AdminID
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
	DismissedAt    *time.Time
}

// Status derives the lifecycle position from the stamped fields.
func (a *Alert) Status() Status {
	switch {
	case a.ResolvedAt != nil:
		return StatusResolved
	case a.DismissedAt != nil:
		return StatusDismissed
	case a.AcknowledgedAt != nil:
		return StatusAcknowledged
	default:
		return StatusOpen
	}
}
