// Package boundary runs the approve/deny workflow for cross-schema
// data-access requests.
package boundary

import (
	"time"

	id "opsgate/pkg/domain"
)

// Operation names the access being requested across the schema boundary.
type Operation string

const (
	OperationRead   Operation = "read"
	OperationWrite  Operation = "write"
	OperationExport Operation = "export"
)

// Request is one logged attempt to cross a schema/data-classification
// boundary. Approved is nil while pending; a decision is terminal.
type Request struct {
	ID                 id.BoundaryRequestID
	SourceSchema       string
	TargetSchema       string
	Operation          Operation
	RequesterID        id.AdminID
	DataClassification string
	CreatedAt          time.Time
	Approved           *bool
	ApprovedBy         id.AdminID
	DecidedAt          *time.Time
	Reason             string
}

// Pending reports whether the request still awaits a decision.
func (r *Request) Pending() bool { return r.Approved == nil }

// BulkResult aggregates a bulk approve/deny fan-out. Members are independent:
// a failed member never rolls back the others.
type BulkResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
