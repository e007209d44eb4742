// Package recorder keeps the append-only audit trail of actions performed
// under impersonation sessions.
//
// Audit policy is "audit-failure: log-and-continue": appends are best-effort
// and a failed append is logged and counted but never fails the privileged
// operation being audited. An audit-trail gap is preferable to blocking the
// underlying action.
package recorder

import (
	"encoding/json"
	"time"

	id "opsgate/pkg/domain"

	"github.com/google/uuid"
)

// ActionLogEntry is one immutable record of a privileged action. Entries may
// reference sessions that have since ended; trailing writes are permitted.
type ActionLogEntry struct {
	ID           uuid.UUID
	SessionID    id.SessionID
	ActionType   string
	ResourceType string
	ResourceID   string
	Details      json.RawMessage
	PerformedAt  time.Time
}
