package actionlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"opsgate/internal/recorder"
	id "opsgate/pkg/domain"
)

// PostgresStore persists action-log entries. Append-only by construction:
// only INSERT and SELECT are issued against the table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed action log.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *recorder.ActionLogEntry) error {
	var details any
	if len(entry.Details) > 0 {
		details = []byte(entry.Details)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_log (id, session_id, action_type, resource_type, resource_id, details, performed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.ID, uuid.UUID(entry.SessionID), entry.ActionType,
		nullString(entry.ResourceType), nullString(entry.ResourceID),
		details, entry.PerformedAt,
	)
	if err != nil {
		return fmt.Errorf("append action log entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, sessionID id.SessionID) ([]*recorder.ActionLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, action_type, resource_type, resource_id, details, performed_at
		FROM action_log WHERE session_id = $1 ORDER BY performed_at ASC
	`, uuid.UUID(sessionID))
	if err != nil {
		return nil, fmt.Errorf("list action log: %w", err)
	}
	defer rows.Close()

	var out []*recorder.ActionLogEntry
	for rows.Next() {
		var (
			entry        recorder.ActionLogEntry
			sessionUUID  uuid.UUID
			resourceType sql.NullString
			resourceID   sql.NullString
			details      []byte
		)
		if err := rows.Scan(&entry.ID, &sessionUUID, &entry.ActionType,
			&resourceType, &resourceID, &details, &entry.PerformedAt); err != nil {
			return nil, fmt.Errorf("scan action log entry: %w", err)
		}
		entry.SessionID = id.SessionID(sessionUUID)
		entry.ResourceType = resourceType.String
		entry.ResourceID = resourceID.String
		entry.Details = details
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action log: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
